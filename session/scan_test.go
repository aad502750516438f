package session

import "testing"

func TestAssignReflectDirectMatch(t *testing.T) {
	var s string
	if err := assignReflect(&s, "hello"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q, want hello", s)
	}
}

func TestAssignReflectConvertible(t *testing.T) {
	var n int
	if err := assignReflect(&n, int32(42)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}

func TestAssignReflectNilSetsZero(t *testing.T) {
	n := 7
	if err := assignReflect(&n, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d, want 0", n)
	}
}

func TestAssignReflectNonPointerFails(t *testing.T) {
	var n int
	if err := assignReflect(n, 1); err == nil {
		t.Fatal("expected error assigning into a non-pointer")
	}
}

func TestAssignReflectIncompatibleFails(t *testing.T) {
	var n int
	if err := assignReflect(&n, "not a number"); err == nil {
		t.Fatal("expected error assigning string into *int")
	}
}
