package cqltype

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Collections, tuples, UDTs and vectors all nest other Values inside a
// length-prefixed byte string; this file implements that shared shape.
// Wire layout cross-checked against frame.CqlValue's AsStringSlice/
// AsStringMap in the vendored driver (4-byte element count, then per
// element a 4-byte length followed by that many bytes).

func appendElem(buf []byte, v Value) []byte {
	if v.IsNull {
		return binary.BigEndian.AppendUint32(buf, 0xFFFFFFFF)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Bytes)))
	return append(buf, v.Bytes...)
}

func readElem(raw []byte, t Type) (Value, []byte, error) {
	if len(raw) < 4 {
		return Value{}, nil, fmt.Errorf("cqltype: truncated collection element")
	}
	n := int32(binary.BigEndian.Uint32(raw))
	raw = raw[4:]
	if n < 0 {
		return Null(t), raw, nil
	}
	if len(raw) < int(n) {
		return Value{}, nil, fmt.Errorf("cqltype: truncated collection element")
	}
	return Value{Type: t, Bytes: raw[:n]}, raw[n:], nil
}

func marshalList(t Type, v interface{}) (Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Value{}, fmt.Errorf("cqltype: expected a slice for %v, got %T", t.ID, v)
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return Null(t), nil
	}
	buf := binary.BigEndian.AppendUint32(nil, uint32(rv.Len()))
	for i := 0; i < rv.Len(); i++ {
		ev, err := Marshal(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		buf = appendElem(buf, ev)
	}
	return Value{Type: t, Bytes: buf}, nil
}

func unmarshalList(val Value) ([]interface{}, error) {
	raw := val.Bytes
	if len(raw) < 4 {
		return nil, fmt.Errorf("cqltype: truncated list/set")
	}
	n := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	out := make([]interface{}, n)
	for i := range out {
		var ev Value
		var err error
		ev, raw, err = readElem(raw, *val.Type.Elem)
		if err != nil {
			return nil, err
		}
		out[i], err = Unmarshal(ev)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func marshalMap(t Type, v interface{}) (Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return Value{}, fmt.Errorf("cqltype: expected a map, got %T", v)
	}
	if rv.IsNil() {
		return Null(t), nil
	}
	buf := binary.BigEndian.AppendUint32(nil, uint32(rv.Len()))
	iter := rv.MapRange()
	for iter.Next() {
		kv, err := Marshal(*t.Key, iter.Key().Interface())
		if err != nil {
			return Value{}, err
		}
		vv, err := Marshal(*t.Value, iter.Value().Interface())
		if err != nil {
			return Value{}, err
		}
		buf = appendElem(buf, kv)
		buf = appendElem(buf, vv)
	}
	return Value{Type: t, Bytes: buf}, nil
}

func unmarshalMap(val Value) (map[interface{}]interface{}, error) {
	raw := val.Bytes
	if len(raw) < 4 {
		return nil, fmt.Errorf("cqltype: truncated map")
	}
	n := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	out := make(map[interface{}]interface{}, n)
	for i := uint32(0); i < n; i++ {
		var kv, vv Value
		var err error
		kv, raw, err = readElem(raw, *val.Type.Key)
		if err != nil {
			return nil, err
		}
		vv, raw, err = readElem(raw, *val.Type.Value)
		if err != nil {
			return nil, err
		}
		k, err := Unmarshal(kv)
		if err != nil {
			return nil, err
		}
		v, err := Unmarshal(vv)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// marshalTuple and marshalUDT accept []interface{} / map[string]interface{}
// respectively; tuple/UDT elements use the "bytes or absent" encoding (no
// per-element null marker distinct from a -1 length), same rule as
// collections.

func marshalTuple(t Type, v interface{}) (Value, error) {
	vals, ok := v.([]interface{})
	if !ok {
		return Value{}, fmt.Errorf("cqltype: expected []interface{} for tuple, got %T", v)
	}
	if len(vals) != len(t.Tuple) {
		return Value{}, fmt.Errorf("cqltype: tuple arity mismatch: got %d, want %d", len(vals), len(t.Tuple))
	}
	var buf []byte
	for i, fv := range vals {
		ev, err := Marshal(t.Tuple[i], fv)
		if err != nil {
			return Value{}, err
		}
		buf = appendElem(buf, ev)
	}
	return Value{Type: t, Bytes: buf}, nil
}

func unmarshalTuple(val Value) ([]interface{}, error) {
	raw := val.Bytes
	out := make([]interface{}, len(val.Type.Tuple))
	for i, ft := range val.Type.Tuple {
		var ev Value
		var err error
		ev, raw, err = readElem(raw, ft)
		if err != nil {
			return nil, err
		}
		out[i], err = Unmarshal(ev)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func marshalUDT(t Type, v interface{}) (Value, error) {
	fields, ok := v.(map[string]interface{})
	if !ok {
		return Value{}, fmt.Errorf("cqltype: expected map[string]interface{} for UDT, got %T", v)
	}
	var buf []byte
	for i, name := range t.UDT.Names {
		ev, err := Marshal(t.UDT.Types[i], fields[name])
		if err != nil {
			return Value{}, err
		}
		buf = appendElem(buf, ev)
	}
	return Value{Type: t, Bytes: buf}, nil
}

func unmarshalUDT(val Value) (map[string]interface{}, error) {
	raw := val.Bytes
	out := make(map[string]interface{}, len(val.Type.UDT.Names))
	for i, name := range val.Type.UDT.Names {
		var ev Value
		var err error
		ev, raw, err = readElem(raw, val.Type.UDT.Types[i])
		if err != nil {
			return nil, err
		}
		out[name], err = Unmarshal(ev)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Vectors (ScyllaDB/Cassandra 5 extension, spec.md §4.2) are a fixed-size,
// un-length-prefixed sequence of raw fixed-width element encodings — unlike
// List, there is no per-element length prefix, since every element is the
// same statically-known size.

func marshalVector(t Type, v interface{}) (Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return Value{}, fmt.Errorf("cqltype: expected a slice for vector, got %T", v)
	}
	if rv.Len() != t.Dimensions {
		return Value{}, fmt.Errorf("cqltype: vector dimension mismatch: got %d, want %d", rv.Len(), t.Dimensions)
	}
	var buf []byte
	for i := 0; i < rv.Len(); i++ {
		ev, err := Marshal(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		buf = append(buf, ev.Bytes...)
	}
	return Value{Type: t, Bytes: buf}, nil
}

func unmarshalVector(val Value) ([]interface{}, error) {
	elemSize := fixedWidth(*val.Type.Elem)
	if elemSize <= 0 {
		return nil, fmt.Errorf("cqltype: vector element type must have a fixed width")
	}
	raw := val.Bytes
	if len(raw) != elemSize*val.Type.Dimensions {
		return nil, fmt.Errorf("cqltype: vector byte length mismatch")
	}
	out := make([]interface{}, val.Type.Dimensions)
	for i := range out {
		ev := Value{Type: *val.Type.Elem, Bytes: raw[:elemSize]}
		raw = raw[elemSize:]
		v, err := Unmarshal(ev)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func fixedWidth(t Type) int {
	switch t.ID {
	case TinyInt:
		return 1
	case SmallInt:
		return 2
	case Int, Float, Date:
		return 4
	case BigInt, Counter, Double, Timestamp, Time:
		return 8
	case Uuid, TimeUuid:
		return 16
	default:
		return -1
	}
}
