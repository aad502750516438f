package session

import (
	"fmt"
	"reflect"

	"github.com/scylladb/go-cql-driver/cqlerr"
)

// assignReflect stores val (a value already decoded to its native Go type
// by cqltype.Unmarshal) into dest, which must be a non-nil pointer. Values
// whose underlying types differ but are convertible (e.g. a decoded int64
// into a destination *int) are converted by reflect's conversion rules,
// with no range check, so a narrowing conversion (int64 into *int8)
// truncates; types that are not convertible make the assignment fail.
func assignReflect(dest interface{}, val interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return cqlerr.ArgumentError{Msg: fmt.Sprintf("scan destination %T is not a non-nil pointer", dest)}
	}
	elem := dv.Elem()

	if val == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}

	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(elem.Type()) {
		elem.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(elem.Type()) {
		elem.Set(rv.Convert(elem.Type()))
		return nil
	}
	return cqlerr.ArgumentError{Msg: fmt.Sprintf("cannot scan %T into %s", val, elem.Type())}
}
