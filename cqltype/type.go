// Package cqltype implements the CQL type system: the Type discriminator,
// the tagged raw-bytes Value form, Marshal/Unmarshal between Value and Go
// native values, and type guessing for untyped simple-statement parameters.
package cqltype

import "github.com/scylladb/go-cql-driver/frame"

// Type is a CQL type descriptor, mirroring frame.Option but with Go-native
// field names used throughout the codec and the rest of the driver.
type Type struct {
	ID OptionID

	// Custom carries the class name for ID == Custom.
	Custom string
	// Elem is the element type for List, Set and Vector.
	Elem *Type
	// Key/Value are the key/value types for Map.
	Key   *Type
	Value *Type
	// UDT carries field names/types for ID == Udt.
	UDT *UDTFields
	// Tuple carries element types for ID == Tuple.
	Tuple []Type
	// Dimensions is the fixed element count for ID == Vector.
	Dimensions int
}

type UDTFields struct {
	Keyspace string
	Name     string
	Names    []string
	Types    []Type
}

// OptionID names a CQL type, independent of its wire encoding.
type OptionID int

const (
	Custom OptionID = iota
	Ascii
	BigInt
	Blob
	Boolean
	Counter
	DecimalType
	Double
	Float
	Int
	Timestamp
	Uuid
	Text
	Varint
	TimeUuid
	Inet
	Date
	Time
	SmallInt
	TinyInt
	DurationType
	List
	Map
	Set
	Udt
	Tuple
	Vector
)

var fromWire = map[frame.OptionID]OptionID{
	frame.OptionCustom:    Custom,
	frame.OptionAscii:     Ascii,
	frame.OptionBigInt:    BigInt,
	frame.OptionBlob:      Blob,
	frame.OptionBoolean:   Boolean,
	frame.OptionCounter:   Counter,
	frame.OptionDecimal:   DecimalType,
	frame.OptionDouble:    Double,
	frame.OptionFloat:     Float,
	frame.OptionInt:       Int,
	frame.OptionTimestamp: Timestamp,
	frame.OptionUUID:      Uuid,
	frame.OptionVarchar:   Text,
	frame.OptionVarint:    Varint,
	frame.OptionTimeUUID:  TimeUuid,
	frame.OptionInet:      Inet,
	frame.OptionDate:      Date,
	frame.OptionTime:      Time,
	frame.OptionSmallInt:  SmallInt,
	frame.OptionTinyInt:   TinyInt,
	frame.OptionDuration:  DurationType,
	frame.OptionList:      List,
	frame.OptionMap:       Map,
	frame.OptionSet:       Set,
	frame.OptionUDT:       Udt,
	frame.OptionTuple:     Tuple,
	frame.OptionVector:    Vector,
}

var toWire = map[OptionID]frame.OptionID{
	Custom:    frame.OptionCustom,
	Ascii:     frame.OptionAscii,
	BigInt:    frame.OptionBigInt,
	Blob:      frame.OptionBlob,
	Boolean:   frame.OptionBoolean,
	Counter:   frame.OptionCounter,
	DecimalType:   frame.OptionDecimal,
	Double:    frame.OptionDouble,
	Float:     frame.OptionFloat,
	Int:       frame.OptionInt,
	Timestamp: frame.OptionTimestamp,
	Uuid:      frame.OptionUUID,
	Text:      frame.OptionVarchar,
	Varint:    frame.OptionVarint,
	TimeUuid:  frame.OptionTimeUUID,
	Inet:      frame.OptionInet,
	Date:      frame.OptionDate,
	Time:      frame.OptionTime,
	SmallInt:  frame.OptionSmallInt,
	TinyInt:   frame.OptionTinyInt,
	DurationType:  frame.OptionDuration,
	List:      frame.OptionList,
	Map:       frame.OptionMap,
	Set:       frame.OptionSet,
	Udt:       frame.OptionUDT,
	Tuple:     frame.OptionTuple,
	Vector:    frame.OptionVector,
}

// FromOption converts a wire Option descriptor into a Type.
func FromOption(o frame.Option) Type {
	t := Type{ID: fromWire[o.ID]}
	switch o.ID {
	case frame.OptionCustom:
		t.Custom = o.Custom
	case frame.OptionList:
		e := FromOption(*o.List)
		t.Elem = &e
	case frame.OptionSet:
		e := FromOption(*o.Set)
		t.Elem = &e
	case frame.OptionMap:
		k := FromOption(o.Map[0])
		v := FromOption(o.Map[1])
		t.Key, t.Value = &k, &v
	case frame.OptionUDT:
		names := append([]string(nil), o.UDT.FieldNames...)
		types := make([]Type, len(o.UDT.FieldTypes))
		for i, ft := range o.UDT.FieldTypes {
			types[i] = FromOption(ft)
		}
		t.UDT = &UDTFields{Keyspace: o.UDT.Keyspace, Name: o.UDT.Name, Names: names, Types: types}
	case frame.OptionTuple:
		t.Tuple = make([]Type, len(o.Tuple))
		for i, e := range o.Tuple {
			t.Tuple[i] = FromOption(e)
		}
	case frame.OptionVector:
		e := FromOption(o.Vector.Element)
		t.Elem = &e
		t.Dimensions = int(o.Vector.Dimensions)
	}
	return t
}

// ToOption converts a Type back into its wire Option descriptor.
func ToOption(t Type) frame.Option {
	o := frame.Option{ID: toWire[t.ID]}
	switch t.ID {
	case Custom:
		o.Custom = t.Custom
	case List:
		e := ToOption(*t.Elem)
		o.List = &e
	case Set:
		e := ToOption(*t.Elem)
		o.Set = &e
	case Map:
		k := ToOption(*t.Key)
		v := ToOption(*t.Value)
		o.Map = &[2]frame.Option{k, v}
	case Udt:
		names := append([]string(nil), t.UDT.Names...)
		types := make([]frame.Option, len(t.UDT.Types))
		for i, ft := range t.UDT.Types {
			types[i] = ToOption(ft)
		}
		o.UDT = &frame.UDTOption{Keyspace: t.UDT.Keyspace, Name: t.UDT.Name, FieldNames: names, FieldTypes: types}
	case Tuple:
		o.Tuple = make([]frame.Option, len(t.Tuple))
		for i, e := range t.Tuple {
			o.Tuple[i] = ToOption(e)
		}
	case Vector:
		e := ToOption(*t.Elem)
		o.Vector = &frame.VectorOption{Element: e, Dimensions: frame.Int(t.Dimensions)}
	}
	return o
}
