package cqltype

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/scylladb/go-cql-driver/cqlerr"
)

// Marshal encodes a Go native value as the wire bytes for t. A nil value
// (untyped nil, nil slice/map/pointer) always marshals to a NULL Value,
// matching spec.md §3's TypedValue contract.
func Marshal(t Type, v interface{}) (Value, error) {
	if v == nil {
		return Null(t), nil
	}
	switch t.ID {
	case Ascii, Text:
		s, ok := v.(string)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected string for %v, got %T", t.ID, v)
		}
		return Value{Type: t, Bytes: []byte(s)}, nil
	case Blob:
		b, ok := v.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected []byte for Blob, got %T", v)
		}
		if b == nil {
			return Null(t), nil
		}
		return Value{Type: t, Bytes: b}, nil
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected bool, got %T", v)
		}
		if b {
			return Value{Type: t, Bytes: []byte{1}}, nil
		}
		return Value{Type: t, Bytes: []byte{0}}, nil
	case TinyInt:
		n, err := toInt64(v)
		if err != nil {
			return Value{}, err
		}
		if n < math.MinInt8 || n > math.MaxInt8 {
			return Value{}, cqlerr.ArgumentError{Msg: fmt.Sprintf("%d out of range for TinyInt", n)}
		}
		return Value{Type: t, Bytes: []byte{byte(n)}}, nil
	case SmallInt:
		n, err := toInt64(v)
		if err != nil {
			return Value{}, err
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return Value{}, cqlerr.ArgumentError{Msg: fmt.Sprintf("%d out of range for SmallInt", n)}
		}
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(n))
		return Value{Type: t, Bytes: b}, nil
	case Int:
		n, err := toInt64(v)
		if err != nil {
			return Value{}, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return Value{}, cqlerr.ArgumentError{Msg: fmt.Sprintf("%d out of range for Int", n)}
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(n))
		return Value{Type: t, Bytes: b}, nil
	case BigInt, Counter:
		n, err := toInt64(v)
		if err != nil {
			return Value{}, err
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(n))
		return Value{Type: t, Bytes: b}, nil
	case Float:
		f, err := toFloat64(v)
		if err != nil {
			return Value{}, err
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, math.Float32bits(float32(f)))
		return Value{Type: t, Bytes: b}, nil
	case Double:
		f, err := toFloat64(v)
		if err != nil {
			return Value{}, err
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(f))
		return Value{Type: t, Bytes: b}, nil
	case Varint:
		i, err := toBigInt(v)
		if err != nil {
			return Value{}, err
		}
		if i == nil {
			return Null(t), nil
		}
		return Value{Type: t, Bytes: encodeVarint(i)}, nil
	case DecimalType:
		dec, ok := v.(Decimal)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected cqltype.Decimal, got %T", v)
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(dec.Scale))
		return Value{Type: t, Bytes: append(b, encodeVarint(dec.Unscaled)...)}, nil
	case Timestamp:
		tm, ok := v.(time.Time)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected time.Time for Timestamp, got %T", v)
		}
		ms := tm.UnixNano() / int64(time.Millisecond)
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(ms))
		return Value{Type: t, Bytes: b}, nil
	case Date:
		tm, ok := v.(time.Time)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected time.Time for Date, got %T", v)
		}
		days := int32(tm.UTC().Unix() / 86400)
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(days)+dateBias)
		return Value{Type: t, Bytes: b}, nil
	case Time:
		d, ok := v.(time.Duration)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected time.Duration (ns-of-day) for Time, got %T", v)
		}
		if d < 0 || int64(d) >= nsPerDay {
			return Value{}, fmt.Errorf("cqltype: time value out of range: %v", d)
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(d))
		return Value{Type: t, Bytes: b}, nil
	case DurationType:
		d, ok := v.(Duration)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected cqltype.Duration, got %T", v)
		}
		if err := d.Validate(); err != nil {
			return Value{}, err
		}
		return Value{Type: t, Bytes: EncodeDuration(d)}, nil
	case Uuid, TimeUuid:
		u, ok := v.(UUID)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected cqltype.UUID, got %T", v)
		}
		b := make([]byte, 16)
		copy(b, u[:])
		return Value{Type: t, Bytes: b}, nil
	case Inet:
		ip, ok := v.(net.IP)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected net.IP, got %T", v)
		}
		if v4 := ip.To4(); v4 != nil {
			return Value{Type: t, Bytes: []byte(v4)}, nil
		}
		return Value{Type: t, Bytes: []byte(ip.To16())}, nil
	case List, Set:
		return marshalList(t, v)
	case Map:
		return marshalMap(t, v)
	case Tuple:
		return marshalTuple(t, v)
	case Udt:
		return marshalUDT(t, v)
	case Vector:
		return marshalVector(t, v)
	case Custom:
		b, ok := v.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("cqltype: expected []byte for Custom type %s, got %T", t.Custom, v)
		}
		if b == nil {
			return Null(t), nil
		}
		return Value{Type: t, Bytes: b}, nil
	default:
		return Value{}, fmt.Errorf("cqltype: unsupported type id %v", t.ID)
	}
}

// Unmarshal decodes val into the Go native value appropriate for its Type,
// returned as interface{}; out is nil for a NULL value.
func Unmarshal(val Value) (interface{}, error) {
	if val.IsNull {
		return nil, nil
	}
	b := val.Bytes
	switch val.Type.ID {
	case Ascii, Text:
		return string(b), nil
	case Blob, Custom:
		return b, nil
	case Boolean:
		if len(b) != 1 {
			return nil, fmt.Errorf("cqltype: boolean: expected 1 byte, got %d", len(b))
		}
		return b[0] != 0, nil
	case TinyInt:
		if len(b) != 1 {
			return nil, fmt.Errorf("cqltype: tinyint: expected 1 byte, got %d", len(b))
		}
		return int8(b[0]), nil
	case SmallInt:
		if len(b) != 2 {
			return nil, fmt.Errorf("cqltype: smallint: expected 2 bytes, got %d", len(b))
		}
		return int16(binary.BigEndian.Uint16(b)), nil
	case Int:
		if len(b) != 4 {
			return nil, fmt.Errorf("cqltype: int: expected 4 bytes, got %d", len(b))
		}
		return int32(binary.BigEndian.Uint32(b)), nil
	case BigInt, Counter:
		if len(b) != 8 {
			return nil, fmt.Errorf("cqltype: bigint: expected 8 bytes, got %d", len(b))
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case Float:
		if len(b) != 4 {
			return nil, fmt.Errorf("cqltype: float: expected 4 bytes, got %d", len(b))
		}
		return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
	case Double:
		if len(b) != 8 {
			return nil, fmt.Errorf("cqltype: double: expected 8 bytes, got %d", len(b))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case Varint:
		return decodeVarint(b), nil
	case DecimalType:
		if len(b) < 4 {
			return nil, fmt.Errorf("cqltype: decimal: too short")
		}
		scale := int32(binary.BigEndian.Uint32(b[:4]))
		return Decimal{Unscaled: decodeVarint(b[4:]), Scale: scale}, nil
	case Timestamp:
		if len(b) != 8 {
			return nil, fmt.Errorf("cqltype: timestamp: expected 8 bytes, got %d", len(b))
		}
		ms := int64(binary.BigEndian.Uint64(b))
		return time.UnixMilli(ms).UTC(), nil
	case Date:
		if len(b) != 4 {
			return nil, fmt.Errorf("cqltype: date: expected 4 bytes, got %d", len(b))
		}
		days := int32(binary.BigEndian.Uint32(b) - dateBias)
		return time.Unix(int64(days)*86400, 0).UTC(), nil
	case Time:
		if len(b) != 8 {
			return nil, fmt.Errorf("cqltype: time: expected 8 bytes, got %d", len(b))
		}
		return time.Duration(int64(binary.BigEndian.Uint64(b))), nil
	case DurationType:
		return DecodeDuration(b)
	case Uuid, TimeUuid:
		if len(b) != 16 {
			return nil, fmt.Errorf("cqltype: uuid: expected 16 bytes, got %d", len(b))
		}
		var u UUID
		copy(u[:], b)
		return u, nil
	case Inet:
		if len(b) != 4 && len(b) != 16 {
			return nil, fmt.Errorf("cqltype: inet: invalid length %d", len(b))
		}
		return net.IP(append([]byte(nil), b...)), nil
	case List, Set:
		return unmarshalList(val)
	case Map:
		return unmarshalMap(val)
	case Tuple:
		return unmarshalTuple(val)
	case Udt:
		return unmarshalUDT(val)
	case Vector:
		return unmarshalVector(val)
	default:
		return nil, fmt.Errorf("cqltype: unsupported type id %v", val.Type.ID)
	}
}

// Decimal is the Go-native form of the CQL decimal type: unscaled * 10^-scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

const dateBias uint32 = 1 << 31
const nsPerDay = int64(24 * time.Hour)

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cqltype: expected an integer, got %T", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch f := v.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	default:
		return 0, fmt.Errorf("cqltype: expected a float, got %T", v)
	}
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case big.Int:
		return &n, nil
	case int64:
		return big.NewInt(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	default:
		return nil, fmt.Errorf("cqltype: expected *big.Int for Varint, got %T", v)
	}
}

// encodeVarint produces the CQL varint wire form: a two's-complement
// big-endian byte string, the same representation `gocql`'s marshal.go uses
// for TypeVarint.
func encodeVarint(i *big.Int) []byte {
	if i.Sign() == 0 {
		return []byte{0}
	}
	if i.Sign() > 0 {
		b := i.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Two's complement for negative values.
	length := (i.BitLen() + 8) / 8
	twos := new(big.Int).Add(i, new(big.Int).Lsh(big.NewInt(1), uint(length*8)))
	b := twos.Bytes()
	for len(b) < length {
		b = append([]byte{0}, b...)
	}
	return b
}

func decodeVarint(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
