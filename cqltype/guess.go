package cqltype

import (
	"math/big"
	"net"
	"time"
)

// Guess infers a Type for an untyped Go value bound to a Simple statement
// (one without prepared-statement column metadata to consult), per
// spec.md §4.2's type-guessing table. It returns ok=false for ambiguous or
// unsupported Go types, where the caller must bind a typed Value instead.
func Guess(v interface{}) (Type, bool) {
	switch v.(type) {
	case nil:
		return Type{}, false
	case bool:
		return Type{ID: Boolean}, true
	case int8:
		return Type{ID: TinyInt}, true
	case int16:
		return Type{ID: SmallInt}, true
	case int32:
		return Type{ID: Int}, true
	case int, int64:
		return Type{ID: BigInt}, true
	case uint8:
		return Type{ID: TinyInt}, true
	case uint16:
		return Type{ID: SmallInt}, true
	case uint32:
		return Type{ID: Int}, true
	case uint, uint64:
		return Type{ID: BigInt}, true
	case float32:
		return Type{ID: Float}, true
	case float64:
		return Type{ID: Double}, true
	case string:
		return Type{ID: Text}, true
	case []byte:
		return Type{ID: Blob}, true
	case *big.Int, big.Int:
		return Type{ID: Varint}, true
	case Decimal:
		return Type{ID: DecimalType}, true
	case time.Time:
		return Type{ID: Timestamp}, true
	case time.Duration:
		return Type{ID: Time}, true
	case Duration:
		return Type{ID: DurationType}, true
	case UUID:
		return Type{ID: Uuid}, true
	case net.IP:
		return Type{ID: Inet}, true
	default:
		return Type{}, false
	}
}
