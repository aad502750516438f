package frame

import (
	"fmt"
	"math/bits"
)

// Signed vint encoding used by the Duration type.
// https://github.com/apache/cassandra/blob/trunk/doc/native_protocol_v5.spec#L393-L409

// DecodeVInt decodes a zig-zag vint from data and returns the value and the
// number of bytes consumed from the front of data.
func DecodeVInt(data []byte) (value int64, length int, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("frame: decode vint: not enough bytes")
	}
	extraBytes := bits.LeadingZeros8(^data[0])
	rest := data[1:]
	if len(rest) < extraBytes {
		return 0, 0, fmt.Errorf("frame: decode vint: not enough bytes")
	}
	uvalue := uint64(data[0]) & (uint64(0xff) >> extraBytes)
	for i := 0; i < extraBytes; i++ {
		uvalue = (uvalue << 8) | uint64(rest[i])
	}
	length = 1 + extraBytes
	value = int64((uvalue >> 1) ^ -(uvalue & 1))
	return value, length, nil
}

// AppendVInt zig-zag encodes value and appends it to dst.
func AppendVInt(dst []byte, value int64) []byte {
	if value == 0 {
		return append(dst, 0)
	}
	uvalue := uint64((value >> 63) ^ (value << 1))
	var data [9]byte
	i := 8
	for i > 0 && uvalue > 0 {
		data[i] = byte(uvalue & 0xff)
		i--
		uvalue >>= 8
	}
	lz := bits.LeadingZeros8(data[i+1])
	extraBytes := 8 - i
	if lz > extraBytes-1 {
		extraBytes--
		i++
	}
	data[i] |= ^(byte(0xff) >> extraBytes)
	return append(dst, data[i:]...)
}
