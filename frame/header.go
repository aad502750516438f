package frame

// Header is the 9-byte frame header that precedes every frame body.
// https://github.com/apache/cassandra/blob/trunk/doc/native_protocol_v4.spec#L101
type Header struct {
	Version  Byte
	Flags    HeaderFlags
	StreamID StreamID
	OpCode   OpCode
	Length   Int
}

// RequestVersion ORs in the request direction bit (high bit clear) on top
// of Version; ResponseVersion sets it, matching the protocol's
// direction-in-version-byte convention.
const responseBit Byte = 0x80

func RequestVersion() Byte  { return Version }
func ResponseVersion() Byte { return Version | responseBit }

func (h Header) IsResponse() bool { return h.Version&responseBit != 0 }

func ParseHeader(b *Buffer) Header {
	return Header{
		Version:  b.ReadByte(),
		Flags:    b.ReadHeaderFlags(),
		StreamID: b.ReadStreamID(),
		OpCode:   b.ReadOpCode(),
		Length:   b.ReadInt(),
	}
}

func (h Header) WriteTo(b *Buffer) {
	b.WriteByte(h.Version)
	b.WriteHeaderFlags(h.Flags)
	b.WriteStreamID(h.StreamID)
	b.WriteOpCode(h.OpCode)
	b.WriteInt(h.Length)
}
