package frame

func (b *Buffer) Write(v Bytes) { _, _ = b.buf.Write(v) }

func (b *Buffer) WriteByte(v Byte) { _ = b.buf.WriteByte(v) }

func (b *Buffer) WriteShort(v Short) {
	_, _ = b.buf.Write([]byte{byte(v >> 8), byte(v)})
}

func (b *Buffer) WriteStreamID(v StreamID) {
	_, _ = b.buf.Write([]byte{byte(v >> 8), byte(v)})
}

func (b *Buffer) WriteInt(v Int) {
	_, _ = b.buf.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (b *Buffer) WriteLong(v Long) {
	_, _ = b.buf.Write([]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	})
}

func (b *Buffer) WriteOpCode(v OpCode)         { b.WriteByte(v) }
func (b *Buffer) WriteHeaderFlags(v HeaderFlags) { b.WriteByte(v) }
func (b *Buffer) WriteQueryFlags(v QueryFlags) { b.WriteByte(v) }
func (b *Buffer) WriteResultFlags(v ResultFlags) { b.WriteInt(v) }
func (b *Buffer) WritePreparedFlags(v PreparedFlags) { b.WriteInt(v) }
func (b *Buffer) WriteConsistency(v Consistency) { b.WriteShort(v) }

func (b *Buffer) WriteUUID(v [16]byte) { b.Write(v[:]) }

// WriteBytes writes an [bytes]: nil encodes as NULL (-1 length).
func (b *Buffer) WriteBytes(v Bytes) {
	if v == nil {
		b.WriteInt(NullLength)
		return
	}
	b.WriteInt(Int(len(v)))
	b.Write(v)
}

func (b *Buffer) WriteShortBytes(v Bytes) {
	b.WriteShort(Short(len(v)))
	b.Write(v)
}

func (b *Buffer) WriteValue(v Value) {
	b.WriteInt(v.N)
	if v.N > 0 {
		b.Write(v.Bytes)
	}
}

func (b *Buffer) WriteInet(v Inet) {
	b.WriteByte(Byte(len(v.IP)))
	b.Write(v.IP)
	b.WriteInt(v.Port)
}

func (b *Buffer) WriteString(s string) {
	b.WriteShort(Short(len(s)))
	_, _ = b.buf.WriteString(s)
}

func (b *Buffer) WriteLongString(s string) {
	b.WriteInt(Int(len(s)))
	_, _ = b.buf.WriteString(s)
}

func (b *Buffer) WriteStringList(l StringList) {
	b.WriteShort(Short(len(l)))
	for _, s := range l {
		b.WriteString(s)
	}
}

func (b *Buffer) WriteStringMap(m StringMap) {
	b.WriteShort(Short(len(m)))
	for k, v := range m {
		b.WriteString(k)
		b.WriteString(v)
	}
}

func (b *Buffer) WriteBytesMap(m map[string]Bytes) {
	b.WriteShort(Short(len(m)))
	for k, v := range m {
		b.WriteString(k)
		b.WriteBytes(v)
	}
}

func (b *Buffer) WriteQueryOptions(q QueryOptions) {
	b.WriteConsistency(q.Consistency)
	b.WriteQueryFlags(q.Flags)
	if q.Flags&FlagValues != 0 {
		b.WriteShort(Short(len(q.Values)))
		for i := range q.Values {
			if q.Flags&FlagWithNamesForValues != 0 {
				b.WriteString(q.Names[i])
			}
			b.WriteValue(q.Values[i])
		}
	}
	if q.Flags&FlagPageSize != 0 {
		b.WriteInt(q.PageSize)
	}
	if q.Flags&FlagWithPagingState != 0 {
		b.WriteBytes(q.PagingState)
	}
	if q.Flags&FlagWithSerialConsistency != 0 {
		b.WriteConsistency(q.SerialConsistency)
	}
	if q.Flags&FlagWithDefaultTimestamp != 0 {
		b.WriteLong(q.Timestamp)
	}
}
