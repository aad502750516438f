package frame

import "fmt"

// maxBytesSize bounds a single [bytes] allocation against a corrupted or
// malicious length prefix.
const maxBytesSize = 256 << 20

func (b *Buffer) readByte() Byte {
	if b.rdErr != nil {
		return 0
	}
	v, err := b.buf.ReadByte()
	if err != nil {
		b.rdErr = fmt.Errorf("frame: read byte: %w", err)
	}
	return v
}

func (b *Buffer) readInto(p []byte) {
	if b.rdErr != nil {
		return
	}
	n, err := b.buf.Read(p)
	if err != nil {
		b.rdErr = fmt.Errorf("frame: read: %w", err)
		return
	}
	if n != len(p) {
		b.rdErr = fmt.Errorf("frame: unexpected end of buffer")
	}
}

func (b *Buffer) readCopy(n int) Bytes {
	if b.rdErr != nil {
		return nil
	}
	if n < 0 || n > maxBytesSize {
		b.rdErr = fmt.Errorf("frame: bytes length out of range: %d", n)
		return nil
	}
	p := make(Bytes, n)
	b.readInto(p)
	return p
}

func (b *Buffer) ReadByte() Byte { return b.readByte() }

func (b *Buffer) ReadShort() Short {
	return Short(b.readByte())<<8 | Short(b.readByte())
}

func (b *Buffer) ReadStreamID() StreamID {
	return StreamID(b.readByte())<<8 | StreamID(b.readByte())
}

func (b *Buffer) ReadInt() Int {
	var a [4]byte
	b.readInto(a[:])
	return Int(a[0])<<24 | Int(a[1])<<16 | Int(a[2])<<8 | Int(a[3])
}

func (b *Buffer) ReadLong() Long {
	var a [8]byte
	b.readInto(a[:])
	return Long(a[0])<<56 | Long(a[1])<<48 | Long(a[2])<<40 | Long(a[3])<<32 |
		Long(a[4])<<24 | Long(a[5])<<16 | Long(a[6])<<8 | Long(a[7])
}

func (b *Buffer) ReadOpCode() OpCode { return b.readByte() }

func (b *Buffer) ReadUUID() [16]byte {
	var u [16]byte
	b.readInto(u[:])
	return u
}

func (b *Buffer) ReadHeaderFlags() HeaderFlags { return b.readByte() }
func (b *Buffer) ReadQueryFlags() QueryFlags   { return b.readByte() }
func (b *Buffer) ReadResultFlags() ResultFlags { return b.ReadInt() }
func (b *Buffer) ReadPreparedFlags() PreparedFlags { return b.ReadInt() }
func (b *Buffer) ReadErrorCode() ErrorCode     { return b.ReadInt() }

func (b *Buffer) ReadConsistency() Consistency { return b.ReadShort() }

// ReadBytes reads an [bytes]: an int32 length followed by that many bytes,
// or no bytes at all when the length is negative (NULL).
func (b *Buffer) ReadBytes() Bytes {
	n := b.ReadInt()
	if n < 0 {
		return nil
	}
	return b.readCopy(int(n))
}

func (b *Buffer) ReadShortBytes() ShortBytes {
	return b.readCopy(int(b.ReadShort()))
}

// ReadValue reads an [value]: N == -1 is NULL, N == -2 is NOT SET.
func (b *Buffer) ReadValue() Value {
	n := b.ReadInt()
	v := Value{N: n}
	if n > 0 {
		v.Bytes = b.readCopy(int(n))
	}
	return v
}

func (b *Buffer) ReadInet() Inet {
	n := b.readByte()
	return Inet{IP: b.readCopy(int(n)), Port: b.ReadInt()}
}

func (b *Buffer) ReadString() string {
	return string(b.readCopy(int(b.ReadShort())))
}

func (b *Buffer) ReadLongString() string {
	return string(b.readCopy(int(b.ReadInt())))
}

func (b *Buffer) ReadStringList() StringList {
	n := b.ReadShort()
	l := make(StringList, 0, n)
	for i := Short(0); i < n; i++ {
		l = append(l, b.ReadString())
	}
	return l
}

func (b *Buffer) ReadStringMap() StringMap {
	n := b.ReadShort()
	m := make(StringMap, n)
	for i := Short(0); i < n; i++ {
		k := b.ReadString()
		m[k] = b.ReadString()
	}
	return m
}

func (b *Buffer) ReadBytesMap() map[string]Bytes {
	n := b.ReadShort()
	m := make(map[string]Bytes, n)
	for i := Short(0); i < n; i++ {
		k := b.ReadString()
		m[k] = b.ReadBytes()
	}
	return m
}

func (b *Buffer) ReadOption() Option {
	id := OptionID(b.ReadShort())
	switch id {
	case OptionCustom:
		return Option{ID: id, Custom: b.ReadString()}
	case OptionList, OptionSet:
		elem := b.ReadOption()
		if id == OptionList {
			return Option{ID: id, List: &elem}
		}
		return Option{ID: id, Set: &elem}
	case OptionMap:
		k := b.ReadOption()
		v := b.ReadOption()
		return Option{ID: id, Map: &[2]Option{k, v}}
	case OptionUDT:
		ks := b.ReadString()
		name := b.ReadString()
		n := b.ReadShort()
		fn := make([]string, n)
		ft := make([]Option, n)
		for i := range fn {
			fn[i] = b.ReadString()
			ft[i] = b.ReadOption()
		}
		return Option{ID: id, UDT: &UDTOption{Keyspace: ks, Name: name, FieldNames: fn, FieldTypes: ft}}
	case OptionTuple:
		n := b.ReadShort()
		ol := make([]Option, n)
		for i := range ol {
			ol[i] = b.ReadOption()
		}
		return Option{ID: id, Tuple: ol}
	case OptionVector:
		elem := b.ReadOption()
		dim := b.ReadInt()
		return Option{ID: id, Vector: &VectorOption{Element: elem, Dimensions: dim}}
	default:
		return Option{ID: id}
	}
}

func (b *Buffer) ReadColumnSpec(withGlobalSpec bool) ColumnSpec {
	if !withGlobalSpec {
		return ColumnSpec{
			Keyspace: b.ReadString(),
			Table:    b.ReadString(),
			Name:     b.ReadString(),
			Type:     b.ReadOption(),
		}
	}
	return ColumnSpec{Name: b.ReadString(), Type: b.ReadOption()}
}

const maxColumnSpecSliceSize = 1_230_770

func (b *Buffer) ReadResultMetadata() ResultMetadata {
	r := ResultMetadata{
		Flags:        b.ReadResultFlags(),
		ColumnsCount: b.ReadInt(),
	}
	if r.Flags&ResultHasMorePages != 0 {
		r.PagingState = b.ReadBytes()
	}
	if r.Flags&ResultNoMetadata != 0 {
		return r
	}
	global := r.Flags&ResultGlobalTablesSpec != 0
	if global {
		r.GlobalKeyspace = b.ReadString()
		r.GlobalTable = b.ReadString()
	}
	if r.ColumnsCount < 0 || r.ColumnsCount > maxColumnSpecSliceSize {
		b.rdErr = fmt.Errorf("frame: column count out of range: %d", r.ColumnsCount)
		return ResultMetadata{}
	}
	r.Columns = make([]ColumnSpec, r.ColumnsCount)
	for i := range r.Columns {
		r.Columns[i] = b.ReadColumnSpec(global)
	}
	return r
}

const maxShortSliceSize = 64_000_000

func (b *Buffer) ReadPreparedMetadata() PreparedMetadata {
	p := PreparedMetadata{
		Flags:        b.ReadPreparedFlags(),
		ColumnsCount: b.ReadInt(),
		PkCount:      b.ReadInt(),
	}
	if p.PkCount < 0 || p.PkCount > maxShortSliceSize {
		b.rdErr = fmt.Errorf("frame: pk count out of range: %d", p.PkCount)
		return PreparedMetadata{}
	}
	p.PkIndexes = make([]Short, p.PkCount)
	for i := range p.PkIndexes {
		p.PkIndexes[i] = b.ReadShort()
	}
	global := p.Flags&ResultGlobalTablesSpec != 0
	if global {
		p.GlobalKeyspace = b.ReadString()
		p.GlobalTable = b.ReadString()
	}
	if p.ColumnsCount < 0 || p.ColumnsCount > maxColumnSpecSliceSize {
		b.rdErr = fmt.Errorf("frame: column count out of range: %d", p.ColumnsCount)
		return PreparedMetadata{}
	}
	p.Columns = make([]ColumnSpec, p.ColumnsCount)
	for i := range p.Columns {
		p.Columns[i] = b.ReadColumnSpec(global)
	}
	return p
}
