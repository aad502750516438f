// Package frame implements the CQL native protocol v4 wire format: frame
// headers, opcodes, and the primitive type encodings the rest of the driver
// builds on.
package frame

// Generic wire types from the CQL binary protocol.
// https://github.com/apache/cassandra/blob/trunk/doc/native_protocol_v4.spec#L214-L266
type (
	Int        = int32
	Long       = int64
	Short      = uint16
	Byte       = byte
	StreamID   = int16
	Bytes      = []byte
	ShortBytes = []byte
	StringList = []string
	StringMap  = map[string]string
)

// Version is the protocol version byte. Only v4 is supported; see
// DESIGN.md's Open Question decision on protocol-version scope.
const Version Byte = 0x04

// HeaderSize is the number of bytes in a frame header.
const HeaderSize = 9

type HeaderFlags = Byte

const (
	FlagCompress      HeaderFlags = 0x01
	FlagTracing       HeaderFlags = 0x02
	FlagCustomPayload HeaderFlags = 0x04
	FlagWarning       HeaderFlags = 0x08
)

// OpCode identifies the frame body format.
// https://github.com/apache/cassandra/blob/trunk/doc/native_protocol_v4.spec#L183-L201
type OpCode = Byte

const (
	OpError         OpCode = 0x00
	OpStartup       OpCode = 0x01
	OpReady         OpCode = 0x02
	OpAuthenticate  OpCode = 0x03
	OpOptions       OpCode = 0x05
	OpSupported     OpCode = 0x06
	OpQuery         OpCode = 0x07
	OpResult        OpCode = 0x08
	OpPrepare       OpCode = 0x09
	OpExecute       OpCode = 0x0A
	OpRegister      OpCode = 0x0B
	OpEvent         OpCode = 0x0C
	OpBatch         OpCode = 0x0D
	OpAuthChallenge OpCode = 0x0E
	OpAuthResponse  OpCode = 0x0F
	OpAuthSuccess   OpCode = 0x10
)

// Consistency is a CQL consistency level.
type Consistency = Short

const (
	ConsistencyAny         Consistency = 0x0000
	ConsistencyOne         Consistency = 0x0001
	ConsistencyTwo         Consistency = 0x0002
	ConsistencyThree       Consistency = 0x0003
	ConsistencyQuorum      Consistency = 0x0004
	ConsistencyAll         Consistency = 0x0005
	ConsistencyLocalQuorum Consistency = 0x0006
	ConsistencyEachQuorum  Consistency = 0x0007
	ConsistencySerial      Consistency = 0x0008
	ConsistencyLocalSerial Consistency = 0x0009
	ConsistencyLocalOne    Consistency = 0x000A
)

// ErrorCode is a server-reported error code, see cqlerr for the full taxonomy.
type ErrorCode = Int

const (
	ErrServer                ErrorCode = 0x0000
	ErrProtocol              ErrorCode = 0x000A
	ErrAuthentication        ErrorCode = 0x0100
	ErrUnavailable           ErrorCode = 0x1000
	ErrOverloaded            ErrorCode = 0x1001
	ErrIsBootstrapping       ErrorCode = 0x1002
	ErrTruncateError         ErrorCode = 0x1003
	ErrWriteTimeout          ErrorCode = 0x1100
	ErrReadTimeout           ErrorCode = 0x1200
	ErrReadFailure           ErrorCode = 0x1300
	ErrFunctionFailure       ErrorCode = 0x1400
	ErrWriteFailure          ErrorCode = 0x1500
	ErrSyntaxError           ErrorCode = 0x2000
	ErrUnauthorized          ErrorCode = 0x2100
	ErrInvalid               ErrorCode = 0x2200
	ErrConfigError           ErrorCode = 0x2300
	ErrAlreadyExists         ErrorCode = 0x2400
	ErrUnprepared            ErrorCode = 0x2500
)

// QueryFlags control which optional fields follow a QUERY/EXECUTE body.
type QueryFlags = Byte

const (
	FlagValues                QueryFlags = 0x01
	FlagSkipMetadata          QueryFlags = 0x02
	FlagPageSize              QueryFlags = 0x04
	FlagWithPagingState       QueryFlags = 0x08
	FlagWithSerialConsistency QueryFlags = 0x10
	FlagWithDefaultTimestamp  QueryFlags = 0x20
	FlagWithNamesForValues    QueryFlags = 0x40
)

// ResultFlags and PreparedFlags qualify a RESULT frame's metadata.
type (
	ResultFlags   = Int
	PreparedFlags = Int
)

const (
	ResultGlobalTablesSpec ResultFlags = 0x0001
	ResultHasMorePages     ResultFlags = 0x0002
	ResultNoMetadata       ResultFlags = 0x0004
)

// ResultKind identifies which RESULT body variant follows.
type ResultKind = Int

const (
	ResultVoid         ResultKind = 0x0001
	ResultRows         ResultKind = 0x0002
	ResultSetKeyspace  ResultKind = 0x0003
	ResultPrepared     ResultKind = 0x0004
	ResultSchemaChange ResultKind = 0x0005
)

// BatchTypeFlag distinguishes logged/unlogged/counter batches.
type BatchTypeFlag = Byte

const (
	BatchLogged   BatchTypeFlag = 0
	BatchUnlogged BatchTypeFlag = 1
	BatchCounter  BatchTypeFlag = 2
)

// Value represents the length-prefixed [value] wire form: N >= 0 is a byte
// count, N == -1 is NULL, N == -2 is NOT SET (unbound, EXECUTE-only).
type Value struct {
	N     Int
	Bytes Bytes
}

const (
	NullLength   Int = -1
	NotSetLength Int = -2
)

// OptionID identifies a CQL type on the wire.
// https://github.com/apache/cassandra/blob/trunk/doc/native_protocol_v4.spec#L615-L658
type OptionID Short

const (
	OptionCustom    OptionID = 0x0000
	OptionAscii     OptionID = 0x0001
	OptionBigInt    OptionID = 0x0002
	OptionBlob      OptionID = 0x0003
	OptionBoolean   OptionID = 0x0004
	OptionCounter   OptionID = 0x0005
	OptionDecimal   OptionID = 0x0006
	OptionDouble    OptionID = 0x0007
	OptionFloat     OptionID = 0x0008
	OptionInt       OptionID = 0x0009
	OptionTimestamp OptionID = 0x000B
	OptionUUID      OptionID = 0x000C
	OptionVarchar   OptionID = 0x000D
	OptionVarint    OptionID = 0x000E
	OptionTimeUUID  OptionID = 0x000F
	OptionInet      OptionID = 0x0010
	OptionDate      OptionID = 0x0011
	OptionTime      OptionID = 0x0012
	OptionSmallInt  OptionID = 0x0013
	OptionTinyInt   OptionID = 0x0014
	OptionDuration  OptionID = 0x0015
	OptionList      OptionID = 0x0020
	OptionMap       OptionID = 0x0021
	OptionSet       OptionID = 0x0022
	OptionUDT       OptionID = 0x0030
	OptionTuple     OptionID = 0x0031
	OptionVector    OptionID = 0x0032 // ScyllaDB/Cassandra 5 extension, see spec.md §4.2
)

// Option is a type descriptor as it appears in result/prepared metadata.
type Option struct {
	ID     OptionID
	Custom string       // OptionCustom
	List   *Option      // OptionList
	Map    *[2]Option   // OptionMap: [key, value]
	Set    *Option      // OptionSet
	UDT    *UDTOption   // OptionUDT
	Tuple  []Option     // OptionTuple
	Vector *VectorOption // OptionVector
}

type UDTOption struct {
	Keyspace   string
	Name       string
	FieldNames []string
	FieldTypes []Option
}

type VectorOption struct {
	Element    Option
	Dimensions Int
}

// Inet is the wire form of an IP address plus port.
type Inet struct {
	IP   Bytes
	Port Int
}

// ColumnSpec describes one result/prepared-metadata column.
type ColumnSpec struct {
	Keyspace string
	Table    string
	Name     string
	Type     Option
}

// ResultMetadata is the metadata section of a RESULT/Rows or PREPARED frame.
type ResultMetadata struct {
	Flags          ResultFlags
	ColumnsCount   Int
	PagingState    Bytes
	GlobalKeyspace string
	GlobalTable    string
	Columns        []ColumnSpec
}

// PreparedMetadata additionally carries the bind-marker partition-key indexes.
type PreparedMetadata struct {
	Flags          PreparedFlags
	ColumnsCount   Int
	PkCount        Int
	PkIndexes      []Short
	GlobalKeyspace string
	GlobalTable    string
	Columns        []ColumnSpec
}

// QueryOptions are the optional fields of a QUERY/EXECUTE body.
type QueryOptions struct {
	Consistency       Consistency
	Flags             QueryFlags
	Values            []Value
	Names             StringList
	PageSize          Int
	PagingState       Bytes
	SerialConsistency Consistency
	Timestamp         Long
}

// SetFlags derives Flags from which optional fields are populated, mirroring
// the teacher's QueryOptions.SetFlags.
func (q *QueryOptions) SetFlags() {
	if q.Values != nil {
		q.Flags |= FlagValues
	}
	if q.Names != nil {
		q.Flags |= FlagWithNamesForValues
	}
	if q.PageSize != 0 {
		q.Flags |= FlagPageSize
	}
	if q.PagingState != nil {
		q.Flags |= FlagWithPagingState
	}
	if q.SerialConsistency != 0 {
		q.Flags |= FlagWithSerialConsistency
	}
	if q.Timestamp != 0 {
		q.Flags |= FlagWithDefaultTimestamp
	}
}

// WriteType names the kind of write that timed out or failed, per RESULT/ERROR bodies.
type WriteType = string

const (
	WriteSimple        WriteType = "SIMPLE"
	WriteBatch         WriteType = "BATCH"
	WriteUnloggedBatch WriteType = "UNLOGGED_BATCH"
	WriteCounter       WriteType = "COUNTER"
	WriteBatchLog      WriteType = "BATCH_LOG"
	WriteCAS           WriteType = "CAS"
	WriteView          WriteType = "VIEW"
	WriteCDC           WriteType = "CDC"
)

// EventType names a REGISTER/EVENT subscription kind.
type EventType = string

const (
	EventTopologyChange EventType = "TOPOLOGY_CHANGE"
	EventStatusChange   EventType = "STATUS_CHANGE"
	EventSchemaChange   EventType = "SCHEMA_CHANGE"
)
