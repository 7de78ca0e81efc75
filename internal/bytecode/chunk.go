package bytecode

import "encoding/binary"

// DebugInfo stores the source location for one bytecode instruction: one
// entry per byte written, so any instruction offset resolves directly to
// a line/column without a separate line-table search.
type DebugInfo struct {
	Line   int
	Column int
	File   string
}

// Chunk is a compiled code unit: a byte stream, a constant pool, and
// per-byte debug info. Constants are untyped so this package never needs
// to import the value representation it doesn't know about (rt.Value is
// stored here as interface{}).
type Chunk struct {
	Code      []byte
	Constants []interface{}
	Debug     []DebugInfo
	// StackSize is the declared maximum operand-stack depth used by this
	// chunk, computed by the compiler's scope analysis (§3.5 "declared
	// stack depth").
	StackSize int

	// TryRegions holds the `try`/`catch` handler table for this chunk.
	// There is no TRY opcode: the compiler records which byte ranges are
	// protected and the VM consults this table on unwind (§4.8 "unwinds
	// frames until either a try handler slot is encountered").
	TryRegions []TryRegion
}

// TryRegion marks [Start,End) as protected by a handler starting at
// HandlerPC, which expects the raised error value to be installed in
// closure slot Slot before execution resumes there.
type TryRegion struct {
	Start, End, HandlerPC int
	Slot                  int
}

func NewChunk() *Chunk {
	return &Chunk{}
}

func (c *Chunk) emit(b byte, d DebugInfo) {
	c.Code = append(c.Code, b)
	c.Debug = append(c.Debug, d)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, d DebugInfo) int {
	pos := len(c.Code)
	c.emit(byte(op), d)
	return pos
}

func (c *Chunk) WriteU64(v uint64, d DebugInfo) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	for _, b := range buf {
		c.emit(b, d)
	}
}

func (c *Chunk) WriteI64(v int64, d DebugInfo) { c.WriteU64(uint64(v), d) }

func (c *Chunk) WriteF64(v float64, d DebugInfo) {
	c.WriteU64(mathFloatBits(v), d)
}

// WriteI32 / PatchI32 handle the 4-byte signed jump offsets used by
// JMP/JMP_IF_FALSE.
func (c *Chunk) WriteI32(v int32, d DebugInfo) int {
	pos := len(c.Code)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	for _, b := range buf {
		c.emit(b, d)
	}
	return pos
}

func (c *Chunk) PatchI32(pos int, v int32) {
	binary.BigEndian.PutUint32(c.Code[pos:pos+4], uint32(v))
}

// AddConstant appends val to the constant pool and returns its index.
func (c *Chunk) AddConstant(val interface{}) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

func (c *Chunk) ReadU64(ip int) uint64 {
	return binary.BigEndian.Uint64(c.Code[ip : ip+8])
}

func (c *Chunk) ReadI64(ip int) int64 { return int64(c.ReadU64(ip)) }

func (c *Chunk) ReadF64(ip int) float64 {
	return mathFloatFromBits(c.ReadU64(ip))
}

func (c *Chunk) ReadI32(ip int) int32 {
	return int32(binary.BigEndian.Uint32(c.Code[ip : ip+4]))
}

func (c *Chunk) GetDebugInfo(ip int) DebugInfo {
	if ip >= 0 && ip < len(c.Debug) {
		return c.Debug[ip]
	}
	return DebugInfo{}
}

func (c *Chunk) Len() int { return len(c.Code) }
