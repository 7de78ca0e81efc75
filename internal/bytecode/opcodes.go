// Package bytecode defines the cedar instruction format: a byte-code
// stream with width-fixed immediates, a constant pool, and per-instruction
// debug info. The opcode table below is a closed, deliberately small set —
// no string/array/map/concurrency builtins mixed into the opcode space;
// those higher-level operations are ordinary native calls in cedar, not
// opcodes, keeping the dispatch loop itself small and stable.
package bytecode

// OpCode is a single-byte instruction tag.
type OpCode byte

const (
	OpNOP OpCode = iota
	OpNIL
	OpCONST       // u64 constant-pool index
	OpFLOAT       // f64 immediate
	OpINT         // i64 immediate
	OpLOAD_LOCAL  // u64 closure slot
	OpSET_LOCAL   // u64 closure slot
	OpLOAD_GLOBAL // u64 constant-pool index (symbol)
	OpSET_GLOBAL  // u64 constant-pool index (symbol)
	OpCONS
	OpCALL         // u64 argument count
	OpMAKE_FUNC    // u64 constant-pool index (lambda template)
	OpMAKE_CLOSURE // no immediate; installs the active frame's captured upvalues into their slots
	OpARG_POP      // u64 closure slot
	OpRETURN
	OpSKIP
	OpJMP          // i32 absolute offset
	OpJMP_IF_FALSE // i32 absolute offset
	OpEXIT
)

var names = map[OpCode]string{
	OpNOP: "NOP", OpNIL: "NIL", OpCONST: "CONST", OpFLOAT: "FLOAT", OpINT: "INT",
	OpLOAD_LOCAL: "LOAD_LOCAL", OpSET_LOCAL: "SET_LOCAL",
	OpLOAD_GLOBAL: "LOAD_GLOBAL", OpSET_GLOBAL: "SET_GLOBAL",
	OpCONS: "CONS", OpCALL: "CALL", OpMAKE_FUNC: "MAKE_FUNC",
	OpMAKE_CLOSURE: "MAKE_CLOSURE", OpARG_POP: "ARG_POP", OpRETURN: "RETURN",
	OpSKIP: "SKIP", OpJMP: "JMP", OpJMP_IF_FALSE: "JMP_IF_FALSE", OpEXIT: "EXIT",
}

func (op OpCode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "UNKNOWN"
}
