package bytecode

// Opcode values double as the on-disk encoding, so they are fixed and
// grouped by range: 0x0x loads, 0x1x arithmetic, 0x2x comparison,
// 0x3x logic, 0x4x jumps, 0x5x calls, 0x6x stack, 0x7x io.
type Opcode byte

const (
	LoadConstant Opcode = 0x01
	LoadLocal    Opcode = 0x02
	StoreLocal   Opcode = 0x03
	LoadGlobal   Opcode = 0x04
	StoreGlobal  Opcode = 0x05

	Add      Opcode = 0x10
	Subtract Opcode = 0x11
	Multiply Opcode = 0x12
	Divide   Opcode = 0x13
	Modulo   Opcode = 0x14
	Negate   Opcode = 0x15

	Equal        Opcode = 0x20
	NotEqual     Opcode = 0x21
	Less         Opcode = 0x22
	LessEqual    Opcode = 0x23
	Greater      Opcode = 0x24
	GreaterEqual Opcode = 0x25

	And Opcode = 0x30
	Or  Opcode = 0x31
	Not Opcode = 0x32

	Jump        Opcode = 0x40
	JumpIfFalse Opcode = 0x41
	JumpIfTrue  Opcode = 0x42

	Call        Opcode = 0x50
	Return      Opcode = 0x51
	ReturnValue Opcode = 0x52
	CallMethod  Opcode = 0x53
	CallBuiltin Opcode = 0x54

	Pop       Opcode = 0x60
	Duplicate Opcode = 0x61
	Swap      Opcode = 0x62

	Print Opcode = 0x70

	NewArray    Opcode = 0x80
	NewObject   Opcode = 0x81
	GetIndex    Opcode = 0x82
	SetIndex    Opcode = 0x83
	GetProperty Opcode = 0x84
	SetProperty Opcode = 0x85
	NewFunction Opcode = 0x86
	NewClosure  Opcode = 0x87

	Halt Opcode = 0xFF
)

// Instruction is one decoded VM instruction. Operand holds constant
// indexes, slots, jump targets and argument counts; Str holds names
// for the global and builtin forms.
type Instruction struct {
	Op      Opcode
	Operand int
	Str     string
}

var opNames = map[Opcode]string{
	LoadConstant: "LoadConstant", LoadLocal: "LoadLocal",
	StoreLocal: "StoreLocal", LoadGlobal: "LoadGlobal",
	StoreGlobal: "StoreGlobal",
	Add:         "Add", Subtract: "Subtract", Multiply: "Multiply",
	Divide: "Divide", Modulo: "Modulo", Negate: "Negate",
	Equal: "Equal", NotEqual: "NotEqual", Less: "Less",
	LessEqual: "LessEqual", Greater: "Greater",
	GreaterEqual: "GreaterEqual",
	And:          "And", Or: "Or", Not: "Not",
	Jump: "Jump", JumpIfFalse: "JumpIfFalse", JumpIfTrue: "JumpIfTrue",
	Call: "Call", Return: "Return", ReturnValue: "ReturnValue",
	CallMethod: "CallMethod", CallBuiltin: "CallBuiltin",
	Pop: "Pop", Duplicate: "Duplicate", Swap: "Swap",
	Print: "Print",
	NewArray: "NewArray", NewObject: "NewObject",
	GetIndex: "GetIndex", SetIndex: "SetIndex",
	GetProperty: "GetProperty", SetProperty: "SetProperty",
	NewFunction: "NewFunction", NewClosure: "NewClosure",
	Halt: "Halt",
}

func (op Opcode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "Unknown"
}

// HasOperand reports whether op carries a numeric operand.
func (op Opcode) HasOperand() bool {
	switch op {
	case LoadConstant, LoadLocal, StoreLocal, Jump, JumpIfFalse,
		JumpIfTrue, Call, CallMethod, NewArray, NewObject,
		NewFunction, NewClosure:
		return true
	}
	return false
}

// HasName reports whether op carries a string operand. Named
// instructions cannot be serialized in the binary format.
func (op Opcode) HasName() bool {
	switch op {
	case LoadGlobal, StoreGlobal, GetProperty, SetProperty,
		CallMethod, CallBuiltin:
		return true
	}
	return false
}
