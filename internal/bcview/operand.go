package bcview

// OperandKind discriminates the closed set of decoded operand shapes an
// instruction may carry.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandByte
	OperandShort
	OperandLocalSlot
	OperandConstValue
	OperandConstSymbol
	OperandBranchTarget
	OperandSwitchTable
	OperandIncTarget
	OperandWideLocal
)

// ConstKind discriminates the variants a resolved constant-pool value may take.
type ConstKind int

const (
	ConstNull ConstKind = iota
	ConstInt
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstClass
)

// ConstValue is a resolved numeric, string, or class-literal constant with
// its JVM type tag attached.
type ConstValue struct {
	Kind   ConstKind
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Str    string // ConstString payload, or the class name for ConstClass
}

// SwitchCase is one (key, target) entry of a decoded switch table.
type SwitchCase struct {
	Key    int32
	Target int
}

// SwitchTable is the fully decoded operand of a tableswitch/lookupswitch.
type SwitchTable struct {
	Cases   []SwitchCase
	Default int
}

// IncTarget is the decoded operand of the iinc instruction.
type IncTarget struct {
	Slot  int
	Delta int32
}

// WideLocal is the decoded operand of a wide-prefixed local-variable
// instruction: the widened opcode, the 16-bit local slot, and (for
// wide iinc) the increment value.
type WideLocal struct {
	Op    Opcode
	Slot  int
	Value int32
}

// Operand is the pre-decoded immediate operand of one instruction. Exactly
// one field group is meaningful, selected by Kind.
type Operand struct {
	Kind OperandKind

	Byte  int8
	Short int16

	LocalSlot int

	Const       ConstValue
	SymbolIndex int // index into the caller-supplied constant pool, for OperandConstSymbol

	BranchTarget int

	Switch SwitchTable

	Inc IncTarget

	Wide WideLocal
}
