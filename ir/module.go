package ir

// Opcode tags every instruction kind the dispatcher in package engine
// knows how to interpret. Unlisted/unknown instructions are a semantic
// fault (spec.md §7 kind 2).
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Integer binary arithmetic/bitwise, elementwise on vectors.
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	// Floating point, scalar or vector.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpFNeg

	// Conversions.
	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpPtrToInt
	OpIntToPtr
	OpBitCast

	// Comparisons and select.
	OpICmp
	OpFCmp
	OpSelect

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpGetElementPtr
	OpVAStart
	OpVACopy
	OpVAArg
	OpVAEnd

	// Aggregates.
	OpExtractValue
	OpInsertValue
	OpExtractElement
	OpInsertElement
	OpShuffleVector

	// Control flow.
	OpBr
	OpSwitch
	OpIndirectBr
	OpPhi
	OpUnreachable
	OpCall
	OpInvoke
	OpRet

	// Intrinsics not handled directly (§4.6) are tagged with the generic
	// OpIntrinsic opcode and routed to the lowering helper by name.
	OpIntrinsic
)

// IntPredicate enumerates icmp predicates.
type IntPredicate uint8

const (
	ICmpEQ IntPredicate = iota
	ICmpNE
	ICmpUGT
	ICmpUGE
	ICmpULT
	ICmpULE
	ICmpSGT
	ICmpSGE
	ICmpSLT
	ICmpSLE
)

// FloatPredicate enumerates fcmp predicates, including LLVM's
// ordered/unordered variants and the FALSE/TRUE constants (spec.md §4.2).
type FloatPredicate uint8

const (
	FCmpFALSE FloatPredicate = iota
	FCmpOEQ
	FCmpOGT
	FCmpOGE
	FCmpOLT
	FCmpOLE
	FCmpONE
	FCmpORD
	FCmpUEQ
	FCmpUGT
	FCmpUGE
	FCmpULT
	FCmpULE
	FCmpUNE
	FCmpUNO
	FCmpTRUE
)

// ValueRef names an SSA value as an instruction operand: either a
// reference to a previously defined instruction/argument (by Name) or
// an immediate constant.
type ValueRef struct {
	Name     string // empty for a pure constant operand
	Constant *ConstValue
}

// ConstValue is an immediate operand baked into the instruction stream
// by the (out of scope) loader.
type ConstValue struct {
	Type     *Type
	IntBits  []byte // little-endian two's complement, width per Type.IntWidth
	Float32  float32
	Float64  float64
	IsNull   bool // null pointer constant
	Elements []*ConstValue
}

// Instruction is one materialized LLVM IR instruction. Fields not used
// by Op are left zero; this flat shape mirrors how the (out of scope)
// loader would deserialize a wire-format module rather than a deep
// per-opcode class hierarchy, matching the "single dispatch on an
// instruction kind tag" strategy from spec.md §9.
type Instruction struct {
	Op     Opcode
	Name   string // SSA result name; empty for void instructions
	Type   *Type  // result type, nil for void
	Operty []*Type // operand types; store reads Operty[0] as the stored value's type
	Operands []ValueRef

	// Cast/compare metadata.
	IntPred   IntPredicate
	FloatPred FloatPredicate

	// GEP metadata: one GEPIndex per step after the base pointer operand
	// (Operands[0]). A step is either a struct field index (Struct=true)
	// or an array/vector/pointer index operand.
	SourceType *Type // the base pointee type GEP walks from
	GEPIndices []GEPIndex

	// Alloca metadata.
	NumElements ValueRef // defaults to constant 1
	Align       uint64

	// Aggregate indices (extractvalue/insertvalue) or element index
	// (extractelement/insertelement use Operands[1] instead).
	Indices []uint32

	// ShuffleVector mask, one destination-lane source index per entry;
	// a negative entry denotes `undef`.
	ShuffleMask []int32

	// Control flow.
	Successors []*BasicBlock // Br: [then] or [then,else]; Switch: [default, case0, case1, ...]
	SwitchCases []SwitchCase
	IncomingPhi []PhiIncoming

	// Call/Invoke.
	CalleeName   string // symbolic name when the callee is a direct reference
	CalleeIsDecl bool   // callee is a declaration with no body (module-local)
	Args         []ValueRef
	NormalDest   *BasicBlock // invoke only
	UnwindDest   *BasicBlock // invoke only

	// Intrinsic name, set when Op == OpIntrinsic.
	IntrinsicName string

	Loc DebugLoc
}

// GEPIndex is one step of a getelementptr traversal.
type GEPIndex struct {
	Struct     bool // true: FieldIndex into SourceType; false: Operand is the index
	FieldIndex uint32
	Operand    ValueRef
	// IndexedType is the type being walked over at this step (array/vector
	// element type, or the struct type itself for struct steps).
	IndexedType *Type
	// IndexBitWidth is the bit width of Operand when Struct is false;
	// must be 32 or 64 per spec.md §4.3.
	IndexBitWidth uint32
}

// SwitchCase is one `switch` arm.
type SwitchCase struct {
	Value *ConstValue
	Dest  *BasicBlock
}

// PhiIncoming is one `phi` incoming edge.
type PhiIncoming struct {
	Pred  *BasicBlock
	Value ValueRef
}

// DebugLoc is a source location attached to an instruction for trace
// reporting (spec.md §4.7).
type DebugLoc struct {
	File string
	Line uint32
	Col  uint32
}

func (l DebugLoc) String() string {
	if l.File == "" {
		return "<unknown location>"
	}
	return l.File
}

// BasicBlock is a straight-line run of instructions ending in exactly
// one terminator (Br/Switch/IndirectBr/Ret/Unreachable/Invoke).
type BasicBlock struct {
	Name         string
	Function     *Function
	Instructions []*Instruction
}

// Param is one formal parameter of a Function.
type Param struct {
	Name string
	Type *Type
}

// Function is a module-defined function with a body, or a declaration
// (Blocks is empty) that must be routed to the Oracle by name.
type Function struct {
	Name       string
	Params     []Param
	IsVarArg   bool
	ReturnType *Type
	Blocks     []*BasicBlock
	// Address is the stable identity used as the map key in the
	// engine's global-address table and as the "function pointer" a
	// Value's addr field carries for internal (module-defined) calls.
	Address uint64
}

func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

func (f *Function) EntryBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Global is a module-level global variable.
type Global struct {
	Name    string
	Type    *Type // pointee type
	Address uint64
}

// Module is the materialized LLVM module the engine interprets.
// LittleEndian governs bitcast lane redistribution (value.BitCast);
// loads and stores go through the Oracle and do not consult it.
type Module struct {
	Name          string
	LittleEndian  bool
	Functions     map[string]*Function
	Globals       []*Global // in declaration order, per SPEC_FULL.md
	Ctors         []*Function
	Dtors         []*Function
}

func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		LittleEndian: true,
		Functions:    make(map[string]*Function),
	}
}
