// Package frame implements the per-thread call stack described in
// spec.md §3: a Frame is one activation record, a Thread is an
// independent logical execution context with its own stack of Frames.
package frame

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// Frame is one call-stack activation record, per spec.md §3.
type Frame struct {
	Function *ir.Function
	CurrentBlock *ir.BasicBlock
	// NextInstruction is the index, within CurrentBlock.Instructions, of
	// the next instruction to execute.
	NextInstruction int
	// PreviousBlock is the block control flow arrived from, consulted
	// by PHI resolution (spec.md §4.4) and by switches to NormalDest on
	// invoke-return.
	PreviousBlock *ir.BasicBlock
	// PreviousInstruction is kept for diagnostics (spec.md §3), and is
	// set on every dispatch path — including the pending-return
	// resolution step — per the consistency fix named in spec.md §9.
	PreviousInstruction *ir.Instruction

	// Caller is the call-site instruction of the next-lower frame, or
	// nil for the root frame.
	Caller *ir.Instruction

	// MustResolvePendingReturn is true after a foreign call suspends
	// this frame (spec.md §4.4, §5): the next step on this thread must
	// first consume a caller-provided return Value before executing
	// any further instruction.
	MustResolvePendingReturn bool

	// PendingCall is the call/invoke instruction within THIS frame that
	// is awaiting a foreign return, distinct from Caller (which names
	// the call site one frame up that produced this frame). Valid only
	// while MustResolvePendingReturn is true.
	PendingCall *ir.Instruction

	// Values maps SSA value identity (by name) to its bound Value.
	Values map[string]value.Value

	// VarArgs holds the ordered sequence of Values supplied beyond the
	// function's declared arity, addressed by va_arg via {frame_index,
	// arg_index} (spec.md §4.3).
	VarArgs []value.Value

	// allocaOrder preserves insertion order for Allocas()'s iteration
	// (frame pop releases allocas in the order they were taken).
	allocaOrder []value.MiriPointer
	// allocaSeen guards against double-release if a buggy lowering
	// pushes the same pointer into the alloca set twice, per
	// SPEC_FULL.md's DOMAIN STACK entry for golang-set/v2.
	allocaSeen mapset.Set[value.MiriPointer]
}

// NewFrame constructs an empty Frame for fn, entering at its entry block.
func NewFrame(fn *ir.Function, caller *ir.Instruction) *Frame {
	f := &Frame{
		Function:   fn,
		Caller:     caller,
		Values:     make(map[string]value.Value),
		allocaSeen: mapset.NewSet[value.MiriPointer](),
	}
	if fn != nil {
		f.CurrentBlock = fn.EntryBlock()
	}
	return f
}

// Bind records the Value produced by an instruction under its SSA name.
func (f *Frame) Bind(name string, v value.Value) {
	if name == "" {
		return
	}
	f.Values[name] = v
}

// Lookup resolves an SSA name to its bound Value.
func (f *Frame) Lookup(name string) (value.Value, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// PushAlloca records a newly-allocated pointer as owned by this frame's
// scope, per spec.md §3's alloca_set. It is a no-op (idempotent) if the
// pointer is already tracked, matching the release-once guarantee
// SPEC_FULL.md assigns to this field.
func (f *Frame) PushAlloca(p value.MiriPointer) {
	if f.allocaSeen.Contains(p) {
		return
	}
	f.allocaSeen.Add(p)
	f.allocaOrder = append(f.allocaOrder, p)
}

// Allocas returns the frame's owned pointers in allocation order.
func (f *Frame) Allocas() []value.MiriPointer {
	return f.allocaOrder
}

// AdvanceTo moves the instruction cursor to the start of a new block,
// recording the block just left as PreviousBlock for PHI resolution.
func (f *Frame) AdvanceTo(block *ir.BasicBlock) {
	f.PreviousBlock = f.CurrentBlock
	f.CurrentBlock = block
	f.NextInstruction = 0
}

// CurrentInstruction returns the instruction the next step will
// execute, or nil if the current block is exhausted.
func (f *Frame) CurrentInstruction() *ir.Instruction {
	if f.CurrentBlock == nil || f.NextInstruction >= len(f.CurrentBlock.Instructions) {
		return nil
	}
	return f.CurrentBlock.Instructions[f.NextInstruction]
}
