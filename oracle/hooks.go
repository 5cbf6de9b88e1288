package oracle

import "github.com/icmccorm/llvm-project/value"

// Wrapper is the Oracle's own opaque self-reference, threaded through
// every hook call untouched by the engine, per spec.md §4.5 ("all
// hooks carry an opaque wrapper pointer (Oracle self)").
type Wrapper interface{}

// ArgValue is one argument crossing the Call* hook boundary: its
// Handle only; no static type is carried alongside it.
type ArgValue struct {
	H Handle
}

// Hooks is the fixed callback surface installed by the host before any
// instruction executes, per spec.md §4.5. Every field must be non-nil
// once installed; Engine.SetInterpCxWrapper and Engine.StepThread (see
// package engine) enforce this as a precondition (spec.md §7 kind 3).
type Hooks struct {
	Malloc func(w Wrapper, size, align uint64, isStack bool) value.MiriPointer
	Free   func(w Wrapper, ptr value.MiriPointer) bool

	Load  func(w Wrapper, out Handle, src value.MiriPointer, tyName string, bytes, align uint64) bool
	Store func(w Wrapper, in Handle, dst value.MiriPointer, tyName string, bytes, align uint64) bool

	Memset func(w Wrapper, ptr value.MiriPointer, b byte, length uint64) bool
	Memcpy func(w Wrapper, dst, src value.MiriPointer, length uint64) bool

	PtrToInt func(w Wrapper, p value.MiriPointer) uint64
	IntToPtr func(w Wrapper, addr uint64) value.MiriPointer

	GEP func(w Wrapper, base value.MiriPointer, offset int64) value.MiriPointer

	RegisterGlobal func(w Wrapper, name string, addr uint64, ptr value.MiriPointer) bool

	CallByName    func(w Wrapper, args []ArgValue, name string, retTyName string) bool
	CallByPointer func(w Wrapper, fn value.MiriPointer, args []ArgValue, retTyName string) bool

	StackTraceRecorder func(w Wrapper, trace []TraceEntry, instrText string)
}

// TraceEntry is one frame of the accumulated stack trace delivered to
// StackTraceRecorder on error, per spec.md §4.7.
type TraceEntry struct {
	File string
	Line uint32
	Col  uint32
	Func string
}

// Missing returns the name of the first unset hook, or "" if all are
// installed. Used to enforce spec.md §4.5's "the engine requires all
// of the following to be installed before any instruction executes."
func (h *Hooks) Missing() string {
	switch {
	case h.Malloc == nil:
		return "malloc"
	case h.Free == nil:
		return "free"
	case h.Load == nil:
		return "load"
	case h.Store == nil:
		return "store"
	case h.Memset == nil:
		return "memset"
	case h.Memcpy == nil:
		return "memcpy"
	case h.PtrToInt == nil:
		return "ptr_to_int"
	case h.IntToPtr == nil:
		return "int_to_ptr"
	case h.GEP == nil:
		return "gep"
	case h.RegisterGlobal == nil:
		return "register_global"
	case h.CallByName == nil:
		return "call_by_name"
	case h.CallByPointer == nil:
		return "call_by_pointer"
	case h.StackTraceRecorder == nil:
		return "stack_trace_recorder"
	default:
		return ""
	}
}
