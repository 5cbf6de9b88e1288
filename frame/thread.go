package frame

import "github.com/icmccorm/llvm-project/value"

// Thread is an independent logical execution context with its own
// stack of Frames, per spec.md §3.
type Thread struct {
	ID    uint64
	Stack []*Frame

	// ExitValue is written once the root frame returns, per spec.md §3.
	ExitValue *value.Value

	// InitArgs are the arguments the thread's root call was started
	// with (create_thread's args), kept for diagnostics/restart.
	InitArgs []value.Value
}

// NewThread constructs a Thread with an empty stack.
func NewThread(id uint64, initArgs []value.Value) *Thread {
	return &Thread{ID: id, InitArgs: initArgs}
}

// Current returns the top-of-stack frame, or nil if the stack is empty.
func (t *Thread) Current() *Frame {
	if len(t.Stack) == 0 {
		return nil
	}
	return t.Stack[len(t.Stack)-1]
}

// Push enters a new frame.
func (t *Thread) Push(f *Frame) { t.Stack = append(t.Stack, f) }

// Pop removes and returns the top-of-stack frame.
func (t *Thread) Pop() *Frame {
	n := len(t.Stack) - 1
	f := t.Stack[n]
	t.Stack = t.Stack[:n]
	return f
}

// Empty reports whether the thread's call stack has fully unwound.
func (t *Thread) Empty() bool { return len(t.Stack) == 0 }

// Depth returns the index of the current top frame within Stack,
// matching the original's `frame_index = stack.size()-1` used to
// encode a va_list (spec.md §4.3).
func (t *Thread) Depth() int { return len(t.Stack) - 1 }
