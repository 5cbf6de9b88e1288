package engine

import (
	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/oracle"
	"github.com/icmccorm/llvm-project/value"
)

// CreateThread creates a new logical Thread starting at fn with args
// bound to its formal parameters, per spec.md §6.
func (e *Engine) CreateThread(tid uint64, fn *ir.Function, args []value.Value) error {
	if _, exists := e.threads[tid]; exists {
		return NewPreconditionError("thread %d already exists", tid)
	}
	t := frame.NewThread(tid, args)
	fr := frame.NewFrame(fn, nil)
	bindParams(fr, fn, args)
	t.Push(fr)
	e.threads[tid] = t
	e.threadIDs = append(e.threadIDs, tid)
	e.log.Debug("thread created", "tid", tid, "fn", fn.Name)
	return nil
}

func bindParams(fr *frame.Frame, fn *ir.Function, args []value.Value) {
	for i, p := range fn.Params {
		if i < len(args) {
			fr.Bind(p.Name, args[i])
		}
	}
	if fn.IsVarArg && len(args) > len(fn.Params) {
		fr.VarArgs = append(fr.VarArgs, args[len(fn.Params):]...)
	}
}

// HasThread reports whether tid names a live thread, per spec.md §6.
func (e *Engine) HasThread(tid uint64) bool {
	_, ok := e.threads[tid]
	return ok
}

// GetThreadExitValue returns the Value written back when tid's root
// frame returned, or nil if the thread hasn't exited yet.
func (e *Engine) GetThreadExitValue(tid uint64) *value.Value {
	t, ok := e.threads[tid]
	if !ok {
		return nil
	}
	return t.ExitValue
}

// TerminateThread removes a Thread, releasing every resource its
// frames' alloca sets retained through the Oracle's free hook, as if
// each frame had been popped in turn (spec.md §5's cancellation rule).
func (e *Engine) TerminateThread(tid uint64) error {
	t, ok := e.threads[tid]
	if !ok {
		return NewPreconditionError("unknown thread %d", tid)
	}
	for len(t.Stack) > 0 {
		fr := t.Pop()
		if err := e.releaseAllocas(fr); err != nil {
			return err
		}
	}
	delete(e.threads, tid)
	for i, id := range e.threadIDs {
		if id == tid {
			e.threadIDs = append(e.threadIDs[:i], e.threadIDs[i+1:]...)
			break
		}
	}
	e.log.Debug("thread terminated", "tid", tid)
	return nil
}

// releaseAllocas invokes the Oracle's free hook for every pointer the
// frame owns, per spec.md §3/§5's scoped-release discipline: exactly
// one free call per successful alloca, on every exit path.
func (e *Engine) releaseAllocas(fr *frame.Frame) error {
	for _, p := range fr.Allocas() {
		if faulted := e.hooks.Free(e.wrapper, p); faulted {
			return oracle.NewHookFault("free", "<frame pop>")
		}
	}
	return nil
}

// StepThread is the cooperative single-stepping entry point described
// in spec.md §2 and §4.4's "pending-return protocol": it either
// resolves a previously-suspended foreign call using pendingRet and
// then executes one instruction, or just executes one instruction.
// It returns true once tid's stack has emptied.
func (e *Engine) StepThread(tid uint64, pendingRet *value.Value) (stackEmpty bool, err error) {
	t, ok := e.threads[tid]
	if !ok {
		return false, NewPreconditionError("unknown thread %d", tid)
	}
	e.metrics.IncThreadStep()
	if missing := e.hooks.Missing(); missing != "" {
		return false, NewPreconditionError("hook %q not installed", missing)
	}
	if t.Empty() {
		return true, nil
	}

	fr := t.Current()
	if fr.MustResolvePendingReturn {
		if pendingRet == nil {
			return false, NewPreconditionError("thread %d has a pending foreign return outstanding; step_thread requires pending_ret", tid)
		}
		if err := e.resolvePendingReturn(t, fr, *pendingRet); err != nil {
			return false, err
		}
		fr.MustResolvePendingReturn = false
		if done, err := e.finishIfDone(t); done || err != nil {
			return done, err
		}
		fr = t.Current()
	} else if pendingRet != nil {
		return false, NewPreconditionError("thread %d has no pending foreign return, but a pending_ret was supplied", tid)
	}

	if err := e.executeOne(t, fr); err != nil {
		return false, err
	}
	return e.finishIfDone(t)
}

// finishIfDone reports whether t's stack has emptied and, the first
// time it observes that, runs the registered atexit/__cxa_atexit
// handlers before telling the caller the thread is done, per
// SPEC_FULL.md's "RunAtExitHandlers invoked after a thread's root frame
// returns" supplement.
func (e *Engine) finishIfDone(t *frame.Thread) (stackEmpty bool, err error) {
	if !t.Empty() {
		return false, nil
	}
	if err := e.RunAtExitHandlers(t); err != nil {
		return false, err
	}
	return true, nil
}

// PendingCall reports the call/invoke instruction and foreign callee
// name a thread's current frame is suspended on, so an external
// scheduler knows what to actually invoke before feeding the result
// back through StepThread's pendingRet, per spec.md §4.4's
// pending-return protocol. ok is false if tid is unknown or not
// currently suspended.
func (e *Engine) PendingCall(tid uint64) (instr *ir.Instruction, calleeName string, ok bool) {
	t, exists := e.threads[tid]
	if !exists || t.Empty() {
		return nil, "", false
	}
	fr := t.Current()
	if !fr.MustResolvePendingReturn || fr.PendingCall == nil {
		return nil, "", false
	}
	return fr.PendingCall, fr.PendingCall.CalleeName, true
}

// resolvePendingReturn binds the caller-supplied return Value to the
// call-site's SSA name and, for invoke, switches to its normal
// destination block, per spec.md §4.4.
func (e *Engine) resolvePendingReturn(t *frame.Thread, fr *frame.Frame, ret value.Value) error {
	call := fr.PendingCall
	fr.PendingCall = nil
	if call == nil {
		return nil
	}
	fr.PreviousInstruction = call
	if call.Type != nil {
		fr.Bind(call.Name, ret)
	}
	if call.Op == ir.OpInvoke && call.NormalDest != nil {
		fr.AdvanceTo(call.NormalDest)
	}
	return nil
}

// RunFunction drives a fresh thread to completion and returns its
// root-frame exit Value, per spec.md §6.
func (e *Engine) RunFunction(fn *ir.Function, args []value.Value) (value.Value, error) {
	const tid = runFunctionThreadID
	if err := e.CreateThread(tid, fn, args); err != nil {
		return value.Value{}, err
	}
	for {
		done, err := e.StepThread(tid, nil)
		if err != nil {
			_ = e.TerminateThread(tid)
			return value.Value{}, err
		}
		if done {
			break
		}
		if fr := e.threads[tid].Current(); fr != nil && fr.MustResolvePendingReturn {
			// RunFunction has no host to supply a pending return for a
			// foreign call; spec.md §6 describes run_function as
			// driving "to completion" over module-internal control
			// flow. A foreign call under run_function is therefore a
			// precondition violation: use create_thread/step_thread
			// cooperative stepping instead when foreign calls occur.
			_ = e.TerminateThread(tid)
			return value.Value{}, NewPreconditionError("run_function encountered a foreign call; use create_thread/step_thread")
		}
	}
	ev := e.GetThreadExitValue(tid)
	if ev == nil {
		return value.Value{}, nil
	}
	return *ev, nil
}

// runFunctionThreadID is the internal thread id used by RunFunction's
// synchronous drive; it is reserved and not exposed to hosts via
// CreateThread.
const runFunctionThreadID = ^uint64(0)

// RunFunctionAsMain runs fn as a process entry point, returning its i32
// result, per spec.md §6. Only argc (len(argv)) is passed, as the first
// parameter, and only when fn declares parameters; the argv strings and
// envp are not materialized for the callee.
func (e *Engine) RunFunctionAsMain(fn *ir.Function, argv []string, envp []string) (int32, error) {
	args := mainArgs(fn, argv, envp)
	ret, err := e.RunFunction(fn, args)
	if err != nil {
		return -1, err
	}
	if ret.Kind == value.KindInt {
		return int32(ret.I.Uint64()), nil
	}
	return 0, nil
}

func mainArgs(fn *ir.Function, argv, envp []string) []value.Value {
	// A materialized main() typically takes (argc: i32, argv: ptr) or
	// no arguments at all; this is encoded by the (out of scope)
	// loader into fn.Params, so RunFunctionAsMain only needs to supply
	// argc when main declares it. envp is accepted for symmetry with
	// libc's startup convention but is not otherwise consulted here —
	// environment access goes through the Oracle's foreign-call path,
	// not through this entry point.
	_ = envp
	if len(fn.Params) == 0 {
		return nil
	}
	argc := value.NewIntFromUint64(32, uint64(len(argv)))
	return []value.Value{value.IntValue(fn.Params[0].Type, argc)}
}
