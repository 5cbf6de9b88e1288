package engine

import (
	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/oracle"
	"github.com/icmccorm/llvm-project/value"
)

// evalBr implements unconditional/conditional branch, per spec.md §4.4:
// unconditional goes to successor 0, conditional consults an i1.
func (e *Engine) evalBr(fr *frame.Frame, instr *ir.Instruction) error {
	if len(instr.Successors) == 1 {
		fr.AdvanceTo(instr.Successors[0])
		return nil
	}
	cond, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	if !cond.I.IsZero() {
		fr.AdvanceTo(instr.Successors[0])
	} else {
		fr.AdvanceTo(instr.Successors[1])
	}
	return nil
}

// evalSwitch linear-scans cases using icmp eq, falling through to the
// default destination, per spec.md §4.4.
func (e *Engine) evalSwitch(fr *frame.Frame, instr *ir.Instruction) error {
	scrutinee, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	for _, c := range instr.SwitchCases {
		caseVal := decodeConst(c.Value)
		if scrutinee.I.Eq(caseVal.I) {
			fr.AdvanceTo(c.Dest)
			return nil
		}
	}
	if len(instr.Successors) == 0 {
		return NewSemanticError("switch has no default destination")
	}
	fr.AdvanceTo(instr.Successors[0])
	return nil
}

// evalIndirectBr resolves the operand pointer's address as an index
// into the instruction's listed possible destinations: the (out of
// scope) loader is assumed to have already resolved blockaddress
// constants to dense indices when materializing Successors, since a
// full address-to-label table belongs to the module's own symbol
// table, not to this engine.
func (e *Engine) evalIndirectBr(fr *frame.Frame, instr *ir.Instruction) error {
	target, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	idx := target.Ptr.Addr
	if idx >= uint64(len(instr.Successors)) {
		return NewSemanticError("indirectbr target index %d out of range (%d successors)", idx, len(instr.Successors))
	}
	fr.AdvanceTo(instr.Successors[idx])
	return nil
}

// evalPhi implements spec.md §4.4's PHI atomicity rule: collect the
// contiguous run of PHI instructions starting here, resolve every
// incoming value using the bindings as they stood at block entry
// (before any PHI in this run rebinds anything), then apply all
// bindings in a second pass, per the two-phase rule and seed scenario 6.
func (e *Engine) evalPhi(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	block := fr.CurrentBlock
	start := fr.NextInstruction
	end := start
	for end < len(block.Instructions) && block.Instructions[end].Op == ir.OpPhi {
		end++
	}

	type binding struct {
		name string
		v    value.Value
	}
	bindings := make([]binding, 0, end-start)
	for i := start; i < end; i++ {
		p := block.Instructions[i]
		incoming, err := e.resolvePhiIncoming(fr, p)
		if err != nil {
			return value.Value{}, err
		}
		bindings = append(bindings, binding{name: p.Name, v: incoming})
	}
	for _, b := range bindings {
		fr.Bind(b.name, b.v)
	}

	fr.PreviousInstruction = block.Instructions[end-1]
	fr.NextInstruction = end

	return bindings[0].v, nil
}

func (e *Engine) resolvePhiIncoming(fr *frame.Frame, p *ir.Instruction) (value.Value, error) {
	for _, inc := range p.IncomingPhi {
		if inc.Pred == fr.PreviousBlock {
			return e.resolveOperand(fr, inc.Value)
		}
	}
	return value.Value{}, NewSemanticError("phi %%%s has no incoming edge from the predecessor block", p.Name)
}

// evalRet computes the return Value (or void), pops the frame
// releasing its allocas, and either writes the thread's exit value or
// binds the caller's call-site SSA name, per spec.md §4.4.
func (e *Engine) evalRet(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) error {
	var retVal *value.Value
	if len(instr.Operands) > 0 {
		v, err := e.resolveOperand(fr, instr.Operands[0])
		if err != nil {
			return err
		}
		retVal = &v
	}

	popped := t.Pop()
	if err := e.releaseAllocas(popped); err != nil {
		return err
	}

	if t.Empty() {
		t.ExitValue = retVal
		return nil
	}

	caller := fr.Caller
	callerFrame := t.Current()
	if caller != nil && retVal != nil && caller.Type != nil {
		callerFrame.Bind(caller.Name, *retVal)
	}
	if caller != nil {
		callerFrame.PreviousInstruction = caller
		// NextInstruction was already advanced past the call/invoke
		// site when this frame was pushed (evalCall); invoke still
		// needs to switch to its normal destination block.
		if caller.Op == ir.OpInvoke && caller.NormalDest != nil {
			callerFrame.AdvanceTo(caller.NormalDest)
		}
	}
	return nil
}

// evalCall implements spec.md §4.4's call dispatch: module-defined
// callees push a new frame and continue; declarations/foreign pointers
// suspend the current frame awaiting a pending return.
func (e *Engine) evalCall(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) (suspended bool, err error) {
	args, err := e.resolveArgs(fr, instr)
	if err != nil {
		return false, err
	}

	fn, foreignPtr, isForeign, err := e.resolveCallee(fr, instr)
	if err != nil {
		return false, err
	}

	if !isForeign {
		if ceiling := e.config.callStackCeiling(); len(t.Stack) >= ceiling {
			return false, NewSemanticError("call stack depth exceeds ceiling of %d frames", ceiling)
		}
		callee := frame.NewFrame(fn, instr)
		bindParams(callee, fn, args)
		t.Push(callee)
		fr.NextInstruction++
		return true, nil
	}

	handled, err := e.tryHandleAtExit(fr, instr, args)
	if err != nil {
		return false, err
	}
	if handled {
		return true, nil
	}

	return e.dispatchForeignCall(fr, instr, foreignPtr, args, instr.CalleeName)
}

// atexit/__cxa_atexit are the two libc entry points SPEC_FULL.md calls
// out as directly handled rather than routed through the Oracle: they
// only ever mutate the engine's own at-exit handler stack, so there is
// nothing for an external memory model to observe.
const (
	calleeAtExit    = "atexit"
	calleeCxaAtExit = "__cxa_atexit"
)

// tryHandleAtExit recognizes atexit/__cxa_atexit by callee name, pushes
// a (fn, arg) pair onto Engine.atExitHandlers, and binds the call
// site's result to 0 (both functions return int success codes), per
// SPEC_FULL.md's "atexit handler stack" supplement. handled is false
// for any other foreign callee.
func (e *Engine) tryHandleAtExit(fr *frame.Frame, instr *ir.Instruction, args []value.Value) (handled bool, err error) {
	switch instr.CalleeName {
	case calleeAtExit:
		if len(args) < 1 {
			return false, NewSemanticError("atexit called with no function argument")
		}
		e.atExitHandlers = append(e.atExitHandlers, atExitHandler{fn: args[0].Ptr})
	case calleeCxaAtExit:
		if len(args) < 1 {
			return false, NewSemanticError("__cxa_atexit called with no function argument")
		}
		h := atExitHandler{fn: args[0].Ptr}
		if len(args) > 1 {
			h.arg = args[1]
			h.hasArg = true
		}
		e.atExitHandlers = append(e.atExitHandlers, h)
	default:
		return false, nil
	}

	if instr.Type != nil {
		fr.Bind(instr.Name, value.IntValue(instr.Type, value.NewIntFromUint64(instr.Type.IntWidth, 0)))
	}
	fr.NextInstruction++
	return true, nil
}

// evalInvoke delegates to evalCall; it records nothing itself. The
// normal destination is read back from the invoke instruction by evalRet
// and resolvePendingReturn (unwind-on-fault is out of scope: a foreign
// fault always aborts interpretation, per spec.md §7, so UnwindDest is
// never taken).
func (e *Engine) evalInvoke(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) (suspended bool, err error) {
	return e.evalCall(t, fr, instr)
}

func (e *Engine) resolveArgs(fr *frame.Frame, instr *ir.Instruction) ([]value.Value, error) {
	args := make([]value.Value, len(instr.Args))
	for i, a := range instr.Args {
		v, err := e.resolveOperand(fr, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// resolveCallee determines whether instr calls a module-defined
// function (returns it directly) or a foreign one (returns its
// pointer), per spec.md §4.4's "evaluate the called operand" rule.
func (e *Engine) resolveCallee(fr *frame.Frame, instr *ir.Instruction) (fn *ir.Function, foreignPtr value.MiriPointer, isForeign bool, err error) {
	if instr.CalleeName != "" {
		if instr.CalleeIsDecl {
			return nil, value.MiriPointer{}, true, nil
		}
		fn, ok := e.module.Functions[instr.CalleeName]
		if !ok {
			return nil, value.MiriPointer{}, true, nil
		}
		return fn, value.MiriPointer{}, false, nil
	}

	calleeV, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return nil, value.MiriPointer{}, false, err
	}
	if !calleeV.Ptr.Prov.IsNull() {
		return nil, calleeV.Ptr, true, nil
	}
	fn, ok := e.funcsByAddr[calleeV.Ptr.Addr]
	if !ok {
		return nil, calleeV.Ptr, true, nil
	}
	return fn, value.MiriPointer{}, false, nil
}

// dispatchForeignCall invokes call_by_name or call_by_pointer and marks
// the current frame as awaiting the host's pending-return value.
func (e *Engine) dispatchForeignCall(fr *frame.Frame, instr *ir.Instruction, ptr value.MiriPointer, args []value.Value, name string) (bool, error) {
	hookArgs := make([]oracle.ArgValue, len(args))
	for i := range args {
		hookArgs[i] = oracle.ArgValue{H: oracle.NewHandle(&args[i])}
	}
	retTyName := typeName(instr.Type)

	var faulted bool
	if name != "" {
		e.timeHook("call_by_name", func() {
			faulted = e.hooks.CallByName(e.wrapper, hookArgs, name, retTyName)
		})
		if faulted {
			return false, oracle.NewHookFault("call_by_name", instrText2(instr))
		}
	} else {
		e.timeHook("call_by_pointer", func() {
			faulted = e.hooks.CallByPointer(e.wrapper, ptr, hookArgs, retTyName)
		})
		if faulted {
			return false, oracle.NewHookFault("call_by_pointer", instrText2(instr))
		}
	}

	fr.PendingCall = instr
	fr.MustResolvePendingReturn = true
	fr.NextInstruction++
	return true, nil
}
