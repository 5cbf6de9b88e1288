package engine

import (
	"time"

	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// executeOne dispatches a single instruction on fr, the classic "fetch,
// decode, execute" step named in spec.md §2, switched on Instruction.Op
// the way core/vm/interpreter.go's Run loop switches on op.
func (e *Engine) executeOne(t *frame.Thread, fr *frame.Frame) error {
	instr := fr.CurrentInstruction()
	if instr == nil {
		return e.recordFault(t, nil, NewSemanticError("fell off the end of a basic block without a terminator"))
	}
	if e.config.Tracer != nil {
		e.config.Tracer(t.ID, fr, instr)
	}
	e.log.Trace("dispatch", "tid", t.ID, "fn", fr.Function.Name, "op", instr.Op, "name", instr.Name)
	e.metrics.IncOpcode(opcodeName(instr.Op))

	fr.PreviousInstruction = instr
	result, terminated, err := e.dispatch(t, fr, instr)
	if err != nil {
		return e.recordFault(t, instr, err)
	}
	if terminated {
		return nil
	}
	if result != nil {
		fr.Bind(instr.Name, *result)
	}
	fr.NextInstruction++
	return nil
}

// dispatch executes instr and returns its bound result (nil for void
// instructions), whether it was a terminator that already advanced
// control flow (so executeOne must not also increment NextInstruction),
// and any error.
func (e *Engine) dispatch(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) (*value.Value, bool, error) {
	switch instr.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFRem:
		v, err := e.evalArith(fr, instr)
		return ret(v, err)

	case ir.OpFNeg:
		v, err := e.evalFNeg(fr, instr)
		return ret(v, err)

	case ir.OpICmp:
		v, err := e.evalICmp(fr, instr)
		return ret(v, err)
	case ir.OpFCmp:
		v, err := e.evalFCmp(fr, instr)
		return ret(v, err)
	case ir.OpSelect:
		v, err := e.evalSelect(fr, instr)
		return ret(v, err)

	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPTrunc, ir.OpFPExt,
		ir.OpFPToUI, ir.OpFPToSI, ir.OpUIToFP, ir.OpSIToFP, ir.OpBitCast:
		v, err := e.evalCast(fr, instr)
		return ret(v, err)
	case ir.OpPtrToInt:
		v, err := e.evalPtrToInt(fr, instr)
		return ret(v, err)
	case ir.OpIntToPtr:
		v, err := e.evalIntToPtr(fr, instr)
		return ret(v, err)

	case ir.OpExtractValue:
		v, err := e.evalExtractValue(fr, instr)
		return ret(v, err)
	case ir.OpInsertValue:
		v, err := e.evalInsertValue(fr, instr)
		return ret(v, err)
	case ir.OpExtractElement:
		v, err := e.evalExtractElement(fr, instr)
		return ret(v, err)
	case ir.OpInsertElement:
		v, err := e.evalInsertElement(fr, instr)
		return ret(v, err)
	case ir.OpShuffleVector:
		v, err := e.evalShuffleVector(fr, instr)
		return ret(v, err)

	case ir.OpAlloca:
		v, err := e.evalAlloca(fr, instr)
		return ret(v, err)
	case ir.OpLoad:
		v, err := e.evalLoad(fr, instr)
		return ret(v, err)
	case ir.OpStore:
		err := e.evalStore(fr, instr)
		return nil, false, err
	case ir.OpGetElementPtr:
		v, err := e.evalGEP(fr, instr)
		return ret(v, err)
	case ir.OpVAStart:
		err := e.evalVAStart(t, fr, instr)
		return nil, false, err
	case ir.OpVACopy:
		err := e.evalVACopy(fr, instr)
		return nil, false, err
	case ir.OpVAArg:
		v, err := e.evalVAArg(t, fr, instr)
		return ret(v, err)
	case ir.OpVAEnd:
		return nil, false, nil

	case ir.OpBr:
		err := e.evalBr(fr, instr)
		return nil, true, err
	case ir.OpSwitch:
		err := e.evalSwitch(fr, instr)
		return nil, true, err
	case ir.OpIndirectBr:
		err := e.evalIndirectBr(fr, instr)
		return nil, true, err
	case ir.OpPhi:
		// evalPhi binds every PHI in the contiguous run itself and
		// advances NextInstruction past all of them atomically; treating
		// this as a terminator keeps executeOne from re-binding instr's
		// name or incrementing NextInstruction a second time.
		_, err := e.evalPhi(fr, instr)
		return nil, true, err
	case ir.OpUnreachable:
		return nil, true, NewSemanticError("reached an unreachable instruction")
	case ir.OpRet:
		err := e.evalRet(t, fr, instr)
		return nil, true, err
	case ir.OpCall:
		suspended, err := e.evalCall(t, fr, instr)
		return nil, suspended, err
	case ir.OpInvoke:
		suspended, err := e.evalInvoke(t, fr, instr)
		return nil, suspended, err

	case ir.OpIntrinsic:
		return e.evalIntrinsic(t, fr, instr)

	default:
		return nil, false, NewSemanticError("unsupported opcode %d", instr.Op)
	}
}

func ret(v value.Value, err error) (*value.Value, bool, error) {
	if err != nil {
		return nil, false, err
	}
	return &v, false, nil
}

// resolveOperand materializes a ValueRef to a concrete Value: a named
// reference is looked up in the frame, a constant is decoded once.
func (e *Engine) resolveOperand(fr *frame.Frame, ref ir.ValueRef) (value.Value, error) {
	if ref.Name != "" {
		v, ok := fr.Lookup(ref.Name)
		if !ok {
			return value.Value{}, NewSemanticError("undefined SSA value %%%s", ref.Name)
		}
		return v, nil
	}
	if ref.Constant == nil {
		return value.Value{}, NewSemanticError("operand has neither a name nor a constant")
	}
	return decodeConst(ref.Constant), nil
}

// decodeConst materializes a module-embedded constant into a runtime
// Value, per spec.md §9's "decode once at dispatch time" strategy for
// immediate operands.
func decodeConst(c *ir.ConstValue) value.Value {
	lt := c.Type.Layout()
	switch lt.Kind {
	case ir.KindInt:
		return value.IntValue(c.Type, value.IntFromBytesLE(lt.IntWidth, c.IntBits))
	case ir.KindFloat32:
		return value.F32Value(c.Type, c.Float32)
	case ir.KindFloat64:
		return value.F64Value(c.Type, c.Float64)
	case ir.KindPointer:
		// A pointer ConstValue only ever encodes the null constant. A
		// named operand is looked up in the frame's bindings only;
		// Engine.LookupGlobal is a host accessor and is not consulted
		// by operand resolution.
		return value.PointerValue(c.Type, value.NullPointer)
	case ir.KindArray, ir.KindStruct, ir.KindVector:
		agg := make([]value.Value, len(c.Elements))
		for i, el := range c.Elements {
			agg[i] = decodeConst(el)
		}
		return value.Value{Ty: c.Type, Kind: value.KindAggregate, Agg: agg}
	default:
		return value.Value{Ty: c.Type}
	}
}

// opcodeName renders an Opcode for metrics/log fields; unlike
// ir.Instruction's full textual form (out of scope, belongs to a
// printer), this only needs to be stable and grep-able.
func opcodeName(op ir.Opcode) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "unknown"
}

var opcodeNames = map[ir.Opcode]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpUDiv: "udiv", ir.OpSDiv: "sdiv",
	ir.OpURem: "urem", ir.OpSRem: "srem", ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor",
	ir.OpShl: "shl", ir.OpLShr: "lshr", ir.OpAShr: "ashr",
	ir.OpFAdd: "fadd", ir.OpFSub: "fsub", ir.OpFMul: "fmul", ir.OpFDiv: "fdiv", ir.OpFRem: "frem", ir.OpFNeg: "fneg",
	ir.OpTrunc: "trunc", ir.OpZExt: "zext", ir.OpSExt: "sext", ir.OpFPTrunc: "fptrunc", ir.OpFPExt: "fpext",
	ir.OpFPToUI: "fptoui", ir.OpFPToSI: "fptosi", ir.OpUIToFP: "uitofp", ir.OpSIToFP: "sitofp",
	ir.OpPtrToInt: "ptrtoint", ir.OpIntToPtr: "inttoptr", ir.OpBitCast: "bitcast",
	ir.OpICmp: "icmp", ir.OpFCmp: "fcmp", ir.OpSelect: "select",
	ir.OpAlloca: "alloca", ir.OpLoad: "load", ir.OpStore: "store", ir.OpGetElementPtr: "getelementptr",
	ir.OpVAStart: "va_start", ir.OpVACopy: "va_copy", ir.OpVAArg: "va_arg", ir.OpVAEnd: "va_end",
	ir.OpExtractValue: "extractvalue", ir.OpInsertValue: "insertvalue",
	ir.OpExtractElement: "extractelement", ir.OpInsertElement: "insertelement", ir.OpShuffleVector: "shufflevector",
	ir.OpBr: "br", ir.OpSwitch: "switch", ir.OpIndirectBr: "indirectbr", ir.OpPhi: "phi",
	ir.OpUnreachable: "unreachable", ir.OpCall: "call", ir.OpInvoke: "invoke", ir.OpRet: "ret",
	ir.OpIntrinsic: "intrinsic",
}

// timeHook wraps an Oracle hook invocation with latency observation,
// per SPEC_FULL.md's xmetrics wiring.
func (e *Engine) timeHook(name string, f func()) {
	start := hookClock()
	f()
	e.metrics.ObserveHookLatency(name, hookClock().Sub(start))
}

// hookClock is isolated behind a function variable so tests can replace
// it; wall-clock timestamps are otherwise off limits to deterministic
// dispatch logic.
var hookClock = time.Now
