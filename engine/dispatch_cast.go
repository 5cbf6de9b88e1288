package engine

import (
	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// evalCast dispatches every conversion opcode that needs no Oracle
// involvement (spec.md §4.1): width/precision changes and bitcast.
// ptrtoint/inttoptr are handled separately since they cross the Oracle
// boundary (evalPtrToInt/evalIntToPtr).
func (e *Engine) evalCast(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	v, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	switch instr.Op {
	case ir.OpTrunc:
		return value.Trunc(v, instr.Type), nil
	case ir.OpZExt:
		return value.ZExt(v, instr.Type), nil
	case ir.OpSExt:
		return value.SExt(v, instr.Type), nil
	case ir.OpFPTrunc:
		return value.FPTrunc(v, instr.Type), nil
	case ir.OpFPExt:
		return value.FPExt(v, instr.Type), nil
	case ir.OpFPToUI:
		return value.FPToUI(v, instr.Type), nil
	case ir.OpFPToSI:
		return value.FPToSI(v, instr.Type), nil
	case ir.OpUIToFP:
		return value.UIToFP(v, instr.Type), nil
	case ir.OpSIToFP:
		return value.SIToFP(v, instr.Type), nil
	case ir.OpBitCast:
		out, err := value.BitCast(v, instr.Type, e.module.LittleEndian)
		if err != nil {
			return value.Value{}, NewSemanticError("%s", err.Error())
		}
		return out, nil
	default:
		return value.Value{}, NewSemanticError("unsupported cast opcode %d", instr.Op)
	}
}

// evalPtrToInt asks the Oracle to render a pointer's integer address,
// per spec.md §4.5's ptr_to_int hook and §9's "Oracle decides what a
// pointer's integer value even means" ambiguity resolution (the engine
// never synthesizes one from Addr directly).
func (e *Engine) evalPtrToInt(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	v, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	addr := e.hooks.PtrToInt(e.wrapper, v.Ptr)
	return value.IntValue(instr.Type, value.NewIntFromUint64(instr.Type.Layout().IntWidth, addr)), nil
}

// evalIntToPtr asks the Oracle to mint a pointer (with whatever
// provenance, possibly none, it assigns) for an arbitrary integer
// address, per spec.md §4.5's int_to_ptr hook.
func (e *Engine) evalIntToPtr(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	v, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	p := e.hooks.IntToPtr(e.wrapper, v.I.Uint64())
	return value.PointerValue(instr.Type, p), nil
}
