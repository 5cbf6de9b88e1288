package engine

import (
	"math"

	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// evalArith dispatches the integer/float binary arithmetic and bitwise
// opcodes, elementwise over vectors, grounded on core/vm/instructions.go's
// opXxx(pc, interpreter, scope) handler style — one function per
// opcode, switched on from executeOne.
func (e *Engine) evalArith(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	lhs, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	rhs, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	return elementwiseBinOp(lhs, rhs, instr.Type, instr.Op)
}

func elementwiseBinOp(lhs, rhs value.Value, destTy *ir.Type, op ir.Opcode) (value.Value, error) {
	if lhs.Kind == value.KindAggregate {
		out := make([]value.Value, len(lhs.Agg))
		for i := range lhs.Agg {
			v, err := scalarBinOp(lhs.Agg[i], rhs.Agg[i], destTy.ElemType(i), op)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = v
		}
		return value.Value{Ty: destTy, Kind: value.KindAggregate, Agg: out}, nil
	}
	return scalarBinOp(lhs, rhs, destTy, op)
}

func scalarBinOp(lhs, rhs value.Value, destTy *ir.Type, op ir.Opcode) (value.Value, error) {
	switch op {
	case ir.OpAdd:
		return value.IntValue(destTy, lhs.I.Add(rhs.I)), nil
	case ir.OpSub:
		return value.IntValue(destTy, lhs.I.Sub(rhs.I)), nil
	case ir.OpMul:
		return value.IntValue(destTy, lhs.I.Mul(rhs.I)), nil
	case ir.OpUDiv:
		if rhs.I.IsZero() {
			return value.Value{}, NewSemanticError("udiv by zero")
		}
		return value.IntValue(destTy, lhs.I.UDiv(rhs.I)), nil
	case ir.OpSDiv:
		if rhs.I.IsZero() {
			return value.Value{}, NewSemanticError("sdiv by zero")
		}
		return value.IntValue(destTy, lhs.I.SDiv(rhs.I)), nil
	case ir.OpURem:
		if rhs.I.IsZero() {
			return value.Value{}, NewSemanticError("urem by zero")
		}
		return value.IntValue(destTy, lhs.I.URem(rhs.I)), nil
	case ir.OpSRem:
		if rhs.I.IsZero() {
			return value.Value{}, NewSemanticError("srem by zero")
		}
		return value.IntValue(destTy, lhs.I.SRem(rhs.I)), nil
	case ir.OpAnd:
		return value.IntValue(destTy, lhs.I.And(rhs.I)), nil
	case ir.OpOr:
		return value.IntValue(destTy, lhs.I.Or(rhs.I)), nil
	case ir.OpXor:
		return value.IntValue(destTy, lhs.I.Xor(rhs.I)), nil
	case ir.OpShl:
		return value.IntValue(destTy, lhs.I.Shl(rhs.I)), nil
	case ir.OpLShr:
		return value.IntValue(destTy, lhs.I.LShr(rhs.I)), nil
	case ir.OpAShr:
		return value.IntValue(destTy, lhs.I.AShr(rhs.I)), nil

	case ir.OpFAdd:
		return floatBinOp(lhs, rhs, destTy, func(a, b float64) float64 { return a + b }), nil
	case ir.OpFSub:
		return floatBinOp(lhs, rhs, destTy, func(a, b float64) float64 { return a - b }), nil
	case ir.OpFMul:
		return floatBinOp(lhs, rhs, destTy, func(a, b float64) float64 { return a * b }), nil
	case ir.OpFDiv:
		return floatBinOp(lhs, rhs, destTy, func(a, b float64) float64 { return a / b }), nil
	case ir.OpFRem:
		return floatBinOp(lhs, rhs, destTy, floatRem), nil

	default:
		return value.Value{}, NewSemanticError("unsupported arithmetic opcode %d", op)
	}
}

func floatRem(a, b float64) float64 { return math.Mod(a, b) }

func floatBinOp(lhs, rhs value.Value, destTy *ir.Type, f func(a, b float64) float64) value.Value {
	if destTy.Layout().Kind == ir.KindFloat32 {
		return value.F32Value(destTy, float32(f(float64(lhs.F32), float64(rhs.F32))))
	}
	return value.F64Value(destTy, f(lhs.F64, rhs.F64))
}

// evalFNeg implements unary float negation, elementwise.
func (e *Engine) evalFNeg(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	v, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	return negElementwise(v, instr.Type), nil
}

func negElementwise(v value.Value, destTy *ir.Type) value.Value {
	if v.Kind == value.KindAggregate {
		out := make([]value.Value, len(v.Agg))
		for i, lane := range v.Agg {
			out[i] = negScalar(lane, destTy.ElemType(i))
		}
		return value.Value{Ty: destTy, Kind: value.KindAggregate, Agg: out}
	}
	return negScalar(v, destTy)
}

func negScalar(v value.Value, destTy *ir.Type) value.Value {
	if destTy.Layout().Kind == ir.KindFloat32 {
		return value.F32Value(destTy, -v.F32)
	}
	return value.F64Value(destTy, -v.F64)
}

// evalICmp/evalFCmp implement spec.md §4.2's predicate dispatch,
// elementwise, producing an i1 (or vector of i1) result.
func (e *Engine) evalICmp(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	lhs, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	rhs, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	return icmpElementwise(lhs, rhs, instr.IntPred, instr.Type), nil
}

func icmpElementwise(lhs, rhs value.Value, pred ir.IntPredicate, destTy *ir.Type) value.Value {
	if lhs.Kind == value.KindAggregate {
		out := make([]value.Value, len(lhs.Agg))
		for i := range lhs.Agg {
			out[i] = icmpScalar(lhs.Agg[i], rhs.Agg[i], pred, destTy.ElemType(i))
		}
		return value.Value{Ty: destTy, Kind: value.KindAggregate, Agg: out}
	}
	return icmpScalar(lhs, rhs, pred, destTy)
}

func icmpScalar(lhs, rhs value.Value, pred ir.IntPredicate, destTy *ir.Type) value.Value {
	var a, b value.IntVal
	isPtr := lhs.Kind == value.KindPointer
	if isPtr {
		a = value.NewIntFromUint64(64, lhs.Ptr.Addr)
		b = value.NewIntFromUint64(64, rhs.Ptr.Addr)
	} else {
		a, b = lhs.I, rhs.I
	}
	var r bool
	switch pred {
	case ir.ICmpEQ:
		r = a.Eq(b)
	case ir.ICmpNE:
		r = !a.Eq(b)
	case ir.ICmpUGT:
		r = a.Ugt(b)
	case ir.ICmpUGE:
		r = a.Uge(b)
	case ir.ICmpULT:
		r = a.Ult(b)
	case ir.ICmpULE:
		r = a.Ule(b)
	case ir.ICmpSGT:
		r = a.Sgt(b)
	case ir.ICmpSGE:
		r = a.Sge(b)
	case ir.ICmpSLT:
		r = a.Slt(b)
	case ir.ICmpSLE:
		r = a.Sle(b)
	}
	return value.IntValue(destTy, boolToI1(r))
}

func boolToI1(b bool) value.IntVal {
	if b {
		return value.NewIntFromUint64(1, 1)
	}
	return value.Zero(1)
}

func (e *Engine) evalFCmp(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	lhs, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	rhs, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	return fcmpElementwise(lhs, rhs, instr.FloatPred, instr.Type), nil
}

func fcmpElementwise(lhs, rhs value.Value, pred ir.FloatPredicate, destTy *ir.Type) value.Value {
	if lhs.Kind == value.KindAggregate {
		out := make([]value.Value, len(lhs.Agg))
		for i := range lhs.Agg {
			out[i] = fcmpScalar(lhs.Agg[i], rhs.Agg[i], pred, destTy.ElemType(i))
		}
		return value.Value{Ty: destTy, Kind: value.KindAggregate, Agg: out}
	}
	return fcmpScalar(lhs, rhs, pred, destTy)
}

func fcmpScalar(lhs, rhs value.Value, pred ir.FloatPredicate, destTy *ir.Type) value.Value {
	a, b := floatScalar(lhs), floatScalar(rhs)
	unordered := isNaN(a) || isNaN(b)
	var r bool
	switch pred {
	case ir.FCmpFALSE:
		r = false
	case ir.FCmpTRUE:
		r = true
	case ir.FCmpORD:
		r = !unordered
	case ir.FCmpUNO:
		r = unordered
	case ir.FCmpOEQ:
		r = !unordered && a == b
	case ir.FCmpOGT:
		r = !unordered && a > b
	case ir.FCmpOGE:
		r = !unordered && a >= b
	case ir.FCmpOLT:
		r = !unordered && a < b
	case ir.FCmpOLE:
		r = !unordered && a <= b
	case ir.FCmpONE:
		r = !unordered && a != b
	case ir.FCmpUEQ:
		r = unordered || a == b
	case ir.FCmpUGT:
		r = unordered || a > b
	case ir.FCmpUGE:
		r = unordered || a >= b
	case ir.FCmpULT:
		r = unordered || a < b
	case ir.FCmpULE:
		r = unordered || a <= b
	case ir.FCmpUNE:
		r = unordered || a != b
	}
	return value.IntValue(destTy, boolToI1(r))
}

func floatScalar(v value.Value) float64 {
	if v.Kind == value.KindF32 {
		return float64(v.F32)
	}
	return v.F64
}

func isNaN(f float64) bool { return f != f }

// evalSelect implements the select instruction, elementwise when the
// condition operand is a vector of i1, per spec.md §4.2.
func (e *Engine) evalSelect(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	cond, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	t, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	f, err := e.resolveOperand(fr, instr.Operands[2])
	if err != nil {
		return value.Value{}, err
	}
	if cond.Kind == value.KindAggregate {
		out := make([]value.Value, len(cond.Agg))
		for i := range cond.Agg {
			if !cond.Agg[i].I.IsZero() {
				out[i] = t.Agg[i]
			} else {
				out[i] = f.Agg[i]
			}
		}
		return value.Value{Ty: instr.Type, Kind: value.KindAggregate, Agg: out}, nil
	}
	if !cond.I.IsZero() {
		return t, nil
	}
	return f, nil
}
