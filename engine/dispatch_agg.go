package engine

import (
	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// evalExtractValue navigates a chain of struct/array indices, per
// spec.md §4's aggregate operations.
func (e *Engine) evalExtractValue(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	agg, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	cur := agg
	for _, idx := range instr.Indices {
		if int(idx) >= len(cur.Agg) {
			return value.Value{}, NewSemanticError("extractvalue index %d out of range (len %d)", idx, len(cur.Agg))
		}
		cur = cur.Agg[idx]
	}
	return cur, nil
}

// evalInsertValue rebuilds the aggregate with one nested element
// replaced, copy-on-write per Value's element-is-a-Value shape (no
// aliasing between SSA values, matching spec.md §3's value semantics).
func (e *Engine) evalInsertValue(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	agg, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	elem, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	out := cloneValue(agg)
	cur := &out
	for i, idx := range instr.Indices {
		if int(idx) >= len(cur.Agg) {
			return value.Value{}, NewSemanticError("insertvalue index %d out of range (len %d)", idx, len(cur.Agg))
		}
		if i == len(instr.Indices)-1 {
			cur.Agg[idx] = elem
			break
		}
		cur = &cur.Agg[idx]
	}
	return out, nil
}

func cloneValue(v value.Value) value.Value {
	if v.Kind != value.KindAggregate {
		return v
	}
	agg := make([]value.Value, len(v.Agg))
	for i, lane := range v.Agg {
		agg[i] = cloneValue(lane)
	}
	out := v
	out.Agg = agg
	return out
}

// evalExtractElement pulls one lane out of a vector by a (possibly
// non-constant) index operand.
func (e *Engine) evalExtractElement(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	vec, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	idxV, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	idx := int(idxV.I.Uint64())
	if idx < 0 || idx >= len(vec.Agg) {
		return value.Value{}, NewSemanticError("extractelement index %d out of range (len %d)", idx, len(vec.Agg))
	}
	return vec.Agg[idx], nil
}

// evalInsertElement rebuilds a vector with one lane replaced.
func (e *Engine) evalInsertElement(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	vec, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	elem, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	idxV, err := e.resolveOperand(fr, instr.Operands[2])
	if err != nil {
		return value.Value{}, err
	}
	idx := int(idxV.I.Uint64())
	if idx < 0 || idx >= len(vec.Agg) {
		return value.Value{}, NewSemanticError("insertelement index %d out of range (len %d)", idx, len(vec.Agg))
	}
	out := cloneValue(vec)
	out.Agg[idx] = elem
	return out, nil
}

// evalShuffleVector builds a new vector from the mask, drawing lanes
// from the concatenation of the two source vectors; a negative mask
// entry (undef) yields the lane's zero value.
func (e *Engine) evalShuffleVector(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	a, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	b, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return value.Value{}, err
	}
	combined := append(append([]value.Value(nil), a.Agg...), b.Agg...)
	out := make([]value.Value, len(instr.ShuffleMask))
	elemTy := instr.Type.Layout().Elem
	for i, m := range instr.ShuffleMask {
		if m < 0 {
			out[i] = value.ZeroOf(elemTy)
			continue
		}
		if int(m) >= len(combined) {
			return value.Value{}, NewSemanticError("shufflevector mask index %d out of range (len %d)", m, len(combined))
		}
		out[i] = combined[m]
	}
	return value.Value{Ty: instr.Type, Kind: value.KindAggregate, Agg: out}, nil
}
