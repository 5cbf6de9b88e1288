package engine

import (
	"math/big"

	"github.com/icmccorm/llvm-project/frame"
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/oracle"
	"github.com/icmccorm/llvm-project/value"
)

// evalAlloca asks the Oracle for stack storage and records the returned
// pointer in the frame's alloca set, per spec.md §4.3/§3.
func (e *Engine) evalAlloca(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	n := uint64(1)
	if instr.NumElements.Name != "" || instr.NumElements.Constant != nil {
		nv, err := e.resolveOperand(fr, instr.NumElements)
		if err != nil {
			return value.Value{}, err
		}
		n = nv.I.Uint64()
	}
	elemSize := instr.Type.Layout().Elem.AllocSize()
	size := elemSize * n
	align := instr.Align
	if align == 0 {
		align = instr.Type.Layout().Elem.Layout().AbiAlign
		if align == 0 {
			align = 8
		}
	}

	var ptr value.MiriPointer
	e.timeHook("malloc", func() { ptr = e.hooks.Malloc(e.wrapper, size, align, true) })
	if ptr.Prov.IsNull() {
		return value.Value{}, oracle.NewHookFault("malloc", instrText2(instr))
	}
	fr.PushAlloca(ptr)
	return value.PointerValue(instr.Type, ptr), nil
}

// evalLoad reads a typed Value through the Oracle's load hook, per
// spec.md §4.3.
func (e *Engine) evalLoad(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	ptrV, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	lt := instr.Type.Layout()
	out := value.ZeroOf(instr.Type)
	handle := oracle.NewHandle(&out)

	align := instr.Align
	if align == 0 {
		align = lt.AbiAlign
	}
	var faulted bool
	e.timeHook("load", func() {
		faulted = e.hooks.Load(e.wrapper, handle, ptrV.Ptr, typeName(instr.Type), lt.StoreSize, align)
	})
	if faulted {
		return value.Value{}, oracle.NewHookFault("load", instrText2(instr))
	}
	return handle.Value(), nil
}

// evalStore writes a typed Value through the Oracle's store hook.
func (e *Engine) evalStore(fr *frame.Frame, instr *ir.Instruction) error {
	v, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	ptrV, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return err
	}
	ty := instr.Operty[0]
	lt := ty.Layout()
	handle := oracle.NewHandle(&v)

	align := instr.Align
	if align == 0 {
		align = lt.AbiAlign
	}
	var faulted bool
	e.timeHook("store", func() {
		faulted = e.hooks.Store(e.wrapper, handle, ptrV.Ptr, typeName(ty), lt.StoreSize, align)
	})
	if faulted {
		return oracle.NewHookFault("store", instrText2(instr))
	}
	return nil
}

// evalGEP walks the struct/array/pointer index chain to a single byte
// offset, then defers to the Oracle's gep hook for the actual pointer
// arithmetic, per spec.md §4.3 and seed scenario 3.
func (e *Engine) evalGEP(fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	base, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}

	var offset int64
	cur := instr.SourceType
	for _, step := range instr.GEPIndices {
		if step.Struct {
			if int(step.FieldIndex) >= len(cur.Layout().FieldOffsets) {
				return value.Value{}, NewSemanticError("getelementptr struct field %d out of range", step.FieldIndex)
			}
			offset += int64(cur.Layout().FieldOffsets[step.FieldIndex])
			cur = cur.Layout().Fields[step.FieldIndex]
			continue
		}
		if step.IndexBitWidth != 32 && step.IndexBitWidth != 64 {
			return value.Value{}, NewSemanticError("getelementptr index bit width %d is not 32 or 64", step.IndexBitWidth)
		}
		idxV, err := e.resolveOperand(fr, step.Operand)
		if err != nil {
			return value.Value{}, err
		}
		idx := idxV.I.Signed().Int64()
		offset += idx * int64(step.IndexedType.AllocSize())
		cur = step.IndexedType
	}

	var result value.MiriPointer
	e.timeHook("gep", func() { result = e.hooks.GEP(e.wrapper, base.Ptr, offset) })
	return value.PointerValue(instr.Type, result), nil
}

// vaListLayout is the engine-internal {frame_index, arg_index} encoding
// of a va_list, packed as a single i128 so it round-trips through a
// single Oracle load/store pair, per spec.md §9's "preserve this
// encoding so va_copy/va_arg/va_start remain bit-compatible" note.
var vaListLayout = &ir.Type{Kind: ir.KindInt, IntWidth: 128, StoreSize: 16, AbiAlign: 8}

func packVAList(frameIndex, argIndex uint64) value.IntVal {
	hi := new(big.Int).SetUint64(frameIndex)
	hi.Lsh(hi, 64)
	hi.Or(hi, new(big.Int).SetUint64(argIndex))
	return value.NewIntFromBigInt(128, hi)
}

func unpackVAList(iv value.IntVal) (frameIndex, argIndex uint64) {
	u := iv.Unsigned()
	hi := new(big.Int).Rsh(u, 64)
	lo := new(big.Int).And(u, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1)))
	return hi.Uint64(), lo.Uint64()
}

// evalVAStart initializes the pointed-at va_list with (frame_index =
// stack.size()-1, arg_index = 0), stored through the Oracle.
func (e *Engine) evalVAStart(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) error {
	ptrV, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	v := value.IntValue(vaListLayout, packVAList(uint64(t.Depth()), 0))
	handle := oracle.NewHandle(&v)
	var faulted bool
	e.timeHook("store", func() {
		faulted = e.hooks.Store(e.wrapper, handle, ptrV.Ptr, "va_list", vaListLayout.StoreSize, vaListLayout.AbiAlign)
	})
	if faulted {
		return oracle.NewHookFault("store", instrText2(instr))
	}
	return nil
}

// evalVACopy duplicates the index state from the source va_list into
// the destination.
func (e *Engine) evalVACopy(fr *frame.Frame, instr *ir.Instruction) error {
	dst, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return err
	}
	src, err := e.resolveOperand(fr, instr.Operands[1])
	if err != nil {
		return err
	}
	v := value.ZeroOf(vaListLayout)
	loadHandle := oracle.NewHandle(&v)
	var faulted bool
	e.timeHook("load", func() {
		faulted = e.hooks.Load(e.wrapper, loadHandle, src.Ptr, "va_list", vaListLayout.StoreSize, vaListLayout.AbiAlign)
	})
	if faulted {
		return oracle.NewHookFault("load", instrText2(instr))
	}
	storeHandle := oracle.NewHandle(&v)
	e.timeHook("store", func() {
		faulted = e.hooks.Store(e.wrapper, storeHandle, dst.Ptr, "va_list", vaListLayout.StoreSize, vaListLayout.AbiAlign)
	})
	if faulted {
		return oracle.NewHookFault("store", instrText2(instr))
	}
	return nil
}

// evalVAArg loads the index, looks up stack[frame_index].var_args[arg_index],
// binds the typed value, increments arg_index, and stores it back.
// Out-of-range indices are fatal (spec.md §4.3/§8's boundary behavior).
func (e *Engine) evalVAArg(t *frame.Thread, fr *frame.Frame, instr *ir.Instruction) (value.Value, error) {
	ptrV, err := e.resolveOperand(fr, instr.Operands[0])
	if err != nil {
		return value.Value{}, err
	}
	v := value.ZeroOf(vaListLayout)
	loadHandle := oracle.NewHandle(&v)
	var faulted bool
	e.timeHook("load", func() {
		faulted = e.hooks.Load(e.wrapper, loadHandle, ptrV.Ptr, "va_list", vaListLayout.StoreSize, vaListLayout.AbiAlign)
	})
	if faulted {
		return value.Value{}, oracle.NewHookFault("load", instrText2(instr))
	}

	frameIndex, argIndex := unpackVAList(v.I)
	if int(frameIndex) >= len(t.Stack) {
		return value.Value{}, NewSemanticError("va_arg: frame index %d out of range (stack depth %d)", frameIndex, len(t.Stack))
	}
	target := t.Stack[frameIndex]
	if int(argIndex) >= len(target.VarArgs) {
		return value.Value{}, NewSemanticError("va_arg: requested argument %d but only %d variadic arguments were supplied", argIndex, len(target.VarArgs))
	}
	result := target.VarArgs[argIndex]

	next := value.IntValue(vaListLayout, packVAList(frameIndex, argIndex+1))
	storeHandle := oracle.NewHandle(&next)
	e.timeHook("store", func() {
		faulted = e.hooks.Store(e.wrapper, storeHandle, ptrV.Ptr, "va_list", vaListLayout.StoreSize, vaListLayout.AbiAlign)
	})
	if faulted {
		return value.Value{}, oracle.NewHookFault("store", instrText2(instr))
	}
	return result, nil
}

// typeName is a minimal stand-in for a full type printer (out of
// scope, belongs to the loader): just enough structure for the Oracle
// to distinguish scalar kinds and widths in its load/store hooks.
func typeName(t *ir.Type) string {
	lt := t.Layout()
	switch lt.Kind {
	case ir.KindInt:
		return intTypeName(lt.IntWidth)
	case ir.KindFloat32:
		return "f32"
	case ir.KindFloat64:
		return "f64"
	case ir.KindPointer:
		return "ptr"
	case ir.KindArray:
		return "array"
	case ir.KindStruct:
		return "struct"
	case ir.KindVector:
		return "vector"
	default:
		return "void"
	}
}

func intTypeName(width uint32) string {
	switch width {
	case 1:
		return "i1"
	case 8:
		return "i8"
	case 16:
		return "i16"
	case 32:
		return "i32"
	case 64:
		return "i64"
	case 128:
		return "i128"
	default:
		return "iN"
	}
}
