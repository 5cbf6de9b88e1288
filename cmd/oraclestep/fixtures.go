package main

import (
	"github.com/icmccorm/llvm-project/ir"
)

var (
	i1Ty  = &ir.Type{Kind: ir.KindInt, IntWidth: 1, StoreSize: 1, AbiAlign: 1}
	i8Ty  = &ir.Type{Kind: ir.KindInt, IntWidth: 8, StoreSize: 1, AbiAlign: 1}
	i32Ty = &ir.Type{Kind: ir.KindInt, IntWidth: 32, StoreSize: 4, AbiAlign: 4}
	i64Ty = &ir.Type{Kind: ir.KindInt, IntWidth: 64, StoreSize: 8, AbiAlign: 8}
	ptrTy = &ir.Type{Kind: ir.KindPointer, StoreSize: 8, AbiAlign: 8}
)

func constI(ty *ir.Type, v uint64) ir.ValueRef {
	width := ty.IntWidth
	return ir.ValueRef{Constant: &ir.ConstValue{Type: ty, IntBits: leBytes(v, int((width+7)/8))}}
}

func leBytes(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func ref(name string) ir.ValueRef { return ir.ValueRef{Name: name} }

// scenarioRet7 is spec.md §8 seed scenario 1: `ret i32 7` as the root
// of a thread.
func scenarioRet7() *ir.Module {
	m := ir.NewModule("ret7")
	entry := &ir.BasicBlock{Name: "entry"}
	entry.Instructions = []*ir.Instruction{
		{Op: ir.OpRet, Operands: []ir.ValueRef{constI(i32Ty, 7)}},
	}
	fn := &ir.Function{Name: "main", ReturnType: i32Ty, Blocks: []*ir.BasicBlock{entry}, Address: 1}
	entry.Function = fn
	m.Functions["main"] = fn
	return m
}

// scenarioAllocaStoreLoad is spec.md §8 seed scenario 2:
// `%p = alloca i64` ; `store i64 42, ptr %p` ; `%x = load i64, ptr %p` ; `ret i64 %x`.
func scenarioAllocaStoreLoad() *ir.Module {
	m := ir.NewModule("alloca_store_load")
	entry := &ir.BasicBlock{Name: "entry"}
	entry.Instructions = []*ir.Instruction{
		{Op: ir.OpAlloca, Name: "p", Type: &ir.Type{Kind: ir.KindPointer, StoreSize: 8, AbiAlign: 8, Elem: i64Ty}, Align: 8},
		{Op: ir.OpStore, Operands: []ir.ValueRef{constI(i64Ty, 42), ref("p")}, Operty: []*ir.Type{i64Ty}},
		{Op: ir.OpLoad, Name: "x", Type: i64Ty, Operands: []ir.ValueRef{ref("p")}, Align: 8},
		{Op: ir.OpRet, Operands: []ir.ValueRef{ref("x")}},
	}
	fn := &ir.Function{Name: "main", ReturnType: i64Ty, Blocks: []*ir.BasicBlock{entry}, Address: 1}
	entry.Function = fn
	m.Functions["main"] = fn
	return m
}

// scenarioGEP is spec.md §8 seed scenario 3:
// `%q = getelementptr i8, ptr %p, i64 3`.
func scenarioGEP() *ir.Module {
	m := ir.NewModule("gep")
	entry := &ir.BasicBlock{Name: "entry"}
	entry.Instructions = []*ir.Instruction{
		{Op: ir.OpAlloca, Name: "p", Type: &ir.Type{Kind: ir.KindPointer, StoreSize: 8, AbiAlign: 8, Elem: &ir.Type{Kind: ir.KindArray, ArrayLen: 16, Elem: i8Ty}}, Align: 1},
		{
			Op: ir.OpGetElementPtr, Name: "q", Type: ptrTy,
			Operands:   []ir.ValueRef{ref("p")},
			SourceType: i8Ty,
			GEPIndices: []ir.GEPIndex{{Operand: constI(i64Ty, 3), IndexedType: i8Ty, IndexBitWidth: 64}},
		},
		{Op: ir.OpPtrToInt, Name: "addr", Type: i64Ty, Operands: []ir.ValueRef{ref("q")}},
		{Op: ir.OpRet, Operands: []ir.ValueRef{ref("addr")}},
	}
	fn := &ir.Function{Name: "main", ReturnType: i64Ty, Blocks: []*ir.BasicBlock{entry}, Address: 1}
	entry.Function = fn
	m.Functions["main"] = fn
	return m
}

// scenarioForeignCall is spec.md §8 seed scenario 4: a declared
// `extern i32 @f(i32)` invoked as `call i32 @f(i32 5)`, requiring a
// pending-return step.
func scenarioForeignCall() *ir.Module {
	m := ir.NewModule("foreign_call")
	entry := &ir.BasicBlock{Name: "entry"}
	entry.Instructions = []*ir.Instruction{
		{
			Op: ir.OpCall, Name: "r", Type: i32Ty,
			CalleeName: "f", CalleeIsDecl: true,
			Args: []ir.ValueRef{constI(i32Ty, 5)},
		},
		{Op: ir.OpRet, Operands: []ir.ValueRef{ref("r")}},
	}
	fn := &ir.Function{Name: "main", ReturnType: i32Ty, Blocks: []*ir.BasicBlock{entry}, Address: 1}
	entry.Function = fn
	m.Functions["main"] = fn
	m.Functions["f"] = &ir.Function{Name: "f", Params: []ir.Param{{Name: "x", Type: i32Ty}}, ReturnType: i32Ty, Address: 2}
	return m
}

// scenarioPhiCycle is spec.md §8 seed scenario 6: block B has
// `%a = phi [%b0, pred]` and `%b = phi [%a0, pred]` where pred binds
// `%a0 = 1, %b0 = 2`; after B's entry %a=2, %b=1: each PHI takes the
// other name's value from pred, as bound before either PHI rebinds.
func scenarioPhiCycle() *ir.Module {
	m := ir.NewModule("phi_cycle")
	pred := &ir.BasicBlock{Name: "pred"}
	b := &ir.BasicBlock{Name: "b"}
	pred.Instructions = []*ir.Instruction{
		{Op: ir.OpAdd, Name: "a0", Type: i32Ty, Operands: []ir.ValueRef{constI(i32Ty, 1), constI(i32Ty, 0)}},
		{Op: ir.OpAdd, Name: "b0", Type: i32Ty, Operands: []ir.ValueRef{constI(i32Ty, 2), constI(i32Ty, 0)}},
		{Op: ir.OpBr, Successors: []*ir.BasicBlock{b}},
	}
	b.Instructions = []*ir.Instruction{
		{Op: ir.OpPhi, Name: "a", Type: i32Ty, IncomingPhi: []ir.PhiIncoming{{Pred: pred, Value: ref("b0")}}},
		{Op: ir.OpPhi, Name: "b", Type: i32Ty, IncomingPhi: []ir.PhiIncoming{{Pred: pred, Value: ref("a0")}}},
		{Op: ir.OpRet, Operands: []ir.ValueRef{ref("a")}},
	}
	fn := &ir.Function{Name: "main", ReturnType: i32Ty, Blocks: []*ir.BasicBlock{pred, b}, Address: 1}
	pred.Function, b.Function = fn, fn
	m.Functions["main"] = fn
	return m
}

var scenarios = map[string]func() *ir.Module{
	"ret7":        scenarioRet7,
	"allocafree":  scenarioAllocaStoreLoad,
	"gep":         scenarioGEP,
	"foreigncall": scenarioForeignCall,
	"phicycle":    scenarioPhiCycle,
}
