package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

var i32Ty = &ir.Type{Kind: ir.KindInt, IntWidth: 32, StoreSize: 4, AbiAlign: 4}

func TestFrameBindAndLookup(t *testing.T) {
	entry := &ir.BasicBlock{Name: "entry"}
	fn := &ir.Function{Name: "f", Blocks: []*ir.BasicBlock{entry}}
	fr := NewFrame(fn, nil)

	_, ok := fr.Lookup("x")
	assert.False(t, ok)

	fr.Bind("x", value.IntValue(i32Ty, value.NewIntFromUint64(32, 7)))
	v, ok := fr.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, uint64(7), v.I.Uint64())
}

func TestFrameBindEmptyNameIsNoOp(t *testing.T) {
	fr := NewFrame(&ir.Function{}, nil)
	fr.Bind("", value.IntValue(i32Ty, value.NewIntFromUint64(32, 1)))
	assert.Empty(t, fr.Values)
}

func TestFramePushAllocaIsIdempotent(t *testing.T) {
	fr := NewFrame(&ir.Function{}, nil)
	p := value.MiriPointer{Addr: 0x100, Prov: value.MiriProvenance{AllocID: 1, Tag: 1}}
	fr.PushAlloca(p)
	fr.PushAlloca(p)
	assert.Len(t, fr.Allocas(), 1)
}

func TestFrameAllocaReleaseOrderMatchesAllocationOrder(t *testing.T) {
	fr := NewFrame(&ir.Function{}, nil)
	p1 := value.MiriPointer{Addr: 0x100, Prov: value.MiriProvenance{AllocID: 1}}
	p2 := value.MiriPointer{Addr: 0x200, Prov: value.MiriProvenance{AllocID: 2}}
	fr.PushAlloca(p1)
	fr.PushAlloca(p2)
	assert.Equal(t, []value.MiriPointer{p1, p2}, fr.Allocas())
}

func TestFrameAdvanceToTracksPreviousBlock(t *testing.T) {
	a := &ir.BasicBlock{Name: "a"}
	b := &ir.BasicBlock{Name: "b"}
	fn := &ir.Function{Blocks: []*ir.BasicBlock{a, b}}
	fr := NewFrame(fn, nil)
	assert.Equal(t, a, fr.CurrentBlock)

	fr.AdvanceTo(b)
	assert.Equal(t, a, fr.PreviousBlock)
	assert.Equal(t, b, fr.CurrentBlock)
	assert.Equal(t, 0, fr.NextInstruction)
}

func TestFrameCurrentInstructionNilAtBlockEnd(t *testing.T) {
	entry := &ir.BasicBlock{Name: "entry", Instructions: []*ir.Instruction{
		{Op: ir.OpRet},
	}}
	fn := &ir.Function{Blocks: []*ir.BasicBlock{entry}}
	fr := NewFrame(fn, nil)
	assert.NotNil(t, fr.CurrentInstruction())

	fr.NextInstruction++
	assert.Nil(t, fr.CurrentInstruction())
}

func TestThreadPushPopAndDepth(t *testing.T) {
	th := NewThread(1, nil)
	assert.True(t, th.Empty())
	assert.Equal(t, -1, th.Depth())

	f1 := NewFrame(&ir.Function{Name: "f1"}, nil)
	th.Push(f1)
	assert.Equal(t, 0, th.Depth())
	assert.Equal(t, f1, th.Current())

	f2 := NewFrame(&ir.Function{Name: "f2"}, nil)
	th.Push(f2)
	assert.Equal(t, 1, th.Depth())

	popped := th.Pop()
	assert.Equal(t, f2, popped)
	assert.Equal(t, f1, th.Current())
}
