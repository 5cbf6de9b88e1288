package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

func TestHandleIntRoundTrip(t *testing.T) {
	v := value.ZeroOf(&ir.Type{Kind: ir.KindInt, IntWidth: 32})
	h := NewHandle(&v)
	h.SetIntBytes(32, []byte{0x2A, 0, 0, 0})
	assert.Equal(t, uint64(42), h.Value().I.Uint64())
	assert.Equal(t, []byte{0x2A, 0, 0, 0}, h.GetIntBytes(4))
}

func TestHandleFloatRoundTrip(t *testing.T) {
	var v value.Value
	h := NewHandle(&v)
	h.SetFloat64(3.5)
	assert.Equal(t, 3.5, h.GetFloat64())
}

func TestHandleAggregateAccessDoesNotExposeBackingSlice(t *testing.T) {
	ty := &ir.Type{Kind: ir.KindArray, ArrayLen: 2, Elem: &ir.Type{Kind: ir.KindInt, IntWidth: 8}}
	v := value.NewAggregate(ty)
	h := NewHandle(&v)
	assert.Equal(t, 2, h.AggregateLen())

	lane := h.AggregateIndex(0)
	lane.SetIntBytes(8, []byte{7})
	assert.Equal(t, uint64(7), v.Agg[0].I.Uint64())
}

func TestHandleAggregateResizeGrowsWithZeroValues(t *testing.T) {
	elemTy := &ir.Type{Kind: ir.KindInt, IntWidth: 8}
	v := value.Value{Ty: &ir.Type{Kind: ir.KindArray, ArrayLen: 0, Elem: elemTy}, Kind: value.KindAggregate}
	h := NewHandle(&v)
	h.AggregateResize(3, elemTy)
	assert.Equal(t, 3, h.AggregateLen())
	assert.True(t, v.Agg[2].I.IsZero())
}
