package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icmccorm/llvm-project/ir"
)

var (
	i8Ty  = &ir.Type{Kind: ir.KindInt, IntWidth: 8, StoreSize: 1, AbiAlign: 1}
	i32Ty = &ir.Type{Kind: ir.KindInt, IntWidth: 32, StoreSize: 4, AbiAlign: 4}
	f32Ty = &ir.Type{Kind: ir.KindFloat32, StoreSize: 4, AbiAlign: 4}
	f64Ty = &ir.Type{Kind: ir.KindFloat64, StoreSize: 8, AbiAlign: 8}
	ptrTy = &ir.Type{Kind: ir.KindPointer, StoreSize: 8, AbiAlign: 8}
)

func TestTruncAndZExtRoundTrip(t *testing.T) {
	v := IntValue(i32Ty, NewIntFromUint64(32, 0xFF))
	trunc := Trunc(v, i8Ty)
	assert.Equal(t, uint64(0xFF), trunc.I.Uint64())

	back := ZExt(trunc, i32Ty)
	assert.Equal(t, uint64(0xFF), back.I.Uint64())
}

func TestFPToUIClampsNaNAndNegativeToZero(t *testing.T) {
	nan := F64Value(f64Ty, math.NaN())
	got := FPToUI(nan, i32Ty)
	assert.True(t, got.I.IsZero())

	neg := F64Value(f64Ty, -1.0)
	got = FPToUI(neg, i32Ty)
	assert.True(t, got.I.IsZero())
}

func TestUIToFPAndSIToFP(t *testing.T) {
	v := IntValue(i32Ty, NewIntFromUint64(32, 42))
	f := UIToFP(v, f64Ty)
	assert.Equal(t, 42.0, f.F64)

	neg := IntValue(i32Ty, NewIntFromInt64(32, -1))
	sf := SIToFP(neg, f64Ty)
	assert.Equal(t, -1.0, sf.F64)
}

func TestBitCastScalarReinterpretsBits(t *testing.T) {
	v := F32Value(f32Ty, 1.0)
	out, err := BitCast(v, i32Ty, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3F800000), out.I.Uint64())
}

func TestBitCastPointerPreservesProvenance(t *testing.T) {
	p := MiriPointer{Addr: 0x1000, Prov: MiriProvenance{AllocID: 7, Tag: 1}}
	v := PointerValue(ptrTy, p)
	out, err := BitCast(v, ptrTy, true)
	require.NoError(t, err)
	assert.Equal(t, p, out.Ptr)
}

func TestBitCastPointerToIntIsRejected(t *testing.T) {
	v := PointerValue(ptrTy, NullPointer)
	_, err := BitCast(v, i32Ty, true)
	assert.Error(t, err)
}

func TestZeroOfAggregateMatchesArity(t *testing.T) {
	arr := &ir.Type{Kind: ir.KindArray, ArrayLen: 3, Elem: i8Ty, StoreSize: 3, AbiAlign: 1}
	z := ZeroOf(arr)
	assert.True(t, z.CheckInvariants())
	assert.Len(t, z.Agg, 3)
}
