// Package oracle defines the fixed callback surface between the
// interpreter and the external memory/provenance model named "the
// Oracle" in spec.md (e.g. Rust's Miri) — §4.5's hook table — plus the
// opaque value handles that cross that boundary.
package oracle

import (
	"github.com/icmccorm/llvm-project/ir"
	"github.com/icmccorm/llvm-project/value"
)

// Handle is an opaque reference to an engine-owned Value, crossing the
// Oracle boundary as described in spec.md §9 ("since Values are
// engine-owned, expose them to the Oracle as... pinned owning
// references; avoid leaking internal layout"). The Oracle may only
// read/write a Handle's payload through the accessor methods below,
// never through direct field access.
type Handle struct {
	v *value.Value
}

// NewHandle pins v for Oracle access.
func NewHandle(v *value.Value) Handle { return Handle{v: v} }

func (h Handle) Type() *ir.Type { return h.v.Ty }

func (h Handle) SetType(t *ir.Type) { h.v.Ty = t }

// GetIntBytes returns the little-endian byte representation of an
// integer-kind handle, sized to byteLen.
func (h Handle) GetIntBytes(byteLen int) []byte {
	return h.v.I.BytesLE(byteLen)
}

// SetIntBytes rebinds the handle to an integer Value of the given
// width, decoded little-endian from b.
func (h Handle) SetIntBytes(width uint32, b []byte) {
	h.v.Kind = value.KindInt
	h.v.I = value.IntFromBytesLE(width, b)
}

func (h Handle) GetFloat32() float32 { return h.v.F32 }
func (h Handle) SetFloat32(f float32) {
	h.v.Kind = value.KindF32
	h.v.F32 = f
}

func (h Handle) GetFloat64() float64 { return h.v.F64 }
func (h Handle) SetFloat64(f float64) {
	h.v.Kind = value.KindF64
	h.v.F64 = f
}

func (h Handle) GetPointer() value.MiriPointer { return h.v.Ptr }
func (h Handle) SetPointer(p value.MiriPointer) {
	h.v.Kind = value.KindPointer
	h.v.Ptr = p
}

// AggregateLen/AggregateIndex/AggregateAppend/AggregateResize give the
// Oracle structural access to a vector/array/struct handle without
// exposing the backing slice.
func (h Handle) AggregateLen() int { return len(h.v.Agg) }

func (h Handle) AggregateIndex(i int) Handle { return Handle{v: &h.v.Agg[i]} }

func (h Handle) AggregateAppend(elem value.Value) {
	h.v.Kind = value.KindAggregate
	h.v.Agg = append(h.v.Agg, elem)
}

func (h Handle) AggregateResize(n int, elemTy *ir.Type) {
	h.v.Kind = value.KindAggregate
	if n <= len(h.v.Agg) {
		h.v.Agg = h.v.Agg[:n]
		return
	}
	for len(h.v.Agg) < n {
		h.v.Agg = append(h.v.Agg, value.ZeroOf(elemTy))
	}
}

// Value copies out the handle's current Value.
func (h Handle) Value() value.Value { return *h.v }

// SetValue overwrites the handle's Value wholesale.
func (h Handle) SetValue(v value.Value) { *h.v = v }
