// Package value implements the uniform runtime value representation
// described in spec.md §3–§4.1: a tagged record carrying a scalar
// payload, pointer provenance, and nested aggregates, polymorphic over
// {scalar-int, scalar-f32, scalar-f64, scalar-pointer, aggregate} as
// spec.md §4.1 puts it. The representation is flat (a Go struct with a
// Kind discriminant) rather than an interface hierarchy, mirroring the
// "raw pointer-bearing union value -> tagged variant" strategy in
// spec.md §9.
package value

import "github.com/icmccorm/llvm-project/ir"

// Kind discriminates which field of Value is live.
type Kind uint8

const (
	KindInt Kind = iota
	KindF32
	KindF64
	KindPointer
	KindRaw
	KindAggregate
)

// Value is the uniform runtime carrier for any LLVM scalar, vector, or
// aggregate value, per spec.md §3.
type Value struct {
	// Ty is set whenever a Value is bound to an IR name (spec.md §3).
	Ty *ir.Type

	Kind Kind
	I    IntVal
	F32  float32
	F64  float64
	Ptr  MiriPointer
	Raw  [8]byte // untyped 8-byte scalar buffer, for opaque/raw scalars

	// Agg holds the ordered child values for vectors, arrays, and
	// structs. Its length must equal the static arity of Ty.
	Agg []Value
}

// Provenance returns the pointer provenance, meaningful only when Kind
// is KindPointer.
func (v Value) Provenance() MiriProvenance { return v.Ptr.Prov }

func IntValue(ty *ir.Type, i IntVal) Value {
	return Value{Ty: ty, Kind: KindInt, I: i}
}

func F32Value(ty *ir.Type, f float32) Value {
	return Value{Ty: ty, Kind: KindF32, F32: f}
}

func F64Value(ty *ir.Type, f float64) Value {
	return Value{Ty: ty, Kind: KindF64, F64: f}
}

func PointerValue(ty *ir.Type, p MiriPointer) Value {
	return Value{Ty: ty, Kind: KindPointer, Ptr: p}
}

// NewAggregate builds a zero-valued aggregate Value matching ty's static
// arity, per spec.md §3's aggregate-length invariant.
func NewAggregate(ty *ir.Type) Value {
	n := ty.Arity()
	agg := make([]Value, n)
	for i := range agg {
		agg[i] = ZeroOf(ty.ElemType(i))
	}
	return Value{Ty: ty, Kind: KindAggregate, Agg: agg}
}

// ZeroOf returns the zero Value of the given type.
func ZeroOf(ty *ir.Type) Value {
	lt := ty.Layout()
	switch lt.Kind {
	case ir.KindInt:
		return IntValue(ty, Zero(lt.IntWidth))
	case ir.KindFloat32:
		return F32Value(ty, 0)
	case ir.KindFloat64:
		return F64Value(ty, 0)
	case ir.KindPointer:
		return PointerValue(ty, NullPointer)
	case ir.KindArray, ir.KindStruct, ir.KindVector:
		return NewAggregate(ty)
	default:
		return Value{Ty: ty}
	}
}

// CheckInvariants validates the quantified invariant from spec.md §8:
// for a Value bound to a name with type τ, V.Ty == τ; if τ is integer
// of width w then V.I.Width() == w; if τ is an aggregate, len(V.Agg)
// equals τ's static arity.
func (v Value) CheckInvariants() bool {
	if v.Ty == nil {
		return true
	}
	lt := v.Ty.Layout()
	switch lt.Kind {
	case ir.KindInt:
		return v.Kind == KindInt && v.I.Width() == lt.IntWidth
	case ir.KindArray, ir.KindStruct, ir.KindVector:
		return v.Kind == KindAggregate && len(v.Agg) == lt.Arity()
	default:
		return true
	}
}
