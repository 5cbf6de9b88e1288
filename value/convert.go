package value

import (
	"fmt"
	"math"
	"math/big"

	"github.com/icmccorm/llvm-project/ir"
)

// elementwise applies f to each lane of a vector Value, or directly to
// a scalar Value, per spec.md §4.1 ("elementwise on vectors").
func elementwise(v Value, destTy *ir.Type, f func(lane Value, laneDestTy *ir.Type) Value) Value {
	if v.Kind != KindAggregate {
		return f(v, destTy)
	}
	out := make([]Value, len(v.Agg))
	for i, lane := range v.Agg {
		out[i] = f(lane, destTy.ElemType(i))
	}
	return Value{Ty: destTy, Kind: KindAggregate, Agg: out}
}

// Trunc narrows integer width, elementwise on vectors.
func Trunc(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		return IntValue(lt, lane.I.Trunc(lt.Layout().IntWidth))
	})
}

// ZExt zero-extends integer width, elementwise on vectors.
func ZExt(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		return IntValue(lt, lane.I.ZExt(lt.Layout().IntWidth))
	})
}

// SExt sign-extends integer width, elementwise on vectors.
func SExt(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		return IntValue(lt, lane.I.SExt(lt.Layout().IntWidth))
	})
}

// FPTrunc narrows f64 to f32.
func FPTrunc(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		return F32Value(lt, float32(lane.F64))
	})
}

// FPExt widens f32 to f64.
func FPExt(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		return F64Value(lt, float64(lane.F32))
	})
}

func floatOf(v Value) float64 {
	if v.Kind == KindF32 {
		return float64(v.F32)
	}
	return v.F64
}

// FPToUI/FPToSI round toward zero. Per spec.md §4.1, NaN/overflow
// follows LLVM's undefined semantics; this implementation is
// deterministic (clamped to the representable range) and documented
// here rather than left to crash, matching the spec's requirement that
// only finite in-range cases are asserted by tests.
func FPToUI(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		f := floatOf(lane)
		return IntValue(lt, floatToUintWidth(f, lt.Layout().IntWidth))
	})
}

func FPToSI(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		f := floatOf(lane)
		return IntValue(lt, floatToIntWidth(f, lt.Layout().IntWidth))
	})
}

func floatToUintWidth(f float64, width uint32) IntVal {
	if math.IsNaN(f) || f < 0 {
		return Zero(width)
	}
	if f >= math.Ldexp(1, int(width)) {
		return Zero(width).Not()
	}
	bi, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return NewIntFromBigInt(width, bi)
}

func floatToIntWidth(f float64, width uint32) IntVal {
	if math.IsNaN(f) {
		return Zero(width)
	}
	if bound := math.Ldexp(1, int(width)-1); f >= bound {
		return NewIntFromBigInt(width, new(big.Int).Rsh(mask(width), 1))
	} else if f <= -bound {
		return NewIntFromBigInt(width, new(big.Int).Lsh(big.NewInt(-1), uint(width-1)))
	}
	bi, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return NewIntFromBigInt(width, bi)
}

// UIToFP/SIToFP convert an arbitrary-width integer to f32/f64 via
// round-to-nearest-even, which is math/big's and Go's float conversion
// default.
func UIToFP(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		f := new(big.Float).SetInt(lane.I.Unsigned())
		return floatResult(f, lt)
	})
}

func SIToFP(v Value, destTy *ir.Type) Value {
	return elementwise(v, destTy, func(lane Value, lt *ir.Type) Value {
		f := new(big.Float).SetInt(lane.I.Signed())
		return floatResult(f, lt)
	})
}

func floatResult(f *big.Float, lt *ir.Type) Value {
	if lt.Layout().Kind == ir.KindFloat32 {
		f32, _ := f.Float32()
		return F32Value(lt, f32)
	}
	f64, _ := f.Float64()
	return F64Value(lt, f64)
}

// BitCast reinterprets bits without Oracle involvement for the
// scalar<->scalar and vector<->vector/scalar cases of spec.md §4.1.
// Pointer<->pointer bitcasts are handled here too and need no bit
// manipulation at all (address and provenance carry over unchanged);
// bitcasts between a pointer and a non-pointer type fail, which this
// function reports via the returned error.
func BitCast(v Value, destTy *ir.Type, littleEndian bool) (Value, error) {
	srcLt, dstLt := v.Ty.Layout(), destTy.Layout()

	if srcLt.Kind == ir.KindPointer || dstLt.Kind == ir.KindPointer {
		if srcLt.Kind != dstLt.Kind {
			return Value{}, fmt.Errorf("value: invalid bitcast between pointer and non-pointer type")
		}
		return PointerValue(destTy, v.Ptr), nil
	}

	if srcLt.Kind != ir.KindArray && srcLt.Kind != ir.KindVector &&
		dstLt.Kind != ir.KindArray && dstLt.Kind != ir.KindVector {
		// scalar<->scalar of equal width: reinterpret bit pattern.
		bits := scalarBitsLE(v)
		return scalarFromBitsLE(bits, destTy), nil
	}

	// vector<->vector or vector<->scalar: concatenate each source
	// element's bit pattern per the module's endianness, then
	// redistribute into the destination element count.
	var bitstream []byte
	if v.Kind == KindAggregate {
		for _, lane := range v.Agg {
			if lane.Kind == KindPointer {
				return Value{}, fmt.Errorf("value: pointer elements are disallowed in vector bitcasts")
			}
			bitstream = append(bitstream, laneBytes(lane, littleEndian)...)
		}
	} else {
		bitstream = laneBytes(v, littleEndian)
	}

	if dstLt.Kind != ir.KindVector {
		return scalarFromBitsLE(reorderForLane(bitstream, littleEndian), destTy), nil
	}

	n := dstLt.Arity()
	elemTy := dstLt.Elem
	elemBytes := int(elemTy.AllocSize())
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		start := i * elemBytes
		chunk := bitstream[start : start+elemBytes]
		out[i] = scalarFromBitsLE(reorderForLane(chunk, littleEndian), elemTy)
	}
	return Value{Ty: destTy, Kind: KindAggregate, Agg: out}, nil
}

func laneBytes(lane Value, littleEndian bool) []byte {
	b := scalarBitsLE(lane)
	if !littleEndian {
		reverse(b)
	}
	return b
}

func reorderForLane(b []byte, littleEndian bool) []byte {
	if littleEndian {
		return b
	}
	out := append([]byte(nil), b...)
	reverse(out)
	return out
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func scalarBitsLE(v Value) []byte {
	switch v.Kind {
	case KindInt:
		return v.I.BytesLE(int((v.I.Width() + 7) / 8))
	case KindF32:
		bits := math.Float32bits(v.F32)
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
	case KindF64:
		bits := math.Float64bits(v.F64)
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(bits >> (8 * i))
		}
		return out
	default:
		return append([]byte(nil), v.Raw[:]...)
	}
}

func scalarFromBitsLE(b []byte, ty *ir.Type) Value {
	lt := ty.Layout()
	switch lt.Kind {
	case ir.KindInt:
		return IntValue(ty, IntFromBytesLE(lt.IntWidth, b))
	case ir.KindFloat32:
		var bits uint32
		for i := 0; i < 4 && i < len(b); i++ {
			bits |= uint32(b[i]) << (8 * i)
		}
		return F32Value(ty, math.Float32frombits(bits))
	case ir.KindFloat64:
		var bits uint64
		for i := 0; i < 8 && i < len(b); i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		return F64Value(ty, math.Float64frombits(bits))
	default:
		var raw [8]byte
		copy(raw[:], b)
		return Value{Ty: ty, Kind: KindRaw, Raw: raw}
	}
}
