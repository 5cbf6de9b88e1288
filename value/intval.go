package value

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// bytePool recycles the little/big-endian scratch buffers BytesLE and
// IntFromBytesLE churn through on every load/store round trip, the
// same leveldb/util.BufferPool the teacher leans on for its hot-path
// block buffers, repurposed here for per-Value byte conversions
// instead of trie/state I/O.
var bytePool = util.NewBufferPool(64)

// IntVal is an arbitrary-precision integer carrying its own bit width,
// per spec.md §3 ("If the logical type is an integer of width w,
// IntVal has bit width w"). The canonical representation is the
// unsigned value in [0, 2^width); signed interpretation is computed on
// demand by Signed().
//
// Widths up to 256 route their binary arithmetic through
// github.com/holiman/uint256, matching the teacher's fast path for EVM
// words (core/vm/instructions.go); wider widths (rare outside i256+
// bigint-style LLVM code) fall back to math/big directly. Both paths
// always normalize back to the canonical masked math/big form so the
// two are interchangeable to callers.
type IntVal struct {
	width uint32
	mag   *big.Int // canonical: 0 <= mag < 2^width
}

func mask(width uint32) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	m.Sub(m, big.NewInt(1))
	return m
}

func normalize(v *big.Int, width uint32) *big.Int {
	r := new(big.Int).And(v, mask(width))
	if r.Sign() < 0 {
		// math/big's And on a negative operand can stay negative when
		// v itself is negative; fall back to Mod for that case.
		m := new(big.Int).Lsh(big.NewInt(1), uint(width))
		r.Mod(v, m)
	}
	return r
}

// NewIntFromBigInt builds an IntVal of the given width from a (possibly
// signed, possibly out-of-range) big.Int, truncating per two's complement.
func NewIntFromBigInt(width uint32, v *big.Int) IntVal {
	return IntVal{width: width, mag: normalize(v, width)}
}

// NewIntFromUint64 builds an IntVal of the given width from a uint64.
func NewIntFromUint64(width uint32, v uint64) IntVal {
	return NewIntFromBigInt(width, new(big.Int).SetUint64(v))
}

// NewIntFromInt64 builds an IntVal of the given width from a signed int64.
func NewIntFromInt64(width uint32, v int64) IntVal {
	return NewIntFromBigInt(width, big.NewInt(v))
}

// Zero returns the zero value of the given width.
func Zero(width uint32) IntVal { return NewIntFromUint64(width, 0) }

func (v IntVal) Width() uint32 { return v.width }

// Unsigned returns the canonical unsigned magnitude.
func (v IntVal) Unsigned() *big.Int { return new(big.Int).Set(v.mag) }

// Signed returns the two's-complement signed interpretation.
func (v IntVal) Signed() *big.Int {
	if v.width == 0 || v.mag.Bit(int(v.width)-1) == 0 {
		return new(big.Int).Set(v.mag)
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(v.width))
	return new(big.Int).Sub(v.mag, full)
}

// Uint64 truncates the value to 64 bits, used for pointer-width casts.
func (v IntVal) Uint64() uint64 { return v.mag.Uint64() }

func (v IntVal) IsZero() bool { return v.mag.Sign() == 0 }

// useFastPath reports whether the 256-bit uint256 fast path applies.
func (v IntVal) useFastPath(other IntVal) bool {
	return v.width <= 256 && other.width <= 256
}

func toUint256(v IntVal) *uint256.Int {
	return new(uint256.Int).SetBytes(v.mag.Bytes())
}

func fromUint256(u *uint256.Int, width uint32) IntVal {
	return NewIntFromBigInt(width, u.ToBig())
}

func (v IntVal) binop(other IntVal, fast func(a, b *uint256.Int) *uint256.Int, slow func(a, b *big.Int) *big.Int) IntVal {
	if v.width != other.width {
		panic("value: IntVal binary op on mismatched widths")
	}
	if v.useFastPath(other) {
		return fromUint256(fast(toUint256(v), toUint256(other)), v.width)
	}
	return NewIntFromBigInt(v.width, slow(v.mag, other.mag))
}

func (v IntVal) Add(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Add(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
}

func (v IntVal) Sub(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Sub(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
}

func (v IntVal) Mul(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Mul(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) })
}

func (v IntVal) UDiv(o IntVal) IntVal {
	if o.IsZero() {
		panic("value: udiv by zero")
	}
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Div(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Div(a, b) })
}

func (v IntVal) URem(o IntVal) IntVal {
	if o.IsZero() {
		panic("value: urem by zero")
	}
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Mod(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Mod(a, b) })
}

// SDiv/SRem operate on the signed interpretation; LLVM's sdiv truncates
// toward zero like Go's big.Int.Quo, not toward -inf like Div/Mod.
func (v IntVal) SDiv(o IntVal) IntVal {
	if o.IsZero() {
		panic("value: sdiv by zero")
	}
	r := new(big.Int).Quo(v.Signed(), o.Signed())
	return NewIntFromBigInt(v.width, r)
}

func (v IntVal) SRem(o IntVal) IntVal {
	if o.IsZero() {
		panic("value: srem by zero")
	}
	r := new(big.Int).Rem(v.Signed(), o.Signed())
	return NewIntFromBigInt(v.width, r)
}

func (v IntVal) And(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.And(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).And(a, b) })
}

func (v IntVal) Or(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Or(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Or(a, b) })
}

func (v IntVal) Xor(o IntVal) IntVal {
	return v.binop(o,
		func(a, b *uint256.Int) *uint256.Int { return a.Xor(a, b) },
		func(a, b *big.Int) *big.Int { return new(big.Int).Xor(a, b) })
}

// nextPow2 returns the smallest power of two >= n (n>0), per spec.md
// §4.2's deterministic shift-mask rule.
func nextPow2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

// shiftAmount masks the shift operand by next_power_of_two(width)-1,
// the deterministic replacement for LLVM's undef-if-oversized rule
// (spec.md §4.2, §8).
func (v IntVal) shiftAmount(by IntVal) uint {
	m := uint64(nextPow2(v.width) - 1)
	return uint(by.Uint64() & m)
}

func (v IntVal) Shl(by IntVal) IntVal {
	n := v.shiftAmount(by)
	return NewIntFromBigInt(v.width, new(big.Int).Lsh(v.mag, n))
}

func (v IntVal) LShr(by IntVal) IntVal {
	n := v.shiftAmount(by)
	return NewIntFromBigInt(v.width, new(big.Int).Rsh(v.mag, n))
}

func (v IntVal) AShr(by IntVal) IntVal {
	n := v.shiftAmount(by)
	return NewIntFromBigInt(v.width, new(big.Int).Rsh(v.Signed(), n))
}

func (v IntVal) Not() IntVal {
	return NewIntFromBigInt(v.width, new(big.Int).Not(v.mag))
}

func (v IntVal) Eq(o IntVal) bool  { return v.mag.Cmp(o.mag) == 0 }
func (v IntVal) Ult(o IntVal) bool { return v.mag.Cmp(o.mag) < 0 }
func (v IntVal) Ule(o IntVal) bool { return v.mag.Cmp(o.mag) <= 0 }
func (v IntVal) Ugt(o IntVal) bool { return v.mag.Cmp(o.mag) > 0 }
func (v IntVal) Uge(o IntVal) bool { return v.mag.Cmp(o.mag) >= 0 }
func (v IntVal) Slt(o IntVal) bool { return v.Signed().Cmp(o.Signed()) < 0 }
func (v IntVal) Sle(o IntVal) bool { return v.Signed().Cmp(o.Signed()) <= 0 }
func (v IntVal) Sgt(o IntVal) bool { return v.Signed().Cmp(o.Signed()) > 0 }
func (v IntVal) Sge(o IntVal) bool { return v.Signed().Cmp(o.Signed()) >= 0 }

// Trunc truncates to a narrower width by masking.
func (v IntVal) Trunc(width uint32) IntVal {
	if width > v.width {
		panic("value: Trunc to a wider width")
	}
	return NewIntFromBigInt(width, v.mag)
}

// ZExt zero-extends to a wider width.
func (v IntVal) ZExt(width uint32) IntVal {
	if width < v.width {
		panic("value: ZExt to a narrower width")
	}
	return NewIntFromBigInt(width, v.mag)
}

// SExt sign-extends to a wider width.
func (v IntVal) SExt(width uint32) IntVal {
	if width < v.width {
		panic("value: SExt to a narrower width")
	}
	return NewIntFromBigInt(width, v.Signed())
}

// BytesLE returns the value's little-endian byte representation, sized
// to the type's store size (ceil(width/8) rounded up to byteLen).
func (v IntVal) BytesLE(byteLen int) []byte {
	scratch := bytePool.Get(byteLen)
	be := v.mag.FillBytes(scratch)
	out := make([]byte, byteLen)
	for i, j := 0, len(be)-1; i <= j; i, j = i+1, j-1 {
		out[i], out[j] = be[j], be[i]
	}
	bytePool.Put(scratch)
	return out
}

// IntFromBytesLE parses a little-endian byte buffer into an IntVal of
// the given bit width.
func IntFromBytesLE(width uint32, le []byte) IntVal {
	be := bytePool.Get(len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	v := NewIntFromBigInt(width, new(big.Int).SetBytes(be))
	bytePool.Put(be)
	return v
}
