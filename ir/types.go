// Package ir is the stand-in surface for "a materialized LLVM module":
// the loader, parser, and type system named out of scope in the spec.
// It exists only so the rest of this module has something concrete to
// dispatch on; a real embedding would replace it with bindings against
// LLVM's own C API or an llir/llvm-style pure Go IR library.
package ir

// TypeKind classifies an LLVM type far enough to drive interpretation
// without modeling the full type system (no opaque structs, no scalable
// vectors, no target extension type internals beyond their layout type).
type TypeKind uint8

const (
	KindVoid TypeKind = iota
	KindInt
	KindFloat32
	KindFloat64
	KindPointer
	KindArray
	KindStruct
	KindVector
	// KindTargetExt stands for a target-extension type that must be
	// unwrapped to its LayoutType before load/store, per spec.md §4.3.
	KindTargetExt
)

// Type is a reference to a materialized LLVM type. Only the fields the
// interpreter actually consults are modeled.
type Type struct {
	Kind TypeKind

	// IntWidth is meaningful when Kind == KindInt.
	IntWidth uint32

	// Elem is the element/pointee type for Array, Vector, and TargetExt
	// (LayoutType in the TargetExt case).
	Elem *Type

	// ArrayLen is the static arity for both Array and Vector types.
	ArrayLen uint64

	// Fields holds the member types for a Struct type, in declaration order.
	Fields []*Type

	// FieldOffsets holds the byte offset of each field, computed by the
	// module's struct layout (assumed available from the loader). Same
	// length as Fields.
	FieldOffsets []uint64

	// StoreSize and AbiAlign are the type's store size and ABI alignment
	// in bytes, as computed by the module's data layout.
	StoreSize uint64
	AbiAlign  uint64
}

// IsInteger reports whether t is (or layout-unwraps to) an integer type.
func (t *Type) IsInteger() bool { return t.Layout().Kind == KindInt }

// IsPointer reports whether t is (or layout-unwraps to) a pointer type.
func (t *Type) IsPointer() bool { return t.Layout().Kind == KindPointer }

// IsAggregate reports whether t is (or layout-unwraps to) an array,
// struct, or vector type.
func (t *Type) IsAggregate() bool {
	switch t.Layout().Kind {
	case KindArray, KindStruct, KindVector:
		return true
	default:
		return false
	}
}

// Arity is the static element/field count of an aggregate type.
func (t *Type) Arity() int {
	lt := t.Layout()
	switch lt.Kind {
	case KindArray, KindVector:
		return int(lt.ArrayLen)
	case KindStruct:
		return len(lt.Fields)
	default:
		return 0
	}
}

// ElemType returns the element type of an array/vector, or the field
// type at index i of a struct.
func (t *Type) ElemType(i int) *Type {
	lt := t.Layout()
	switch lt.Kind {
	case KindArray, KindVector:
		return lt.Elem
	case KindStruct:
		return lt.Fields[i]
	default:
		return nil
	}
}

// Layout unwraps a target-extension type to the type that governs its
// in-memory representation, per spec.md §4.3 ("unwrap target-extension
// types to their layout type"). All other kinds are their own layout.
func (t *Type) Layout() *Type {
	if t == nil {
		return &Type{Kind: KindVoid}
	}
	if t.Kind == KindTargetExt {
		return t.Elem.Layout()
	}
	return t
}

// AllocSize returns the number of bytes one instance of t occupies,
// i.e. its store size, used by alloca/GEP array-step offset math.
func (t *Type) AllocSize() uint64 {
	lt := t.Layout()
	if lt.StoreSize > 0 {
		return lt.StoreSize
	}
	// Deterministic fallback for fixture types that didn't bother
	// setting StoreSize explicitly (tests construct Types by hand).
	switch lt.Kind {
	case KindInt:
		return (uint64(lt.IntWidth) + 7) / 8
	case KindFloat32:
		return 4
	case KindFloat64:
		return 8
	case KindPointer:
		return 8
	case KindArray, KindVector:
		return lt.ArrayLen * lt.Elem.AllocSize()
	case KindStruct:
		var sz uint64
		for i, f := range lt.Fields {
			off := f.AllocSize()
			if i < len(lt.FieldOffsets) {
				off = lt.FieldOffsets[i] + f.AllocSize()
			}
			if off > sz {
				sz = off
			}
		}
		return sz
	default:
		return 0
	}
}
