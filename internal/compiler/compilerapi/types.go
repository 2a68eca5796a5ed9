package compilerapi

// DataType is the value type carried by an Inst, mirroring the ISA-neutral type lattice
// the frontend emits (spec section 3).
type DataType byte

const (
	TypeInvalid DataType = iota
	TypeBool
	TypeI8
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
	TypeF32
	TypeF64
	TypeReference
	TypePointer
	TypeAny
	TypeVoid
	TypeNoType
)

// String implements fmt.Stringer.
func (t DataType) String() string {
	switch t {
	case TypeInvalid:
		return "invalid"
	case TypeBool:
		return "bool"
	case TypeI8:
		return "i8"
	case TypeU8:
		return "u8"
	case TypeI16:
		return "i16"
	case TypeU16:
		return "u16"
	case TypeI32:
		return "i32"
	case TypeU32:
		return "u32"
	case TypeI64:
		return "i64"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeReference:
		return "reference"
	case TypePointer:
		return "pointer"
	case TypeAny:
		return "any"
	case TypeVoid:
		return "void"
	case TypeNoType:
		return "no_type"
	default:
		return "unknown"
	}
}

// IsInt reports whether t is an integer type (signed or unsigned, any width).
func (t DataType) IsInt() bool {
	switch t {
	case TypeI8, TypeU8, TypeI16, TypeU16, TypeI32, TypeU32, TypeI64, TypeU64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is a floating-point type.
func (t DataType) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// IsReference reports whether t is a movable heap reference type.
func (t DataType) IsReference() bool {
	return t == TypeReference
}

// Bits returns the width of t in bits. Panics for types with no fixed width.
func (t DataType) Bits() int {
	switch t {
	case TypeBool, TypeI8, TypeU8:
		return 8
	case TypeI16, TypeU16:
		return 16
	case TypeI32, TypeU32, TypeF32:
		return 32
	case TypeI64, TypeU64, TypeF64, TypeReference, TypePointer:
		return 64
	default:
		panic("compilerapi: DataType.Bits called on type with no fixed width: " + t.String())
	}
}

// ZeroConstBits returns the bit pattern for this type's default/zero value, used when
// materializing ZeroInst placeholders during scalar replacement.
func (t DataType) ZeroConstBits() uint64 {
	return 0
}

// BlockID is the dense identifier of a BasicBlock within a Graph.
type BlockID uint32

// InstID is the dense identifier of an Inst within a Graph. Since every Inst defines at
// most one value in this IR (multi-return instructions are out of scope for the CORE),
// InstID doubles as the value identity used by use-def edges.
type InstID uint32

const InstIDInvalid InstID = ^InstID(0)

const BlockIDInvalid BlockID = ^BlockID(0)

// StateID names a VirtualState tracked by the partial escape analysis. MaterializedID is
// the reserved sentinel meaning "this value lives on the heap; no symbolic state tracked".
type StateID uint32

const MaterializedID StateID = 0
