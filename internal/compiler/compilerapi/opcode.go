package compilerapi

// Opcode identifies the operation an Inst performs. The set below covers exactly the
// opcodes the three CORE optimizations (PEA/SR, memory coalescing, register allocation)
// consume or produce; bytecode-ISA opcodes beyond these are out of scope (spec section 1)
// and are expected to reach the CORE already lowered to this vocabulary by the frontend.
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// --- control flow ---
	OpcodeJump
	OpcodeIfTrue
	OpcodeIfFalse
	OpcodeReturn
	OpcodeReturnVoid
	// OpcodeDeoptimize unconditionally exits to the interpreter, restoring state from its
	// SaveStateDeoptimize input.
	OpcodeDeoptimize
	// OpcodeDeoptimizeIf exits to the interpreter iff its condition input is true (before
	// decomposeDeopts splits it into a branch + OpcodeDeoptimize, see pea package).
	OpcodeDeoptimizeIf

	// --- calls ---
	OpcodeCall
	OpcodeCallIndirect
	// OpcodeCallInlined and OpcodeReturnInlined bracket an inlined callee's body; they must
	// balance on every path from entry (spec invariant).
	OpcodeCallInlined
	OpcodeReturnInlined

	// --- constants ---
	OpcodeIconst
	OpcodeFconst
	// OpcodeNullConst is the canonical default value for a reference field with no write;
	// the singleton ZeroInst placeholder resolves to it at scalar-replacement time.
	OpcodeNullConst

	// --- arithmetic (only what variable-evolution / constant folding need) ---
	OpcodeAddI
	OpcodeSubI
	OpcodeCast

	// --- compares ---
	OpcodeIcmp
	// OpcodeCompareRef compares two reference values for identity; foldable when both
	// sides are virtual with known state ids (spec 4.2).
	OpcodeCompareRef

	// --- phi ---
	OpcodePhi

	// --- allocation ---
	OpcodeNewObject
	OpcodeNewArray
	// OpcodeInitObject is accepted only when compiler_support_init_object_inst is set
	// (spec section 6); it behaves like NewObject but assumes the class is already
	// resolved/initialized.
	OpcodeInitObject
	OpcodeLoadAndInitClass

	// --- object / array memory ops ---
	OpcodeLoadObject
	OpcodeStoreObject
	OpcodeLoadArray
	OpcodeStoreArray
	// "I" suffix: constant index baked into the instruction rather than held as an input.
	OpcodeLoadArrayI
	OpcodeStoreArrayI
	OpcodeNullCheck

	// --- coalesced pair instructions (produced by memory coalescing) ---
	OpcodeLoadArrayPair
	OpcodeLoadArrayPairI
	OpcodeStoreArrayPair
	OpcodeStoreArrayPairI
	// OpcodeLoadPairPart extracts element `PairIndex()` (0 or 1) from a preceding pair load.
	OpcodeLoadPairPart

	// --- safepoints ---
	OpcodeSaveState
	OpcodeSafePoint
	OpcodeSaveStateDeoptimize

	opcodeCount
)

var opcodeNames = [...]string{
	OpcodeInvalid:             "invalid",
	OpcodeJump:                "Jump",
	OpcodeIfTrue:              "IfTrue",
	OpcodeIfFalse:             "IfFalse",
	OpcodeReturn:              "Return",
	OpcodeReturnVoid:          "ReturnVoid",
	OpcodeDeoptimize:          "Deoptimize",
	OpcodeDeoptimizeIf:        "DeoptimizeIf",
	OpcodeCall:                "Call",
	OpcodeCallIndirect:        "CallIndirect",
	OpcodeCallInlined:         "Call.Inlined",
	OpcodeReturnInlined:       "ReturnInlined",
	OpcodeIconst:              "Iconst",
	OpcodeFconst:              "Fconst",
	OpcodeNullConst:           "NullConst",
	OpcodeAddI:                "AddI",
	OpcodeSubI:                "SubI",
	OpcodeCast:                "Cast",
	OpcodeIcmp:                "Icmp",
	OpcodeCompareRef:          "CompareRef",
	OpcodePhi:                 "Phi",
	OpcodeNewObject:           "NewObject",
	OpcodeNewArray:            "NewArray",
	OpcodeInitObject:          "InitObject",
	OpcodeLoadAndInitClass:    "LoadAndInitClass",
	OpcodeLoadObject:          "LoadObject",
	OpcodeStoreObject:         "StoreObject",
	OpcodeLoadArray:           "LoadArray",
	OpcodeStoreArray:          "StoreArray",
	OpcodeLoadArrayI:          "LoadArrayI",
	OpcodeStoreArrayI:         "StoreArrayI",
	OpcodeNullCheck:           "NullCheck",
	OpcodeLoadArrayPair:       "LoadArrayPair",
	OpcodeLoadArrayPairI:      "LoadArrayPairI",
	OpcodeStoreArrayPair:      "StoreArrayPair",
	OpcodeStoreArrayPairI:     "StoreArrayPairI",
	OpcodeLoadPairPart:        "LoadPairPart",
	OpcodeSaveState:           "SaveState",
	OpcodeSafePoint:           "SafePoint",
	OpcodeSaveStateDeoptimize: "SaveStateDeoptimize",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return "unknown"
}

// IsTerminator reports whether o ends a basic block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpcodeJump, OpcodeIfTrue, OpcodeIfFalse, OpcodeReturn, OpcodeReturnVoid, OpcodeDeoptimize:
		return true
	default:
		return false
	}
}

// IsSaveState reports whether o is one of the three safepoint-carrying opcodes.
func (o Opcode) IsSaveState() bool {
	switch o {
	case OpcodeSaveState, OpcodeSafePoint, OpcodeSaveStateDeoptimize:
		return true
	default:
		return false
	}
}

// IsMemoryPair reports whether o is one of the coalesced pair opcodes.
func (o Opcode) IsMemoryPair() bool {
	switch o {
	case OpcodeLoadArrayPair, OpcodeLoadArrayPairI, OpcodeStoreArrayPair, OpcodeStoreArrayPairI:
		return true
	default:
		return false
	}
}

// CompareCond is the condition code carried by OpcodeIcmp / OpcodeCompareRef.
type CompareCond byte

const (
	CondInvalid CompareCond = iota
	CondEQ
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
)

func (c CompareCond) String() string {
	switch c {
	case CondEQ:
		return "eq"
	case CondNE:
		return "ne"
	case CondLT:
		return "lt"
	case CondLE:
		return "le"
	case CondGT:
		return "gt"
	case CondGE:
		return "ge"
	default:
		return "invalid"
	}
}
