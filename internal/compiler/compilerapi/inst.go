package compilerapi

// InstFlags are the per-instruction bit flags from spec section 3.
type InstFlags uint32

const (
	FlagNoDCE InstFlags = 1 << iota
	FlagTerminator
	FlagCanThrow
	FlagCanDeoptimize
	FlagBarrier
	FlagRequiresState
	FlagCatchInput
	FlagInlined
	FlagIsStore
	FlagIsLoad
	FlagIsCall
	FlagMovableObject
)

func (f InstFlags) Has(bit InstFlags) bool { return f&bit != 0 }

// ClassID and FieldID identify runtime class/field metadata resolved through the Runtime
// capability; the CORE never interprets them beyond passing them to Runtime queries.
type ClassID uint32

// FieldRef is the tagged union field { FieldPtr } from spec section 3: it names a single
// declared object field. Array "fields" are expressed separately via ArrayIndex.
type FieldRef struct {
	Class ClassID
	Field uint32
}

// MethodID identifies a callee for OpcodeCall/OpcodeCallIndirect/OpcodeCallInlined.
type MethodID uint32

// Input is one operand slot of an Inst: an edge to a producer plus the type expected at
// this slot (which may legitimately differ from the producer's own type across a Cast-free
// narrowing use, hence it is tracked per-slot rather than read off the producer).
type Input struct {
	value InstID
	typ   DataType
	// userPos is the index of the reciprocal Use record in the producer's users slice,
	// maintained by SetInput/unlinkUser so the user list can be edited in O(1).
	userPos int
}

// Value returns the producer instruction id of this input slot, or InstIDInvalid if unset.
func (in Input) Value() InstID { return in.value }

// Type returns the type expected at this input slot.
func (in Input) Type() DataType { return in.typ }

// Use is one entry of a producer's user list: some other instruction (User) references the
// producer through input slot Slot.
type Use struct {
	User InstID
	Slot int
}

// SaveStateEntry is one (value, virtual_register) pair of a SaveStateInst.
type SaveStateEntry struct {
	Value InstID
	VReg  uint32
}

// SaveStateData is the payload carried by SaveState/SafePoint/SaveStateDeoptimize
// instructions (spec section 3, "SaveStateInst").
type SaveStateData struct {
	// Entries mirrors the inputs slice 1:1 in order; Entries[i].Value == inst.inputs[i].value.
	// It additionally carries the virtual register each input is bound to.
	Entries []SaveStateEntry
	// CallerCall, if valid, is the Call.Inlined instruction this save state is nested
	// under, giving the inlining depth chain.
	CallerCall InstID
	// Virtualized marks, by input index, which inputs were references into a PEA virtual
	// state at the time this save state was captured; scalar replacement strips these
	// entries (or nulls them, for inlined calls, to preserve arity).
	Virtualized []bool
}

// Inst is the sum-type instruction record described in spec section 3: a typed value with
// an opcode, an ordered input list, a symmetric user list, flags, and an opcode-specific
// payload. Every field below is either common to all opcodes or is documented as "valid
// only when Opcode() is one of ...".
type Inst struct {
	id     InstID
	opcode Opcode
	typ    DataType
	blk    BlockID
	prev   InstID
	next   InstID

	inputs []Input
	users  []Use

	flags InstFlags
	// gid is a group id for instructions that are interchangeable modulo reordering; no
	// pass in this repository sets or reads it.
	gid uint32

	// location is filled in by the register allocator (via SetLocation); nothing writes
	// dstReg/srcReg, so they stay zero.
	dstReg   uint32
	srcReg   uint32
	location Location

	// --- variant payload; which fields are meaningful depends on opcode ---
	constBits uint64      // Iconst/Fconst
	cond      CompareCond // Icmp / CompareRef
	field     FieldRef    // LoadObject / StoreObject
	class     ClassID     // NewObject / NewArray / LoadAndInitClass / InitObject
	arrayElem DataType    // NewArray component type
	constIdx  int64       // LoadArrayI/StoreArrayI/LoadArrayPairI/StoreArrayPairI; -1 if n/a
	pairIndex int         // LoadPairPart: 0 or 1
	method    MethodID    // Call/CallIndirect/CallInlined
	saveState *SaveStateData
	// targets holds branch destinations for terminators that carry them (Jump/IfTrue/IfFalse).
	targets []BlockID
	// phiInputs holds, for OpcodePhi, one producer per predecessor in predecessor order.
	phiInputs []InstID

	live bool // scratch bit used by dead-code elimination
}

// ID returns the dense identifier of this instruction.
func (i *Inst) ID() InstID { return i.id }

// Opcode returns this instruction's opcode.
func (i *Inst) Opcode() Opcode { return i.opcode }

// Type returns the result type of this instruction.
func (i *Inst) Type() DataType { return i.typ }

// Block returns the id of the basic block containing this instruction.
func (i *Inst) Block() BlockID { return i.blk }

// Flags returns the flag bits of this instruction.
func (i *Inst) Flags() InstFlags { return i.flags }

// SetFlag ORs bit into this instruction's flags.
func (i *Inst) SetFlag(bit InstFlags) { i.flags |= bit }

// ClearFlag clears bit from this instruction's flags.
func (i *Inst) ClearFlag(bit InstFlags) { i.flags &^= bit }

// Prev/Next walk the intrusive instruction list of the owning BasicBlock.
func (i *Inst) Prev() InstID { return i.prev }
func (i *Inst) Next() InstID { return i.next }

// NumInputs returns the number of operand slots.
func (i *Inst) NumInputs() int { return len(i.inputs) }

// Input returns the n-th operand slot.
func (i *Inst) Input(n int) Input { return i.inputs[n] }

// Users returns the (read-only) list of instructions that use this instruction's result.
func (i *Inst) Users() []Use { return i.users }

// RequiresState reports whether one of this instruction's inputs is a SaveState, matching
// the spec invariant "requires_state holds iff one of the inputs is a SaveState".
func (i *Inst) RequiresState() bool { return i.flags.Has(FlagRequiresState) }

// ConstBits returns the raw constant payload of an Iconst/Fconst instruction.
func (i *Inst) ConstBits() uint64 { return i.constBits }

// Cond returns the compare condition of an Icmp/CompareRef instruction.
func (i *Inst) Cond() CompareCond { return i.cond }

// Field returns the field reference of a LoadObject/StoreObject instruction.
func (i *Inst) Field() FieldRef { return i.field }

// Class returns the class id of a NewObject/NewArray/LoadAndInitClass/InitObject instruction.
func (i *Inst) Class() ClassID { return i.class }

// ArrayElemType returns the array component type of a NewArray instruction.
func (i *Inst) ArrayElemType() DataType { return i.arrayElem }

// ConstIndex returns the baked-in constant index of an "I"-suffixed array op, or -1 if the
// index is instead carried as a regular input (non-constant index).
func (i *Inst) ConstIndex() int64 { return i.constIdx }

// PairIndex returns which half (0 or 1) of a coalesced pair a LoadPairPart extracts.
func (i *Inst) PairIndex() int { return i.pairIndex }

// Method returns the callee id of a Call/CallIndirect/CallInlined instruction.
func (i *Inst) Method() MethodID { return i.method }

// SaveState returns the SaveStateData payload; valid only on SaveState/SafePoint/
// SaveStateDeoptimize instructions.
func (i *Inst) SaveState() *SaveStateData { return i.saveState }

// Targets returns the branch target blocks of a terminator.
func (i *Inst) Targets() []BlockID { return i.targets }

// PhiInputs returns, for an OpcodePhi, one producer InstID per predecessor (in predecessor
// order as recorded on the owning BasicBlock).
func (i *Inst) PhiInputs() []InstID { return i.phiInputs }

// Location is populated by the register allocator; zero/invalid before. DstReg/SrcReg are
// not written by any pass and always return zero.
func (i *Inst) DstReg() uint32    { return i.dstReg }
func (i *Inst) SrcReg() uint32    { return i.srcReg }
func (i *Inst) Location() Location { return i.location }
func (i *Inst) SetLocation(l Location) { i.location = l }

// Constant reports whether this instruction is a constant-producing opcode.
func (i *Inst) Constant() bool {
	return i.opcode == OpcodeIconst || i.opcode == OpcodeFconst || i.opcode == OpcodeNullConst
}

// reset clears an Inst back to its zero state for arena reuse.
func (i *Inst) reset() {
	*i = Inst{id: i.id, prev: InstIDInvalid, next: InstIDInvalid, constIdx: -1}
}

// Location describes where a value lives after register allocation: either a machine
// register (by class + number) or a stack slot.
type Location struct {
	Kind LocationKind
	Reg  uint32 // valid when Kind == LocationRegister
	Slot uint32 // valid when Kind == LocationStack
}

type LocationKind byte

const (
	LocationNone LocationKind = iota
	LocationRegister
	LocationStack
)
