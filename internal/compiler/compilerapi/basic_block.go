package compilerapi

// BlockFlags are the per-block bit flags from spec section 3.
type BlockFlags uint32

const (
	BlockStart BlockFlags = 1 << iota
	BlockEnd
	BlockTryBegin
	BlockTryEnd
	BlockCatchBegin
	BlockOSREntry
	BlockEmpty
	BlockNeedsJump
)

func (f BlockFlags) Has(bit BlockFlags) bool { return f&bit != 0 }

// predEdge records one predecessor of a BasicBlock together with the branch instruction in
// that predecessor responsible for the edge, mirroring the teacher's
// basicBlockPredecessorInfo.
type predEdge struct {
	blk    BlockID
	branch InstID
}

// BasicBlock is a maximal straight-line sequence of instructions ending in at most one
// terminator (two if the terminator pair is a conditional branch represented as IfTrue +
// IfFalse siblings). See spec section 3.
type BasicBlock struct {
	id BlockID

	preds []predEdge
	succ  []BlockID

	// root/tail of the intrusive instruction list; phis are not modeled as a separate list
	// here (unlike the teacher) because this IR's phis are real Inst values (OpcodePhi)
	// threaded into the same list, always placed before the first non-phi instruction.
	root, tail InstID

	domParent BlockID
	loop      *Loop

	flags BlockFlags
	// guestPC is the originating bytecode program counter, opaque to the CORE beyond
	// carrying it through for the embedder's OSR/deopt tables (section 1, non-goals).
	guestPC uint32

	// reversePostOrder is assigned by dominators.go and used by its intersectDoms to walk
	// the domParent chains of two blocks toward their common dominator.
	reversePostOrder int

	// markerBits is scratch storage for MarkerScope.
	markerBits uint64

	invalid bool
}

// ID returns the dense identifier of this block.
func (b *BasicBlock) ID() BlockID { return b.id }

// Preds returns the number of predecessors.
func (b *BasicBlock) Preds() int { return len(b.preds) }

// PredBlock returns the block id of the n-th predecessor.
func (b *BasicBlock) PredBlock(n int) BlockID { return b.preds[n].blk }

// PredBranch returns the branch instruction responsible for the n-th predecessor edge.
func (b *BasicBlock) PredBranch(n int) InstID { return b.preds[n].branch }

// Succs returns the successor block ids, in program order (spec: "successors... in the
// natural program order").
func (b *BasicBlock) Succs() []BlockID { return b.succ }

// Root returns the first instruction of the block, or InstIDInvalid if empty.
func (b *BasicBlock) Root() InstID { return b.root }

// Tail returns the last instruction of the block, or InstIDInvalid if empty.
func (b *BasicBlock) Tail() InstID { return b.tail }

// DomParent returns the immediate dominator of this block.
func (b *BasicBlock) DomParent() BlockID { return b.domParent }

// Loop returns the innermost natural loop containing this block, or nil.
func (b *BasicBlock) Loop() *Loop { return b.loop }

// Flags returns the block's flag bits.
func (b *BasicBlock) Flags() BlockFlags { return b.flags }

// SetFlag ORs bit into this block's flags.
func (b *BasicBlock) SetFlag(bit BlockFlags) { b.flags |= bit }

// Valid reports whether this block survived dead-block elimination.
func (b *BasicBlock) Valid() bool { return !b.invalid }

// IsEmpty reports whether the block has no instructions.
func (b *BasicBlock) IsEmpty() bool { return b.root == InstIDInvalid }

// GuestPC returns the originating bytecode program counter.
func (b *BasicBlock) GuestPC() uint32 { return b.guestPC }

// SetGuestPC sets the originating bytecode program counter.
func (b *BasicBlock) SetGuestPC(pc uint32) { b.guestPC = pc }

// ReversePostOrder returns this block's index in the function's RPO numbering, valid after
// the dominators pass has run.
func (b *BasicBlock) ReversePostOrder() int { return b.reversePostOrder }

// reset clears a BasicBlock back to its zero state for arena reuse.
func (b *BasicBlock) reset() {
	*b = BasicBlock{id: b.id, root: InstIDInvalid, tail: InstIDInvalid, domParent: BlockIDInvalid}
}
