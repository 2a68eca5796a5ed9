package compilerapi

// Mode is the bitset of compilation mode flags carried by a Graph (spec section 3).
type Mode uint32

const (
	ModeBytecodeOptimizer Mode = 1 << iota
	ModeJIT
	ModeOSR
	ModeDynamic
	ModeHasInliningComplete
)

func (m Mode) Has(bit Mode) bool { return m&bit != 0 }

// ArchDescriptor names the target architecture a Graph is being compiled for. Memory
// coalescing (spec 4.4) is only legal when the target supports pair memory ops.
type ArchDescriptor struct {
	Name                string
	SupportsMemoryPairs bool
}

// Options are the recognized compiler option flags (spec section 6).
type Options struct {
	ScalarReplacement         bool
	MemoryCoalescing          bool
	MemoryCoalescingObjects   bool
	UseSafepoint              bool
	SupportInitObjectInst     bool
	InlineFullIntrinsics      bool
}

// Graph owns the whole IR for one compilation unit: a typed arena of instructions, an
// arena of basic blocks, and a short-lived scratch arena reused by individual passes
// (spec section 3 "Lifetimes"). A Graph is single-owner and never shared across goroutines
// (spec section 5).
type Graph struct {
	instPool  Pool[Inst]
	blockPool Pool[BasicBlock]
	// scratch is reset between passes; passes that need per-pass working storage allocate
	// out of it via Graph.ScratchInts/ScratchBools rather than making their own slices,
	// so repeated compiles don't re-allocate.
	scratchInts  []int
	scratchBools []bool

	blocks []*BasicBlock

	startBlock BlockID
	endBlock   BlockID

	rootLoop *Loop

	markers markerAllocator

	Arch    ArchDescriptor
	Mode    Mode
	Options Options
	Runtime Runtime

	// analysis cache; invalidated by any pass that changes control flow (AppendInst/
	// InsertBefore/... do not invalidate it, only block/edge mutation does).
	domValid  bool
	loopValid bool
	rpoCache  []*BasicBlock

	nextValueAnnotation int
}

// NewGraph returns an empty Graph ready for block/instruction construction.
func NewGraph(arch ArchDescriptor, mode Mode, opts Options, rt Runtime) *Graph {
	g := &Graph{
		instPool:   NewPool[Inst](),
		blockPool:  NewPool[BasicBlock](),
		startBlock: BlockIDInvalid,
		endBlock:   BlockIDInvalid,
		Arch:       arch,
		Mode:       mode,
		Options:    opts,
		Runtime:    rt,
	}
	return g
}

// Inst dereferences a dense InstID into its backing Inst.
func (g *Graph) Inst(id InstID) *Inst {
	if id == InstIDInvalid {
		return nil
	}
	return g.instPool.View(int(id))
}

// Block dereferences a dense BlockID into its backing BasicBlock.
func (g *Graph) Block(id BlockID) *BasicBlock {
	if id == BlockIDInvalid {
		return nil
	}
	return g.blockPool.View(int(id))
}

// NewBlock allocates a fresh, empty BasicBlock.
func (g *Graph) NewBlock() *BasicBlock {
	blk := g.blockPool.Allocate()
	blk.reset()
	blk.id = BlockID(g.blockPool.Allocated() - 1)
	g.blocks = append(g.blocks, blk)
	g.InvalidateControlFlow()
	return blk
}

// NewInst allocates a fresh instruction of the given opcode/type. It is not yet attached to
// any block; callers use AppendInst/InsertBefore/InsertAfter to place it.
func (g *Graph) NewInst(op Opcode, typ DataType) *Inst {
	inst := g.instPool.Allocate()
	inst.reset()
	inst.id = InstID(g.instPool.Allocated() - 1)
	inst.opcode = op
	inst.typ = typ
	inst.blk = BlockIDInvalid
	return inst
}

// StartBlock/EndBlock/SetStartBlock/SetEndBlock manage the graph's distinguished entry and
// (optional) return block.
func (g *Graph) StartBlock() BlockID { return g.startBlock }
func (g *Graph) EndBlock() BlockID   { return g.endBlock }

func (g *Graph) SetStartBlock(id BlockID) {
	g.startBlock = id
	g.Block(id).SetFlag(BlockStart)
}

func (g *Graph) SetEndBlock(id BlockID) {
	g.endBlock = id
	g.Block(id).SetFlag(BlockEnd)
}

// NumBlocks returns the number of blocks ever allocated (including invalidated ones).
func (g *Graph) NumBlocks() int { return len(g.blocks) }

// Blocks returns every allocated block in allocation order, including invalid ones; callers
// that want only reachable blocks should use RPOBlocks (dominators.go) after running the
// dominator pass.
func (g *Graph) Blocks() []*BasicBlock { return g.blocks }

// InvalidateControlFlow marks the dominator/loop analyses stale. Any mutation that changes
// control flow (new block, new edge, branch retargeting) must call this.
func (g *Graph) InvalidateControlFlow() {
	g.domValid = false
	g.loopValid = false
}

// ScratchInts returns a zero-length slice backed by the graph's reusable scratch-int
// buffer; passes append to it and discard the result (or call ReleaseScratchInts) when
// done, so repeated compiles of the same function don't churn the allocator.
func (g *Graph) ScratchInts() []int { return g.scratchInts[:0] }

// ReleaseScratchInts returns a scratch slice borrowed via ScratchInts for reuse.
func (g *Graph) ReleaseScratchInts(s []int) { g.scratchInts = s[:0] }

func (g *Graph) ScratchBools() []bool { return g.scratchBools[:0] }

func (g *Graph) ReleaseScratchBools(s []bool) { g.scratchBools = s[:0] }

// AnnotateValue returns a small incrementing tag, useful only for debug formatting of
// otherwise-anonymous constructed values in tests.
func (g *Graph) AnnotateValue() int {
	g.nextValueAnnotation++
	return g.nextValueAnnotation
}
