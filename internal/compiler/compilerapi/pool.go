package compilerapi

// poolSlabSize is the number of elements held by a single backing slab of a Pool.
const poolSlabSize = 128

// Pool is a typed arena for T that can be bulk-allocated and reset between compilations.
// It avoids per-node heap allocation pressure in the hot compile loop: nodes are carved
// out of fixed-size slabs and the whole arena is released en bloc via Reset.
type Pool[T any] struct {
	slabs []*[poolSlabSize]T
	count int
}

// NewPool returns a ready-to-use Pool.
func NewPool[T any]() Pool[T] {
	var p Pool[T]
	p.Reset()
	return p
}

// Allocated returns the number of items allocated from the pool since the last Reset.
func (p *Pool[T]) Allocated() int {
	return p.count
}

// Allocate carves a new, zero-valued T out of the arena. The slab and offset it lands in
// are derived directly from the running count, rather than tracked as separate cursor state.
func (p *Pool[T]) Allocate() *T {
	slab, offset := p.count/poolSlabSize, p.count%poolSlabSize
	if slab == len(p.slabs) {
		if slab < cap(p.slabs) {
			p.slabs = p.slabs[:slab+1]
			if p.slabs[slab] == nil {
				p.slabs[slab] = new([poolSlabSize]T)
			}
		} else {
			p.slabs = append(p.slabs, new([poolSlabSize]T))
		}
	}
	ret := &p.slabs[slab][offset]
	p.count++
	return ret
}

// View returns a pointer to the i-th item ever allocated from this pool (dense-id lookup).
func (p *Pool[T]) View(i int) *T {
	slab, offset := i/poolSlabSize, i%poolSlabSize
	return &p.slabs[slab][offset]
}

// Reset releases the whole arena for reuse by the next compilation unit, without giving up
// the underlying slabs: the next round of Allocate calls reuses them before growing further.
func (p *Pool[T]) Reset() {
	for _, slab := range p.slabs {
		var zero T
		for i := range slab {
			slab[i] = zero
		}
	}
	p.slabs = p.slabs[:0]
	p.count = 0
}
