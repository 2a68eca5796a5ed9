// Package pea implements partial escape analysis: proving that a heap allocation need not
// exist on some or all paths through a function and tracking its fields symbolically instead
// (spec section 4.2).
package pea

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"

// OwnerKind tags which alternative of the StateOwner sum type is populated (spec section 3:
// "a tagged union of Inst*, PhiState*, and the singleton ZeroInst").
type OwnerKind int

const (
	OwnerInst OwnerKind = iota
	OwnerPhi
	OwnerZero
)

// StateOwner names the current value of a virtual field: a real instruction, a synthetic
// PhiState pending materialization into a real phi, or the ZeroInst default-value singleton.
type StateOwner struct {
	Kind OwnerKind
	Inst compilerapi.InstID
	Phi  *PhiState
}

func OwnerOfInst(id compilerapi.InstID) StateOwner { return StateOwner{Kind: OwnerInst, Inst: id} }
func OwnerOfPhi(p *PhiState) StateOwner            { return StateOwner{Kind: OwnerPhi, Phi: p} }
func Zero() StateOwner                             { return StateOwner{Kind: OwnerZero} }

func (o StateOwner) Equal(other StateOwner) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case OwnerInst:
		return o.Inst == other.Inst
	case OwnerPhi:
		return o.Phi == other.Phi
	default:
		return true
	}
}

// Field is a tagged union of an object field handle and an array element (spec section 3).
type Field struct {
	IsArray    bool
	ObjField   compilerapi.FieldRef
	ArrayClass compilerapi.ClassID
	ArrayIndex int64
}

func ObjectField(f compilerapi.FieldRef) Field { return Field{ObjField: f} }
func ArrayElement(class compilerapi.ClassID, index int64) Field {
	return Field{IsArray: true, ArrayClass: class, ArrayIndex: index}
}

// PhiState is a synthetic phi over StateOwners, scheduled at a block; it becomes a real IR
// phi only during scalar replacement (spec section 3).
type PhiState struct {
	ID     int
	Block  compilerapi.BlockID
	Type   compilerapi.DataType
	Inputs []StateOwner

	// Resolved is filled in by scalar replacement once a real phi instruction is allocated
	// for this synthetic phi.
	Resolved compilerapi.InstID
}

// VirtualState is the symbolic heap record for one allocation being tracked (spec section 3).
type VirtualState struct {
	ID StateID

	// Alloc is the NewObject/NewArray/InitObject instruction this state originated from, or
	// (for a state synthesized by mergePhiAllocation) the merging phi itself; Class is
	// recorded separately so scalar replacement can clone the right allocation in both cases.
	Alloc compilerapi.InstID
	Class compilerapi.ClassID
	// CtorInputs are the allocation's own inputs (e.g. array length), replayed verbatim
	// when the allocation is materialized.
	CtorInputs []compilerapi.InstID
	// ArrayElemType is set when Alloc is a NewArray.
	ArrayElemType compilerapi.DataType
	IsArray       bool

	Fields map[Field]StateOwner
	// FieldOrder preserves field-declaration order (first-write order here, since this IR
	// has no separate class-layout metadata) for scalar replacement's store emission.
	FieldOrder []Field

	// Aliases lists every instruction whose value has been rewritten to resolve to this
	// state (NullCheck pass-through, LoadObject/LoadArray hits).
	Aliases []compilerapi.InstID
}

func newVirtualState(id StateID, alloc compilerapi.InstID) *VirtualState {
	return &VirtualState{ID: id, Alloc: alloc, Fields: map[Field]StateOwner{}}
}

func (vs *VirtualState) setField(f Field, owner StateOwner) {
	if _, ok := vs.Fields[f]; !ok {
		vs.FieldOrder = append(vs.FieldOrder, f)
	}
	vs.Fields[f] = owner
}

func (vs *VirtualState) getField(f Field) StateOwner {
	if owner, ok := vs.Fields[f]; ok {
		return owner
	}
	return Zero()
}

// StateID names a VirtualState. The reserved MaterializedID means "this value lives on the
// heap; no symbolic state is tracked for it" (spec section 3).
type StateID = compilerapi.StateID

const MaterializedID = compilerapi.MaterializedID

// MaterializationSite pins where a virtual object must be physically allocated: either right
// after a specific instruction, at the head of the block (AfterInst invalid, AtTail false —
// siteBeforeInst's case when the pinned instruction is its block's first), or at the tail of a
// predecessor block feeding a merge, just before its outgoing branch (AtTail true). AtTail
// disambiguates the two "AfterInst invalid" cases, which scalar replacement must place
// differently: a predecessor's tail site has to land after whatever already runs in that
// block, not before it (spec section 4.2).
type MaterializationSite struct {
	AfterInst compilerapi.InstID
	Block     compilerapi.BlockID
	AtTail    bool
}

func siteAfter(inst compilerapi.InstID) MaterializationSite {
	return MaterializationSite{AfterInst: inst}
}

func siteAtBlockTail(blk compilerapi.BlockID) MaterializationSite {
	return MaterializationSite{AfterInst: compilerapi.InstIDInvalid, Block: blk, AtTail: true}
}

// blockHeap is the per-block abstract heap state: which StateId each value currently refers
// to, plus the sparse table of tracked VirtualStates (spec section 3 "Per-block abstract
// heap state").
type blockHeap struct {
	stateOf map[compilerapi.InstID]StateID
	states  map[StateID]*VirtualState
}

func newBlockHeap() *blockHeap {
	return &blockHeap{stateOf: map[compilerapi.InstID]StateID{}, states: map[StateID]*VirtualState{}}
}

func (h *blockHeap) clone() *blockHeap {
	c := newBlockHeap()
	for k, v := range h.stateOf {
		c.stateOf[k] = v
	}
	for k, v := range h.states {
		cv := *v
		cv.Fields = map[Field]StateOwner{}
		for f, o := range v.Fields {
			cv.Fields[f] = o
		}
		cv.FieldOrder = append([]Field(nil), v.FieldOrder...)
		cv.CtorInputs = append([]compilerapi.InstID(nil), v.CtorInputs...)
		cv.Aliases = append([]compilerapi.InstID(nil), v.Aliases...)
		c.states[k] = &cv
	}
	return c
}

func (h *blockHeap) stateFor(v compilerapi.InstID) (*VirtualState, bool) {
	id, ok := h.stateOf[v]
	if !ok || id == MaterializedID {
		return nil, false
	}
	vs, ok := h.states[id]
	return vs, ok
}
