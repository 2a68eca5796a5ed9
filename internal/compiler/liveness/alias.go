package liveness

import "github.com/eclipse-oniro-mirrors/arkcompiler-runtime-core-sub011/internal/compiler/compilerapi"

// AliasKind is the three-valued result of an alias query (spec section 6, modeled on the
// original's NO_ALIAS/MAY_ALIAS/MUST_ALIAS).
type AliasKind int

const (
	NoAlias AliasKind = iota
	MayAlias
	MustAlias
)

// AliasAnalyzer answers CheckRefAlias/CheckInstAlias queries (spec section 6). Memory
// coalescing is this analysis's only consumer: it needs MustAlias to pair two array accesses
// on the same base, and NoAlias vs MayAlias to decide whether a store can be hoisted past an
// unrelated one.
type AliasAnalyzer struct {
	g *compilerapi.Graph
}

func NewAliasAnalyzer(g *compilerapi.Graph) *AliasAnalyzer {
	return &AliasAnalyzer{g: g}
}

// CheckRefAlias compares two reference-typed values (object/array bases).
func (a *AliasAnalyzer) CheckRefAlias(x, y compilerapi.InstID) AliasKind {
	if x == y {
		return MustAlias
	}
	xi, yi := a.g.Inst(x), a.g.Inst(y)
	if xi.Opcode() == compilerapi.OpcodeNullConst || yi.Opcode() == compilerapi.OpcodeNullConst {
		if xi.Opcode() == yi.Opcode() {
			return MustAlias
		}
		// A freshly allocated object/array can never be null.
		if isFreshAllocation(xi) || isFreshAllocation(yi) {
			return NoAlias
		}
		return MayAlias
	}
	if isFreshAllocation(xi) && isFreshAllocation(yi) {
		// Two distinct NewObject/NewArray/InitObject sites never produce the same
		// reference, since each allocation site yields a fresh identity.
		return NoAlias
	}
	if xi.Opcode() == compilerapi.OpcodeNullCheck {
		return a.CheckRefAlias(xi.Input(0).Value(), y)
	}
	if yi.Opcode() == compilerapi.OpcodeNullCheck {
		return a.CheckRefAlias(x, yi.Input(0).Value())
	}
	return MayAlias
}

func isFreshAllocation(i *compilerapi.Inst) bool {
	switch i.Opcode() {
	case compilerapi.OpcodeNewObject, compilerapi.OpcodeNewArray, compilerapi.OpcodeInitObject:
		return true
	default:
		return false
	}
}

// CheckInstAlias compares the memory footprint of two memory-accessing instructions (loads,
// stores, or their coalesced-pair variants), used by memory coalescing to decide whether one
// instruction can be reordered or folded past another.
func (a *AliasAnalyzer) CheckInstAlias(x, y compilerapi.InstID) AliasKind {
	xi, yi := a.g.Inst(x), a.g.Inst(y)
	xBase, xOK := baseAndIndex(xi)
	yBase, yOK := baseAndIndex(yi)
	if !xOK || !yOK {
		// Not both memory ops on an indexable base (e.g. LoadObject/StoreObject): be
		// conservative unless the fields provably differ.
		if xi.Opcode() == compilerapi.OpcodeLoadObject || xi.Opcode() == compilerapi.OpcodeStoreObject {
			if yi.Opcode() == compilerapi.OpcodeLoadObject || yi.Opcode() == compilerapi.OpcodeStoreObject {
				if xi.Field() != yi.Field() {
					return NoAlias
				}
				objX, objY := xi.Input(0).Value(), yi.Input(0).Value()
				return a.CheckRefAlias(objX, objY)
			}
		}
		return MayAlias
	}
	refAlias := a.CheckRefAlias(xBase, yBase)
	if refAlias == NoAlias {
		return NoAlias
	}
	xIdx, xConst := constIndex(xi)
	yIdx, yConst := constIndex(yi)
	if refAlias == MustAlias && xConst && yConst {
		if xIdx == yIdx {
			return MustAlias
		}
		return NoAlias
	}
	return MayAlias
}

// baseAndIndex returns the array base operand of an array memory op, if i is one.
func baseAndIndex(i *compilerapi.Inst) (compilerapi.InstID, bool) {
	switch i.Opcode() {
	case compilerapi.OpcodeLoadArray, compilerapi.OpcodeStoreArray,
		compilerapi.OpcodeLoadArrayI, compilerapi.OpcodeStoreArrayI,
		compilerapi.OpcodeLoadArrayPair, compilerapi.OpcodeStoreArrayPair,
		compilerapi.OpcodeLoadArrayPairI, compilerapi.OpcodeStoreArrayPairI:
		return i.Input(0).Value(), true
	default:
		return compilerapi.InstIDInvalid, false
	}
}

// constIndex returns the compile-time-constant index of an array memory op, if known.
func constIndex(i *compilerapi.Inst) (int64, bool) {
	switch i.Opcode() {
	case compilerapi.OpcodeLoadArrayI, compilerapi.OpcodeStoreArrayI,
		compilerapi.OpcodeLoadArrayPairI, compilerapi.OpcodeStoreArrayPairI:
		return i.ConstIndex(), true
	default:
		return 0, false
	}
}
