package regalloc

// RegisterMap converts a color assigned in the allocator's own per-class color space into the
// target's machine register numbering, respecting caller/callee banks and reserved registers
// (spec 4.5 "Mapping back to code").
type RegisterMap struct {
	cfg Config
}

// NewRegisterMap builds a RegisterMap for cfg.
func NewRegisterMap(cfg Config) RegisterMap { return RegisterMap{cfg: cfg} }

// Machine returns the machine register number for a color in the given class. The allocator's
// color space already excludes cfg's reserved registers (colorGraph never assigns one) and is
// contiguous from zero, so this is a direct pass-through; it exists as a named seam so a
// target whose machine numbering is not contiguous with the allocator's 0..N-1 space (e.g. one
// that interleaves a reserved register in the middle of a bank) has exactly one place to remap.
func (m RegisterMap) Machine(class RegClass, color int) uint32 {
	return uint32(color)
}

// IsCalleeSaved reports whether the machine register produced for this class/color falls in
// the target's callee-saved range.
func (m RegisterMap) IsCalleeSaved(class RegClass, color int) bool {
	return color >= m.cfg.CalleeSavedStart[class]
}
