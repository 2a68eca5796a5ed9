package compilerapi

import "fmt"

// The CORE never throws exceptions across a pass boundary (spec section 7). Recoverable
// conditions are returned as one of the typed errors below; the only panics that escape a
// pass are StructuralInvariant violations, which are unrecoverable bugs in the compiler
// itself and are reported via InvariantViolation (see checker.go).

// PassCannotComplete reports that an optimization pass gave up within its iteration/depth
// budget (e.g. register allocator failed to color within the spill-round budget, or escape
// analysis exceeded the loop-nesting depth limit). The pipeline continues; the embedder may
// fall back to an unoptimized compile.
type PassCannotComplete struct {
	Pass   string
	Reason string
}

func (e *PassCannotComplete) Error() string {
	return fmt.Sprintf("%s: cannot complete: %s", e.Pass, e.Reason)
}

// RuntimeLookupFailure wraps an error returned by a Runtime capability query; its
// AsPassCannotComplete turns it into a PassCannotComplete. No pass in this repository
// constructs one.
type RuntimeLookupFailure struct {
	Query string
	Err   error
}

func (e *RuntimeLookupFailure) Error() string {
	return fmt.Sprintf("runtime lookup %s failed: %v", e.Query, e.Err)
}

func (e *RuntimeLookupFailure) Unwrap() error { return e.Err }

// AsPassCannotComplete converts a RuntimeLookupFailure into the PassCannotComplete the
// pipeline actually propagates.
func (e *RuntimeLookupFailure) AsPassCannotComplete(pass string) *PassCannotComplete {
	return &PassCannotComplete{Pass: pass, Reason: e.Error()}
}

// Unsupported reports that the graph requires an opcode or DataType the target does not
// support. Surfaced to the embedder as a typed error value, never a panic.
type Unsupported struct {
	Opcode Opcode
	Type   DataType
	Detail string
}

func (e *Unsupported) Error() string {
	return fmt.Sprintf("unsupported opcode=%s type=%s: %s", e.Opcode, e.Type, e.Detail)
}

// InvariantViolation describes a StructuralInvariant failure detected by GraphChecker: a
// violation of dominance, SSA, or the save-state contract. It is raised as a panic and is
// not recovered anywhere in this repository, so Method stays empty as panicInvariant leaves
// it (in production builds where CheckerEnabled is false, the checker never produces one).
type InvariantViolation struct {
	Method string
	Pass   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("structural invariant violated in %s (pass %s): %s", e.Method, e.Pass, e.Detail)
}

// panicInvariant raises a StructuralInvariant failure. Used internally by GraphChecker and
// by mutation helpers that catch impossible states (UNREACHABLE paths per section 9).
func panicInvariant(pass, detail string) {
	panic(&InvariantViolation{Pass: pass, Detail: detail})
}
