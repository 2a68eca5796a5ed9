package compilerapi

// These consts gate diagnostic output and expensive validation passes. They intentionally
// live together in one file so that "where do we turn on tracing" is a one-stop answer
// instead of scattered build tags.
//
// Logging and profiling plumbing are the embedder's responsibility (spec section 1); what
// remains here is strictly the compiler's own internal trace switches, matching the
// boolean-const idiom of the teacher compiler rather than pulling in a structured logger
// for a hot compile loop where allocation-heavy logging would itself be a regression.

const (
	// PassLoggingEnabled prints a line per pass invocation when true.
	PassLoggingEnabled = false
	// PEALoggingEnabled prints per-block abstract heap state transitions.
	PEALoggingEnabled = false
	// RegAllocLoggingEnabled prints interference-graph construction and coloring decisions.
	RegAllocLoggingEnabled = false
)

const (
	// CheckerEnabled runs GraphChecker after every optimization pass. It must stay on
	// until the pass pipeline has had substantial fuzzing mileage; disable only for
	// release builds of the embedder.
	CheckerEnabled = true
)
