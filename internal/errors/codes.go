// Package errors provides structured error handling for the memory engine
// and tool orchestrator. The Kind set below is closed: every error built
// by this package carries one of these ten kinds, so callers can branch on
// category without a type switch. Some packages (di, mcp, orchestrator,
// promotion) also return plain wrapped errors that carry no Kind.
package errors

// Kind enumerates the closed set of error categories a component may
// return across its public boundary.
type Kind string

const (
	// KindDimensionMismatch: an embedding's dimension does not match the
	// index/tier it is being inserted into.
	KindDimensionMismatch Kind = "dimension_mismatch"
	// KindEmbeddingUnavailable: no embedding backend could serve the request.
	KindEmbeddingUnavailable Kind = "embedding_unavailable"
	// KindNotFound: the requested record/tool/id does not exist.
	KindNotFound Kind = "not_found"
	// KindInvalidRecord: a record failed its own validation invariants.
	KindInvalidRecord Kind = "invalid_record"
	// KindTierViolation: an operation would violate tier ordering/placement.
	KindTierViolation Kind = "tier_violation"
	// KindCapabilityDenied: a tool invocation exceeds its manifest's
	// declared capabilities.
	KindCapabilityDenied Kind = "capability_denied"
	// KindResourceExhausted: a pool, budget, or semaphore is saturated.
	KindResourceExhausted Kind = "resource_exhausted"
	// KindTimeout: an operation exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindTransient: a retryable failure at a tool/inference edge.
	KindTransient Kind = "transient"
	// KindFatal: unrecoverable; the DI core should stop and report Down.
	KindFatal Kind = "fatal"
)

// retryableKinds lists the Kind values a caller may retry. Only transient
// failures at tool/inference edges and timeouts are retryable; validation,
// capability, and fatal errors never are.
var retryableKinds = map[Kind]bool{
	KindTransient: true,
	KindTimeout:   true,
}
