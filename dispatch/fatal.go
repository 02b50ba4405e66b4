package dispatch

import "fmt"

// Invariant names used in ContractViolation diagnostics.
const (
	invariantDuplicateContext = "duplicate context_id"
	invariantUnknownContext   = "invalid context_id"
	invariantInvalidRoot      = "invalid root_context_id"
	invariantMissingType      = "missing ContextType on root context"
	invariantNilChild         = "root context factory returned nil for reported ContextType"
	invariantDuplicateToken   = "duplicate token_id"
	invariantUnknownToken     = "invalid token_id"
)

// ContractViolation reports that the host and plugin have desynchronized
// on identifier lifecycle. It is delivered by panicking: no local recovery
// is meaningful once routing state is suspect, so the execution unit
// aborts instead of proceeding with possibly misrouted events.
//
// ContractViolation implements error so recovery shims (tests, embedders
// that must translate the abort) can inspect it, but it is never returned
// as an ordinary error value.
type ContractViolation struct {
	Invariant string
	ContextID uint32
	Token     uint32
}

func (e *ContractViolation) Error() string {
	switch {
	case e.Token != 0:
		return fmt.Sprintf("host contract violation: %s (token_id=%d)", e.Invariant, e.Token)
	default:
		return fmt.Sprintf("host contract violation: %s (context_id=%d)", e.Invariant, e.ContextID)
	}
}

func violateContext(invariant string, contextID uint32) {
	panic(&ContractViolation{Invariant: invariant, ContextID: contextID})
}

func violateToken(invariant string, token uint32) {
	panic(&ContractViolation{Invariant: invariant, Token: token})
}
