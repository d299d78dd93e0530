package vapor

import "errors"

// Error kinds recognized by the core (spec.md section 7). Each is a sentinel
// so host and application code can recover with errors.Is instead of string
// matching, the same convention the teacher package uses for its
// ErrNotFound/ErrUnauthorized/ErrFrameworkFailure sentinels.
var (
	// ErrArenaExhausted is returned when an arena cannot satisfy an
	// allocation request. The render pass that triggered it must abort
	// cleanly: the retained tree and prior frame state stay intact.
	ErrArenaExhausted = errors.New("vapor: arena exhausted")

	// ErrLifecycleImbalance covers a pass ending with a non-empty stack,
	// Configure called on a closed node, or Close called on an empty
	// stack.
	ErrLifecycleImbalance = errors.New("vapor: lifecycle stack imbalance")

	// ErrIdentityCollision is reported (not fatal) each time two siblings
	// share a (kind, key, salt) tuple and the later one needs sibling-index
	// disambiguation; the reconciler falls back to positional matching for
	// that parent only.
	ErrIdentityCollision = errors.New("vapor: unresolved identity collision")

	// ErrReconcilerInconsistent is raised when the retained tree's
	// identity index does not match its structure; recovery is a full
	// replace of the entire tree.
	ErrReconcilerInconsistent = errors.New("vapor: reconciler state inconsistent")

	// ErrHostApplyFailed is returned by Apply, wrapping the Applier's own
	// error, when the host cannot apply a command; the retained tree is then
	// discarded and the next pass becomes a full replace.
	ErrHostApplyFailed = errors.New("vapor: host apply failed")

	// ErrNoActiveRoute is returned when the router is asked to act before
	// any route has been activated.
	ErrNoActiveRoute = errors.New("vapor: no active route")

	// ErrRouteNotFound mirrors the teacher's ErrNotFound for path lookups
	// that do not match any registered route.
	ErrRouteNotFound = errors.New("vapor: route not found")
)

// DiagnosticKind classifies a reported failure for the driver's diagnostic
// hook (spec.md section 7's "diagnostic callbacks, not thrown failures").
type DiagnosticKind int

const (
	DiagAllocationExhausted DiagnosticKind = iota
	DiagLifecycleImbalance
	DiagIdentityCollision
	DiagReconcilerInconsistent
	DiagHostApplyFailure
	DiagHandlerException
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagAllocationExhausted:
		return "allocation-exhausted"
	case DiagLifecycleImbalance:
		return "lifecycle-imbalance"
	case DiagIdentityCollision:
		return "identity-collision"
	case DiagReconcilerInconsistent:
		return "reconciler-inconsistent"
	case DiagHostApplyFailure:
		return "host-apply-failure"
	case DiagHandlerException:
		return "handler-exception"
	default:
		return "unknown"
	}
}

// Diagnostic is delivered to the driver's diagnostic hook (spec.md section
// 6's store/load and section 7's propagation policy): user code observes
// failures as callbacks, never as a panic unwinding through builder calls.
type Diagnostic struct {
	Kind DiagnosticKind
	Err  error
	// Pass is the sequence number of the render pass during which the
	// diagnostic was raised, or 0 if it predates the first pass.
	Pass int
}
