package vapor

import "fmt"

// EventPhase mirrors the teacher's three-phase numbering (capture, at-target,
// bubble), generalized from DOM Event.Phase() to dispatch over a retained
// Tree's node Handlers instead of a live *Element.
type EventPhase int

const (
	PhaseCapture  EventPhase = 1
	PhaseAtTarget EventPhase = 2
	PhaseBubble   EventPhase = 3
)

// DispatchEvent delivers a payload Value to targetID's handlers for kind,
// walking the ancestor chain root-to-target for capture handlers, invoking
// at-target handlers of either phase, then walking target-to-root for
// bubble handlers — the teacher's DispatchEvent algorithm (uielement.go),
// generalized from a live Element tree to an arbitrary Tree (normally the
// engine's retained tree, since only promoted nodes have a host-visible
// identity to dispatch against).
//
// A handler returning true stops propagation, the same "done" convention
// the teacher's eventHandlers.Handle loop uses.
func DispatchEvent(tree *Tree, targetID Identity, kind string, payload Value) (handled bool, err error) {
	target, ok := tree.Get(targetID)
	if !ok {
		return false, fmt.Errorf("%w: event target %s not found", ErrRouteNotFound, identityToString(targetID))
	}

	path := ancestorPath(tree, target)

	for i := 0; i < len(path)-1; i++ {
		if invokeHandlers(path[i], kind, payload, true) {
			return true, nil
		}
	}

	if invokeHandlers(target, kind, payload, target.Handlers[kind].Capture) {
		return true, nil
	}

	for i := len(path) - 2; i >= 0; i-- {
		if invokeHandlers(path[i], kind, payload, false) {
			return true, nil
		}
	}
	return false, nil
}

// ancestorPath returns the chain from the tree root to n inclusive.
func ancestorPath(tree *Tree, n *Node) []*Node {
	var chain []*Node
	cur := n
	for cur != nil {
		chain = append(chain, cur)
		if cur.Parent == 0 {
			break
		}
		parent, ok := tree.Get(cur.Parent)
		if !ok {
			break
		}
		cur = parent
	}
	// reverse: root first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// invokeHandlers runs n's handler for kind if it matches the requested
// phase (capture-only when wantCapture is true, non-capture otherwise),
// returning whether propagation should stop.
func invokeHandlers(n *Node, kind string, payload Value, wantCapture bool) bool {
	h, ok := n.Handlers[kind]
	if !ok || h.Fn == nil {
		return false
	}
	if h.Capture != wantCapture {
		return false
	}
	return h.Fn(payload)
}
