package vapor

import "fmt"

// frame is one entry on the lifecycle Stack: the node currently open plus
// the running count of children it has seen, used both to compute each new
// child's sibling position and to disambiguate sibling collisions (spec.md
// section 4.4's "Edge cases").
type frame struct {
	node        *Node
	childCount  int
	seenKeys    map[string]int // (kind,key,salt) signature -> collision count, for disambiguation
}

// Stack is the global, last-in-first-out sequence of currently open nodes
// (spec.md section 4.4). Its depth at any instant equals the tree depth at
// which the next Open would attach — the invariant the builder surface
// relies on to infer parents purely from call order.
//
// The push/pop discipline is grounded on the teacher's attach/detach
// parent-linking (uielement.go), generalized from "link this already-built
// child into a parent's child list" into "the currently-open node IS the
// parent for whatever opens next", which is the inversion spec.md section
// 4.4 requires. Frame slices are drawn from a pool shaped like the
// teacher's objectpools.go stackPool (accordion capacity, LIFO reuse).
type Stack struct {
	frames []frame
	tree   *Tree
	arena  *Arena
	err    error // sticky: first arena-exhaustion error hit while opening a node this pass

	onCollision func(kind Kind, key string, salt uintptr)
}

// NewStack creates a lifecycle stack that builds nodes into tree, allocating
// node backing storage from arena (normally the frame arena — spec.md
// section 3: "Nodes live in the frame arena unless tied to a longer-lived
// structure"). Its frame slice is drawn from frameSlices (pool.go) rather
// than starting nil, so the per-pass Stack the engine builds in runWith
// reuses backing memory across passes instead of growing a fresh slice
// every time.
func NewStack(tree *Tree, arena *Arena) *Stack {
	return &Stack{tree: tree, arena: arena, frames: frameSlices.Get()}
}

// Release returns this stack's frame backing array to frameSlices so the
// next pass's NewStack can reuse it. The engine calls this on the outgoing
// Stack right before building the next pass's Stack (runWith); a Stack
// must not be used again afterward.
func (s *Stack) Release() {
	frameSlices.Put(s.frames)
	s.frames = nil
}

// nodeFootprint is the byte cost Open charges against arena per node,
// mirroring Array's per-element charge (engine.go) so a render pass can
// actually exhaust a byte-limited frame arena, not just caller-managed
// Array growth (spec.md section 7.1 / section 8 scenario 4).
const nodeFootprint = 64

// OnCollision registers fn to be called whenever Open disambiguates a
// sibling-identity collision, so a caller (the engine) can surface it as a
// diagnostic rather than letting it pass silently (spec.md section 7.3:
// "report warning").
func (s *Stack) OnCollision(fn func(kind Kind, key string, salt uintptr)) {
	s.onCollision = fn
}

// Err reports the first arena-exhaustion error encountered while opening a
// node during the current pass, or nil. A render callback that never
// inspects an individual builder call's return value would otherwise let
// an exhausted frame arena pass unnoticed; runWith checks this alongside
// Balanced() once the callback returns.
func (s *Stack) Err() error { return s.err }

// Depth reports how many nodes are currently open.
func (s *Stack) Depth() int { return len(s.frames) }

// Balanced reports whether the stack is empty, the condition spec.md
// invariant 1 requires at the end of every normally-terminating pass.
func (s *Stack) Balanced() bool { return len(s.frames) == 0 }

// Open pushes a new node of the given kind onto the stack. Its parent is the
// current stack top, or the zero Identity (root sentinel) if the stack is
// empty. salt is a source-location value the builder call site supplies
// (spec.md section 4.4's open(kind, salt, key?)) so that two structurally
// identical call sites produce distinct identities.
func (s *Stack) Open(kind Kind, salt uintptr, key string) *Node {
	if s.err == nil && s.arena != nil {
		if _, err := s.arena.Alloc(nodeFootprint, 8); err != nil {
			s.err = err
		}
	}

	var parent Identity
	position := 0
	var top *frame
	if len(s.frames) > 0 {
		top = &s.frames[len(s.frames)-1]
		parent = top.node.ID
		position = top.childCount
	}

	sig := fmt.Sprintf("%d|%s|%d", kind, key, salt)
	disambiguated := key
	if top != nil {
		if top.seenKeys == nil {
			top.seenKeys = make(map[string]int)
		}
		count := top.seenKeys[sig]
		top.seenKeys[sig] = count + 1
		if count > 0 {
			// Sibling-index disambiguation (spec.md section 4.4): the
			// later colliding sibling gets a distinguishable identity so
			// both can coexist, degrading that sibling's keying to
			// positional matching in the reconciler.
			disambiguated = fmt.Sprintf("%s\x00collide#%d", key, count)
			if s.onCollision != nil {
				s.onCollision(kind, key, salt)
			}
		}
	}

	id := computeIdentity(parent, position, kind, disambiguated, salt)
	n := &Node{
		ID:       id,
		Kind:     kind,
		Key:      key,
		Parent:   parent,
		Phase:    PhaseOpen,
		Children: nil,
		Handlers: nil,
	}
	s.tree.put(n)

	if top != nil {
		top.node.Children = append(top.node.Children, id)
		top.childCount++
	} else {
		s.tree.Root = id
	}

	s.frames = append(s.frames, frame{node: n})
	return n
}

// Configure updates the top-of-stack node's style and attributes in place.
// It is only valid while that node is still in the open phase (spec.md
// section 4.4: "Configure may only be called between that node's open and
// close"); calling it on a node that has already been configured or closed
// is reported as ErrLifecycleImbalance.
func (s *Stack) Configure(style StyleHandle, attrs Attrs, handlers map[string]HandlerBinding) error {
	if len(s.frames) == 0 {
		return fmt.Errorf("%w: configure with empty stack", ErrLifecycleImbalance)
	}
	top := &s.frames[len(s.frames)-1]
	if top.node.Phase != PhaseOpen {
		return fmt.Errorf("%w: configure called on node not in open phase", ErrLifecycleImbalance)
	}
	top.node.Style = style
	top.node.Attrs = attrs
	top.node.Handlers = handlers
	top.node.Phase = PhaseConfigured
	return nil
}

// Close pops the top of the stack, sealing that node's child list to
// whatever was opened and closed while it was the top (spec.md section
// 4.4). Closing an empty stack is a lifecycle imbalance; a node that was
// never configured is closed without error.
func (s *Stack) Close() error {
	if len(s.frames) == 0 {
		return fmt.Errorf("%w: close with empty stack", ErrLifecycleImbalance)
	}
	top := &s.frames[len(s.frames)-1]
	if top.node.Phase == PhaseOpen {
		// Leaves commit via End(), which configures with empty
		// style/attrs before closing — arriving here with PhaseOpen
		// means a commit point closed without configuring first, which
		// should not happen through the builder surface but is still
		// guarded against defensively at the stack boundary.
		top.node.Phase = PhaseConfigured
	}
	top.node.Phase = PhaseClosed
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Top returns the currently open node, or nil if the stack is empty.
func (s *Stack) Top() *Node {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1].node
}

// Abort discards any remaining open frames, used when a pass must be
// aborted mid-flight (allocation exhaustion, a propagated configure/close
// error). It does not touch the retained tree.
func (s *Stack) Abort() {
	s.frames = s.frames[:0]
}
