package vapor

import (
	"hash/maphash"
	"strconv"
)

// Kind is the closed enumeration of display primitives the core engine
// knows about (spec.md section 3's "Element kind"). The concrete catalog of
// leaf kinds and their display attributes beyond this handful is explicitly
// out of scope (spec.md section 1); these five are the ones spec.md's data
// model and scenarios name directly.
type Kind int

const (
	KindContainer Kind = iota
	KindText
	KindImage
	KindInteractive
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindInteractive:
		return "interactive"
	case KindInput:
		return "input"
	default:
		return "unknown-kind"
	}
}

// ChildArity describes how many children a Kind permits: 0 (leaf), 1, or N.
type ChildArity int

const (
	ArityZero ChildArity = 0
	ArityOne  ChildArity = 1
	ArityMany ChildArity = -1
)

func (k Kind) Arity() ChildArity {
	switch k {
	case KindText, KindImage, KindInput:
		return ArityZero
	case KindInteractive:
		return ArityOne
	case KindContainer:
		return ArityMany
	default:
		return ArityZero
	}
}

// Phase is a UI node's lifecycle phase marker (spec.md section 3/4.4).
// Transitions are strictly monotonic: open -> configured -> closed.
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseConfigured
	PhaseClosed
)

// Identity is the deterministic join key the reconciler uses to correlate
// nodes between the new and retained trees (spec.md section 3 "Stable
// identity", invariant 5). It is computed from the parent's identity, the
// node's position among siblings, its kind, its user key (if any), and a
// source-location salt supplied by the builder call site.
type Identity uint64

func computeIdentity(parent Identity, position int, kind Kind, key string, salt uintptr) Identity {
	var h maphash.Hash
	h.SetSeed(identitySeed)
	var buf [8]byte
	putInt(buf[:], int(parent))
	h.Write(buf[:])
	putInt(buf[:], position)
	h.Write(buf[:])
	h.WriteByte(byte(kind))
	h.WriteString(key)
	putInt(buf[:], int(salt))
	h.Write(buf[:])
	return Identity(h.Sum64())
}

// identityToString renders an Identity as a short base-36 token, used when
// an error needs to name a node (commands.go, event.go) without dragging
// fmt's default uint64 formatting's leading zeros or %v verbosity into the
// message.
func identityToString(id Identity) string {
	return strconv.FormatUint(uint64(id), 36)
}

// identitySeed is fixed for the process so that identical (parent, position,
// kind, key, salt) tuples always produce the same Identity across passes,
// per spec.md invariant 5. It is a random seed drawn once at init
// (maphash.MakeSeed), shared by every Tree rather than drawn per Tree, so
// identities are stable within one process but differ across restarts.
var identitySeed = maphash.MakeSeed()

// Attrs is the kind-specific attribute payload: a text slice for KindText,
// an image source for KindImage, a handler binding for KindInteractive, and
// so on. It is modeled as an Object so the reconciler's attribute-delta
// computation (spec.md section 4.6 rule 3) can walk it generically.
type Attrs Object

// Node is a single element in the virtual or retained tree (spec.md section
// 3 "UI node"). Nodes allocated for a single pass live in the frame arena
// unless promoted into the retained tree or copied into a longer-lived
// arena by the caller.
type Node struct {
	ID       Identity
	Kind     Kind
	Style    StyleHandle
	Attrs    Attrs
	Key      string
	Children []Identity
	Parent   Identity // zero Identity means "root"
	Phase    Phase

	// Handlers holds event bindings keyed by event kind, carried alongside
	// Attrs since they participate in the same attribute-delta comparison
	// (spec.md section 4.5.2's handler-identity rule).
	Handlers map[string]HandlerBinding
}

// HandlerBinding names an event handler plus its identity for diffing,
// per spec.md section 4.5.2: "(function address, argument tuple hash)".
// Capture marks a handler as running during the capture phase (root to
// target) rather than the default bubble phase (target to root), mirroring
// the teacher's EventHandler.Capture flag generalized from DOM events to
// the builder surface's on_event bindings.
type HandlerBinding struct {
	Fn       func(Value) bool
	FuncAddr uintptr
	ArgsHash uint64
	Capture  bool
}

// Equal reports whether two bindings have the same diffing identity —
// comparing the derived identity fields, never the Fn pointer itself, since
// two closures wrapping the same underlying function/args should diff as
// unchanged across passes even if a fresh closure value was allocated this
// pass.
func (b HandlerBinding) Equal(o HandlerBinding) bool {
	return b.FuncAddr == o.FuncAddr && b.ArgsHash == o.ArgsHash && b.Capture == o.Capture
}

// Tree is the arena-backed node store for one side of a reconciliation: the
// freshly built tree or the retained tree (spec.md section 4.3). A hash map
// from Identity to Node supports the reconciler's O(1) lookups.
type Tree struct {
	Root  Identity
	nodes map[Identity]*Node
}

func NewTree() *Tree {
	return &Tree{nodes: make(map[Identity]*Node)}
}

func (t *Tree) Get(id Identity) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) put(n *Node) {
	t.nodes[n.ID] = n
}

// Len reports how many nodes the tree currently holds.
func (t *Tree) Len() int { return len(t.nodes) }

// Consistent checks the invariant the reconciler relies on (spec.md section
// 4.6 "Failure"): every identity reachable from Root by walking Children
// must be present in the index, and every child's Parent must point back to
// its parent. A mismatch means ErrReconcilerInconsistent and a full replace.
func (t *Tree) Consistent() bool {
	if len(t.nodes) == 0 {
		return true
	}
	root, ok := t.Get(t.Root)
	if !ok {
		return false
	}
	return t.walkConsistent(root)
}

func (t *Tree) walkConsistent(n *Node) bool {
	for _, cid := range n.Children {
		child, ok := t.Get(cid)
		if !ok || child.Parent != n.ID {
			return false
		}
		if !t.walkConsistent(child) {
			return false
		}
	}
	return true
}
