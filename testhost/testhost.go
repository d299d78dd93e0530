// Package testhost is a minimal Applier implementation for exercising the
// engine without a real display surface, the role the teacher's drivers/
// tree plays for the DOM but scaled down to exactly the four C7
// operations (spec.md section 4.7). It optionally persists the applied
// command log to a bbolt database, grounded on src.elv.sh's use of bbolt
// for durable local state.
package testhost

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/vapor-ui/vapor"
)

// Event is one applied operation, recorded in application order for test
// assertions.
type Event struct {
	Op       string
	ID       vapor.Identity
	ParentID vapor.Identity
	Index    int
}

// record is the visible node state the host tracks for an Identity —
// enough to assert on in tests without reaching back into the engine's
// retained tree.
type record struct {
	kind     vapor.Kind
	attrs    vapor.Object
	style    vapor.StyleHandle
	parent   vapor.Identity
	children []vapor.Identity
}

// Host is an in-memory Applier. The zero value is not usable; construct
// with New.
type Host struct {
	nodes map[vapor.Identity]*record
	log   []Event

	db       *bbolt.DB
	bucket   []byte
	seq      int
	failNext map[string]bool
}

// Option configures a Host at construction time.
type Option func(*Host)

// WithBoltPersistence uses the already-open bbolt database db and persists
// every applied Event into bucket (created on first write), so a host process can
// restart and replay the command log — the same durable-log role bbolt
// plays for elvish's command history.
func WithBoltPersistence(db *bbolt.DB, bucket string) Option {
	return func(h *Host) {
		h.db = db
		h.bucket = []byte(bucket)
	}
}

// New creates an empty Host.
func New(opts ...Option) *Host {
	h := &Host{
		nodes:    make(map[vapor.Identity]*record),
		failNext: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FailNext makes the next invocation of the named operation ("create",
// "update", "remove", "insert") return a forced error, which vapor.Apply
// wraps as vapor.ErrHostApplyFailed, for exercising the reconciler's
// full-replace recovery path (spec.md section 7 kind 5).
func (h *Host) FailNext(op string) { h.failNext[op] = true }

func (h *Host) shouldFail(op string) bool {
	if h.failNext[op] {
		h.failNext[op] = false
		return true
	}
	return false
}

func (h *Host) persist(evt Event) error {
	if h.db == nil {
		return nil
	}
	h.seq++
	return h.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(h.bucket)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprintf("%010d", h.seq)), raw)
	})
}

func (h *Host) Create(id vapor.Identity, n *vapor.Node) error {
	if h.shouldFail("create") {
		return fmt.Errorf("testhost: forced create failure")
	}
	attrs := vapor.NewObject()
	for k, v := range vapor.Object(n.Attrs) {
		attrs[k] = v
	}
	h.nodes[id] = &record{kind: n.Kind, attrs: attrs, style: n.Style, parent: n.Parent}
	return h.persist(Event{Op: "create", ID: id})
}

func (h *Host) Update(id vapor.Identity, changed vapor.Object, removed []string, newStyle vapor.StyleHandle, styleDirty bool) error {
	if h.shouldFail("update") {
		return fmt.Errorf("testhost: forced update failure")
	}
	rec, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("testhost: update of unknown node %v", id)
	}
	for k, v := range changed {
		rec.attrs[k] = v
	}
	for _, k := range removed {
		delete(rec.attrs, k)
	}
	if styleDirty {
		rec.style = newStyle
	}
	return h.persist(Event{Op: "update", ID: id})
}

func (h *Host) Remove(id vapor.Identity) error {
	if h.shouldFail("remove") {
		return fmt.Errorf("testhost: forced remove failure")
	}
	rec, ok := h.nodes[id]
	if ok && rec.parent != 0 {
		if parent, ok := h.nodes[rec.parent]; ok {
			parent.children = removeID(parent.children, id)
		}
	}
	delete(h.nodes, id)
	return h.persist(Event{Op: "remove", ID: id})
}

func (h *Host) Insert(id vapor.Identity, parentID vapor.Identity, index int) error {
	if h.shouldFail("insert") {
		return fmt.Errorf("testhost: forced insert failure")
	}
	rec, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("testhost: insert of unknown node %v", id)
	}
	if rec.parent != 0 && rec.parent != parentID {
		if oldParent, ok := h.nodes[rec.parent]; ok {
			oldParent.children = removeID(oldParent.children, id)
		}
	}
	rec.parent = parentID
	if parentID != 0 {
		parent, ok := h.nodes[parentID]
		if !ok {
			return fmt.Errorf("testhost: insert under unknown parent %v", parentID)
		}
		parent.children = removeID(parent.children, id)
		if index < 0 || index >= len(parent.children) {
			parent.children = append(parent.children, id)
		} else {
			parent.children = append(parent.children[:index], append([]vapor.Identity{id}, parent.children[index:]...)...)
		}
	}
	return h.persist(Event{Op: "insert", ID: id, ParentID: parentID, Index: index})
}

func removeID(ids []vapor.Identity, target vapor.Identity) []vapor.Identity {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Children returns the host's recorded child order for id, for test
// assertions against the reconciler's Insert ordering.
func (h *Host) Children(id vapor.Identity) []vapor.Identity {
	rec, ok := h.nodes[id]
	if !ok {
		return nil
	}
	out := make([]vapor.Identity, len(rec.children))
	copy(out, rec.children)
	return out
}

// Attrs returns a copy of id's current attribute set.
func (h *Host) Attrs(id vapor.Identity) (vapor.Object, bool) {
	rec, ok := h.nodes[id]
	if !ok {
		return nil, false
	}
	out := vapor.NewObject()
	for k, v := range rec.attrs {
		out[k] = v
	}
	return out, true
}

// Style returns id's current style handle.
func (h *Host) Style(id vapor.Identity) (vapor.StyleHandle, bool) {
	rec, ok := h.nodes[id]
	if !ok {
		return 0, false
	}
	return rec.style, true
}

// Len reports how many nodes the host currently tracks.
func (h *Host) Len() int { return len(h.nodes) }

// Identities returns every tracked node identity, sorted for deterministic
// test output.
func (h *Host) Identities() []vapor.Identity {
	out := make([]vapor.Identity, 0, len(h.nodes))
	for id := range h.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
