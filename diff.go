package vapor

import (
	"fmt"
	"sort"
	"time"
)

// CommandKind is one of the three disjoint command sets the reconciler
// produces (spec.md section 3 "Command records", invariant 4).
type CommandKind int

const (
	CmdAdd CommandKind = iota
	CmdRemove
	CmdUpdate
)

func (k CommandKind) String() string {
	switch k {
	case CmdAdd:
		return "add"
	case CmdRemove:
		return "remove"
	case CmdUpdate:
		return "update"
	default:
		return "unknown-command"
	}
}

// Command is a single instruction for the host applier (spec.md section
// 3/4.7). Add carries a full node spec; Remove carries only an identity;
// Update carries an attribute delta plus old/new style handles and,
// optionally, a reorder hint (spec.md section 4.6 rule 4).
//
// Seq and Timestamp implement the supplemental "replayable command log"
// feature grounded on the teacher's uicommands.go NewUICommand().Timestamp()
// chain (SPEC_FULL.md's Supplemental Features section).
type Command struct {
	Kind     CommandKind
	ID       Identity
	ParentID Identity
	Index    int // Add: insertion index. Update with Reorder: new index.

	Node *Node // only set for Add

	// Update fields.
	Changed    Object   // changed attribute keys -> new value
	Removed    []string // attribute keys present before and absent now
	OldStyle   StyleHandle
	NewStyle   StyleHandle
	StyleDirty bool
	Reorder    bool

	Seq       int
	Timestamp time.Time
}

// Result is the three disjoint command arrays plus whether a full replace
// was necessary (spec.md section 4.6 "Failure").
type Result struct {
	Add     []Command
	Remove  []Command
	Update  []Command
	Replace bool
}

// releaseResult returns res's three backing slices to commandSlices
// (pool.go) once the caller is done reading them, so the next pass's
// Reconcile can reuse the same backing arrays instead of allocating three
// fresh slices every pass. The engine calls this once it has applied (or
// failed to apply) res.
func releaseResult(res Result) {
	commandSlices.Put(res.Add)
	commandSlices.Put(res.Remove)
	commandSlices.Put(res.Update)
}

// Reconciler diffs a freshly built tree against a retained tree and emits
// the three command arrays, per spec.md section 4.6. Both trees are walked
// in lockstep depth-first from the root (each matched child's subtree is
// diffed before its next sibling); the walk is not breadth-first. Children
// are paired by identity first, then user key, then position.
type Reconciler struct {
	seq   int
	clock func() time.Time
}

func NewReconciler() *Reconciler {
	return &Reconciler{clock: time.Now}
}

func (r *Reconciler) nextSeq() int {
	r.seq++
	return r.seq
}

// Reconcile is the C6 entry point. newTree is always non-nil; retained may
// be nil or empty for the very first pass, in which case the whole newTree
// becomes a single Add subtree.
func (r *Reconciler) Reconcile(newTree, retained *Tree) (Result, error) {
	if retained != nil && retained.Len() > 0 && !retained.Consistent() {
		return Result{}, fmt.Errorf("%w: retained tree identity index does not match its structure", ErrReconcilerInconsistent)
	}

	res := Result{
		Add:    commandSlices.Get(),
		Remove: commandSlices.Get(),
		Update: commandSlices.Get(),
	}

	if retained == nil || retained.Len() == 0 {
		if newTree.Len() > 0 {
			root, _ := newTree.Get(newTree.Root)
			r.addSubtree(newTree, root, 0, &res)
		}
		return res, nil
	}

	newRoot, hasNew := newTree.Get(newTree.Root)
	retRoot, hasRet := retained.Get(retained.Root)

	if !hasNew && !hasRet {
		return res, nil
	}
	if !hasNew {
		r.removeSubtree(retained, retRoot, &res)
		return res, nil
	}
	if !hasRet {
		r.addSubtree(newTree, newRoot, 0, &res)
		return res, nil
	}

	if err := r.diffPair(newTree, retained, newRoot, retRoot, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// diffPair handles one matched (new, retained) pair: compute its own
// update (if any), then pair and recurse into children (spec.md section
// 4.6 rules 2-3).
func (r *Reconciler) diffPair(newTree, retTree *Tree, n, o *Node, res *Result) error {
	changed, removedKeys := attrDelta(Object(o.Attrs), Object(n.Attrs))
	handlerChanged := handlersChanged(o.Handlers, n.Handlers)
	styleDirty := n.Style != o.Style

	if len(changed) > 0 || len(removedKeys) > 0 || styleDirty || handlerChanged {
		res.Update = append(res.Update, Command{
			Kind:       CmdUpdate,
			ID:         n.ID,
			ParentID:   n.Parent,
			Changed:    changed,
			Removed:    removedKeys,
			OldStyle:   o.Style,
			NewStyle:   n.Style,
			StyleDirty: styleDirty,
			Seq:        r.nextSeq(),
			Timestamp:  r.clock(),
		})
	}

	return r.diffChildren(newTree, retTree, n, o, res)
}

// diffChildren pairs n's and o's children by identity, then key, then
// position, recurses into matched pairs, emits Add for unmatched new
// children and Remove for unmatched retained children, and finally checks
// whether the matched subset was merely reordered.
//
// Matching runs in three whole-list phases rather than a single greedy pass
// over n.Children: identity matches are claimed first across every child,
// then key matches across every still-unmatched child, and only the
// leftovers on both sides are paired positionally. A single greedy pass
// would let an early new child with no identity/key match grab a retained
// child positionally before a later new child gets the chance to claim that
// same retained child by key — scrambling keyed identity, which is the one
// thing keys exist to prevent (spec.md section 4.6 rule 2).
func (r *Reconciler) diffChildren(newTree, retTree *Tree, n, o *Node, res *Result) error {
	retByID := make(map[Identity]bool, len(o.Children))
	retByKey := make(map[string][]Identity)
	for _, cid := range o.Children {
		retByID[cid] = true
		child, ok := retTree.Get(cid)
		if ok && child.Key != "" {
			retByKey[child.Key] = append(retByKey[child.Key], cid)
		}
	}
	claimed := make(map[Identity]bool, len(o.Children))

	type pairing struct {
		newID Identity
		retID Identity // zero Identity if unmatched (Add)
	}
	pairs := make([]pairing, len(n.Children))
	matched := make([]bool, len(n.Children))

	// Phase 1: identity matches, across the whole child list.
	for idx, cid := range n.Children {
		if retByID[cid] && !claimed[cid] {
			claimed[cid] = true
			pairs[idx] = pairing{newID: cid, retID: cid}
			matched[idx] = true
		}
	}

	// Phase 2: key matches, across the whole child list, only for new
	// children phase 1 left unmatched.
	for idx, cid := range n.Children {
		if matched[idx] {
			continue
		}
		child, _ := newTree.Get(cid)
		if child == nil || child.Key == "" {
			continue
		}
		for _, cand := range retByKey[child.Key] {
			if !claimed[cand] {
				claimed[cand] = true
				pairs[idx] = pairing{newID: cid, retID: cand}
				matched[idx] = true
				break
			}
		}
	}

	// Phase 3: positional fallback pairs whatever is left on each side, in
	// order; any still-unpaired new child becomes an Add.
	leftoverRet := make([]Identity, 0, len(o.Children))
	for _, cid := range o.Children {
		if !claimed[cid] {
			leftoverRet = append(leftoverRet, cid)
		}
	}
	li := 0
	for idx, cid := range n.Children {
		if matched[idx] {
			continue
		}
		if li < len(leftoverRet) {
			retID := leftoverRet[li]
			li++
			claimed[retID] = true
			pairs[idx] = pairing{newID: cid, retID: retID}
			matched[idx] = true
			continue
		}
		pairs[idx] = pairing{newID: cid}
		matched[idx] = true
	}

	retainedMatchedOrder := make([]Identity, 0, len(o.Children))
	for _, cid := range o.Children {
		if claimed[cid] {
			retainedMatchedOrder = append(retainedMatchedOrder, cid)
		}
	}
	newMatchedOrder := make([]Identity, 0, len(pairs))

	for idx, p := range pairs {
		if p.retID == 0 {
			newChild, _ := newTree.Get(p.newID)
			r.addSubtree(newTree, newChild, idx, res)
			continue
		}
		newMatchedOrder = append(newMatchedOrder, p.retID)
		newChild, _ := newTree.Get(p.newID)
		oldChild, _ := retTree.Get(p.retID)
		if err := r.diffPair(newTree, retTree, newChild, oldChild, res); err != nil {
			return err
		}
	}

	for _, cid := range o.Children {
		if !claimed[cid] {
			oldChild, _ := retTree.Get(cid)
			r.removeSubtree(retTree, oldChild, res)
		}
	}

	r.emitReorderHints(n.ID, retainedMatchedOrder, newMatchedOrder, res)
	return nil
}

// emitReorderHints compares the matched children's retained order against
// their new order. When the matched subset is a pure permutation, moved
// elements get an Update command with Reorder set rather than a
// remove/add pair (spec.md section 4.6 rule 4). The longest-increasing-
// subsequence of original positions needs no move; everything else does —
// this is the standard O(k log k) keyed-list reorder technique the spec's
// complexity note calls for.
func (r *Reconciler) emitReorderHints(parent Identity, retainedOrder, newOrder []Identity, res *Result) {
	if len(newOrder) == 0 {
		return
	}
	origIndex := make(map[Identity]int, len(retainedOrder))
	for i, id := range retainedOrder {
		origIndex[id] = i
	}
	positions := make([]int, len(newOrder))
	for i, id := range newOrder {
		positions[i] = origIndex[id]
	}
	stay := longestIncreasingSubsequence(positions)

	for newIdx, id := range newOrder {
		if stay[newIdx] {
			continue
		}
		res.Update = append(res.Update, Command{
			Kind:      CmdUpdate,
			ID:        id,
			ParentID:  parent,
			Index:     newIdx,
			Reorder:   true,
			Seq:       r.nextSeq(),
			Timestamp: r.clock(),
		})
	}
}

// longestIncreasingSubsequence returns a boolean mask over positions marking
// which indices belong to a longest strictly increasing subsequence — those
// elements stayed in relative order and need no move command.
func longestIncreasingSubsequence(positions []int) []bool {
	n := len(positions)
	stay := make([]bool, n)
	if n == 0 {
		return stay
	}
	tails := make([]int, 0, n) // tails[i] = index into positions of the smallest tail of an increasing subsequence of length i+1
	link := make([]int, n)

	for i, v := range positions {
		idx := sort.Search(len(tails), func(k int) bool { return positions[tails[k]] >= v })
		if idx == len(tails) {
			tails = append(tails, i)
		} else {
			tails[idx] = i
		}
		if idx > 0 {
			link[i] = tails[idx-1]
		} else {
			link[i] = -1
		}
	}
	if len(tails) == 0 {
		return stay
	}
	k := tails[len(tails)-1]
	for k != -1 {
		stay[k] = true
		k = link[k]
	}
	return stay
}

// addSubtree walks a freshly-added subtree and emits one Add command per
// node, parent-first, deterministic in new-tree child order (spec.md
// section 4.6 "Tie-breaks").
func (r *Reconciler) addSubtree(t *Tree, n *Node, index int, res *Result) {
	res.Add = append(res.Add, Command{
		Kind:      CmdAdd,
		ID:        n.ID,
		ParentID:  n.Parent,
		Index:     index,
		Node:      n,
		Seq:       r.nextSeq(),
		Timestamp: r.clock(),
	})
	for i, cid := range n.Children {
		child, ok := t.Get(cid)
		if ok {
			r.addSubtree(t, child, i, res)
		}
	}
}

// removeSubtree walks a subtree being dropped and emits one Remove command
// per node, children-first so the host never sees a dangling parent
// reference for a still-present child (spec.md section 4.7).
func (r *Reconciler) removeSubtree(t *Tree, n *Node, res *Result) {
	for _, cid := range n.Children {
		child, ok := t.Get(cid)
		if ok {
			r.removeSubtree(t, child, res)
		}
	}
	res.Remove = append(res.Remove, Command{
		Kind:      CmdRemove,
		ID:        n.ID,
		ParentID:  n.Parent,
		Seq:       r.nextSeq(),
		Timestamp: r.clock(),
	})
}

func attrDelta(old, new Object) (changed Object, removed []string) {
	changed = NewObject()
	for k, nv := range new {
		ov, ok := old[k]
		if !ok || !Equal(ov, nv) {
			changed[k] = nv
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return changed, removed
}

func handlersChanged(old, new map[string]HandlerBinding) bool {
	if len(old) != len(new) {
		return true
	}
	for k, ob := range old {
		nb, ok := new[k]
		if !ok || !ob.Equal(nb) {
			return true
		}
	}
	return false
}
