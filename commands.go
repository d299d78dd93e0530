package vapor

import "fmt"

// Applier is the stable interface to a host that mutates the display
// surface (spec.md section 4.7/C7): create, update, remove, and insert,
// addressed by the engine's own stable Identity rather than a separately
// allocated opaque handle — Identity already satisfies the "opaque handle"
// contract spec.md asks for, since the host never needs to invert it back
// to a tree position itself.
//
// This generalizes the teacher's NativeElement interface (native.go:
// AppendChild/Prepend/InsertChild/ReplaceChild/RemoveChild against a live
// DOM node) into the four operations spec.md names, and borrows the
// named/ordered command shape from uicommands.go's Command type for the
// Update signature's delta payload.
type Applier interface {
	// Create instantiates a new host-side node for n. It must not make the
	// node visible in the display surface; placement happens via Insert.
	Create(id Identity, n *Node) error

	// Update applies an in-place attribute/style change to an existing
	// node. changed holds attribute keys with new values; removed holds
	// attribute keys no longer present; styleDirty reports whether
	// newStyle differs from the node's previous style handle.
	Update(id Identity, changed Object, removed []string, newStyle StyleHandle, styleDirty bool) error

	// Remove detaches and disposes of a node the host previously created.
	Remove(id Identity) error

	// Insert places a created child under parentID at the given sibling
	// index, used both for a freshly created node's initial placement and
	// for moving an existing node during a keyed reorder.
	Insert(id Identity, parentID Identity, index int) error
}

// Apply replays a Result against host in the order spec.md section 4.6
// rule 5 requires: removes first, then updates, then adds — so the host
// never observes a dangling parent reference. The reconciler is the single
// source of ordering decisions; Apply never reorders or coalesces what it
// is given (spec.md section 4.7).
func Apply(host Applier, res Result) error {
	for _, cmd := range res.Remove {
		if err := host.Remove(cmd.ID); err != nil {
			return fmt.Errorf("%w: remove %s: %v", ErrHostApplyFailed, identityToString(cmd.ID), err)
		}
	}
	for _, cmd := range res.Update {
		if cmd.Reorder {
			if err := host.Insert(cmd.ID, cmd.ParentID, cmd.Index); err != nil {
				return fmt.Errorf("%w: move %s: %v", ErrHostApplyFailed, identityToString(cmd.ID), err)
			}
			continue
		}
		if err := host.Update(cmd.ID, cmd.Changed, cmd.Removed, cmd.NewStyle, cmd.StyleDirty); err != nil {
			return fmt.Errorf("%w: update %s: %v", ErrHostApplyFailed, identityToString(cmd.ID), err)
		}
	}
	for _, cmd := range res.Add {
		if err := host.Create(cmd.ID, cmd.Node); err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrHostApplyFailed, identityToString(cmd.ID), err)
		}
		if err := host.Insert(cmd.ID, cmd.ParentID, cmd.Index); err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrHostApplyFailed, identityToString(cmd.ID), err)
		}
	}
	return nil
}
