package vapor

import (
	"errors"
	"testing"
)

// recordingApplier logs the order in which Applier methods are invoked, for
// asserting Apply's remove-then-update-then-add ordering contract.
type recordingApplier struct {
	calls   []string
	failOn  string
	created map[Identity]bool
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{created: make(map[Identity]bool)}
}

func (a *recordingApplier) Create(id Identity, n *Node) error {
	a.calls = append(a.calls, "create:"+identityToString(id))
	if a.failOn == "create" {
		return errors.New("forced failure")
	}
	a.created[id] = true
	return nil
}

func (a *recordingApplier) Update(id Identity, changed Object, removed []string, newStyle StyleHandle, styleDirty bool) error {
	a.calls = append(a.calls, "update:"+identityToString(id))
	if a.failOn == "update" {
		return errors.New("forced failure")
	}
	return nil
}

func (a *recordingApplier) Remove(id Identity) error {
	a.calls = append(a.calls, "remove:"+identityToString(id))
	if a.failOn == "remove" {
		return errors.New("forced failure")
	}
	return nil
}

func (a *recordingApplier) Insert(id Identity, parentID Identity, index int) error {
	a.calls = append(a.calls, "insert:"+identityToString(id))
	if a.failOn == "insert" {
		return errors.New("forced failure")
	}
	return nil
}

func TestApplyOrdersRemoveThenUpdateThenAdd(t *testing.T) {
	res := Result{
		Add:    []Command{{Kind: CmdAdd, ID: 3, Node: &Node{ID: 3}}},
		Remove: []Command{{Kind: CmdRemove, ID: 1}},
		Update: []Command{{Kind: CmdUpdate, ID: 2}},
	}
	host := newRecordingApplier()
	if err := Apply(host, res); err != nil {
		t.Fatal(err)
	}
	want := []string{"remove:" + identityToString(1), "update:" + identityToString(2), "create:" + identityToString(3), "insert:" + identityToString(3)}
	if len(host.calls) != len(want) {
		t.Fatalf("want %v, got %v", want, host.calls)
	}
	for i := range want {
		if host.calls[i] != want[i] {
			t.Fatalf("call %d: want %q, got %q (full: %v)", i, want[i], host.calls[i], host.calls)
		}
	}
}

func TestApplyReorderUpdateGoesThroughInsert(t *testing.T) {
	res := Result{
		Update: []Command{{Kind: CmdUpdate, ID: 5, Reorder: true, Index: 2}},
	}
	host := newRecordingApplier()
	if err := Apply(host, res); err != nil {
		t.Fatal(err)
	}
	if len(host.calls) != 1 || host.calls[0] != "insert:"+identityToString(5) {
		t.Fatalf("a reorder Update must dispatch to Insert, got %v", host.calls)
	}
}

func TestApplyPropagatesHostFailure(t *testing.T) {
	host := newRecordingApplier()
	host.failOn = "remove"
	res := Result{Remove: []Command{{Kind: CmdRemove, ID: 1}}}
	err := Apply(host, res)
	if !errors.Is(err, ErrHostApplyFailed) {
		t.Fatalf("want ErrHostApplyFailed, got %v", err)
	}
}

func TestApplyStopsOnFirstFailure(t *testing.T) {
	host := newRecordingApplier()
	host.failOn = "update"
	res := Result{
		Update: []Command{{Kind: CmdUpdate, ID: 1}, {Kind: CmdUpdate, ID: 2}},
		Add:    []Command{{Kind: CmdAdd, ID: 3, Node: &Node{ID: 3}}},
	}
	if err := Apply(host, res); err == nil {
		t.Fatalf("expected an error from the first failing update")
	}
	for _, c := range host.calls {
		if c == "create:"+identityToString(3) {
			t.Fatalf("Apply must not proceed to Add commands after an earlier failure")
		}
	}
}
