package vapor

import "testing"

func TestComputeIdentityIsDeterministic(t *testing.T) {
	id1 := computeIdentity(42, 1, KindText, "greeting", 7)
	id2 := computeIdentity(42, 1, KindText, "greeting", 7)
	if id1 != id2 {
		t.Fatalf("identical (parent, position, kind, key, salt) tuples must hash to the same Identity")
	}
}

func TestComputeIdentityDiffersOnAnyComponent(t *testing.T) {
	base := computeIdentity(1, 0, KindText, "a", 1)
	variants := []Identity{
		computeIdentity(2, 0, KindText, "a", 1),
		computeIdentity(1, 1, KindText, "a", 1),
		computeIdentity(1, 0, KindImage, "a", 1),
		computeIdentity(1, 0, KindText, "b", 1),
		computeIdentity(1, 0, KindText, "a", 2),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base identity", i)
		}
	}
}

func TestTreeConsistentOnWellFormedTree(t *testing.T) {
	tree := NewTree()
	root := &Node{ID: 1, Children: []Identity{2, 3}}
	c1 := &Node{ID: 2, Parent: 1}
	c2 := &Node{ID: 3, Parent: 1}
	tree.Root = 1
	tree.put(root)
	tree.put(c1)
	tree.put(c2)
	if !tree.Consistent() {
		t.Fatalf("well-formed tree reported inconsistent")
	}
}

func TestTreeInconsistentOnDanglingChild(t *testing.T) {
	tree := NewTree()
	root := &Node{ID: 1, Children: []Identity{2}}
	tree.Root = 1
	tree.put(root)
	// child 2 is referenced but never inserted.
	if tree.Consistent() {
		t.Fatalf("tree with a dangling child reference should be inconsistent")
	}
}

func TestTreeInconsistentOnWrongParentBackpointer(t *testing.T) {
	tree := NewTree()
	root := &Node{ID: 1, Children: []Identity{2}}
	child := &Node{ID: 2, Parent: 99} // wrong parent pointer
	tree.Root = 1
	tree.put(root)
	tree.put(child)
	if tree.Consistent() {
		t.Fatalf("mismatched parent back-pointer should be reported inconsistent")
	}
}

func TestEmptyTreeIsConsistent(t *testing.T) {
	tree := NewTree()
	if !tree.Consistent() {
		t.Fatalf("empty tree should be trivially consistent")
	}
}

func TestHandlerBindingEqualIgnoresFnPointer(t *testing.T) {
	fn1 := func(Value) bool { return true }
	fn2 := func(Value) bool { return false }
	a := HandlerBinding{Fn: fn1, FuncAddr: 10, ArgsHash: 5}
	b := HandlerBinding{Fn: fn2, FuncAddr: 10, ArgsHash: 5}
	if !a.Equal(b) {
		t.Fatalf("bindings with the same diffing identity must compare equal regardless of Fn closure identity")
	}
	c := HandlerBinding{Fn: fn1, FuncAddr: 10, ArgsHash: 5, Capture: true}
	if a.Equal(c) {
		t.Fatalf("differing Capture must make bindings unequal")
	}
}
