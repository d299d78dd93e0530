package vapor

import "testing"

func TestValueEqualAcrossKinds(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal strings", String("hi"), String("hi"), true},
		{"different strings", String("hi"), String("bye"), false},
		{"equal numbers", Number(1.5), Number(1.5), true},
		{"equal bools", Bool(true), Bool(true), true},
		{"cross-type never equal", String("1"), Number(1), false},
		{"equal lists", NewList(Number(1), String("a")), NewList(Number(1), String("a")), true},
		{"lists differ by length", NewList(Number(1)), NewList(Number(1), Number(2)), false},
		{"equal objects", NewObject().Set("a", Number(1)), NewObject().Set("a", Number(1)), true},
		{"objects differ by value", NewObject().Set("a", Number(1)), NewObject().Set("a", Number(2)), false},
	}
	for _, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("%s: Equal() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValueEqualNilHandling(t *testing.T) {
	if !Equal(nil, nil) {
		t.Fatalf("nil should equal nil")
	}
	if Equal(nil, String("")) {
		t.Fatalf("nil should never equal a non-nil Value")
	}
}

func TestCopyProducesIndependentList(t *testing.T) {
	orig := NewList(String("a"), String("b"))
	copied := Copy(orig).(List)
	copied[0] = String("changed")
	if orig[0] != String("a") {
		t.Fatalf("Copy must produce an independent backing array for List")
	}
}

func TestCopyProducesIndependentObject(t *testing.T) {
	orig := NewObject().Set("k", String("v"))
	copied := Copy(orig).(Object)
	copied.Set("k", String("changed"))
	if v, _ := orig.Get("k"); v != String("v") {
		t.Fatalf("Copy must produce an independent map for Object")
	}
}

func TestCopyOfScalarIsIdentity(t *testing.T) {
	if Copy(Number(3)) != Number(3) {
		t.Fatalf("Copy of an immutable scalar must return an equal value")
	}
}
