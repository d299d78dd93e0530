package testhost_test

import (
	"errors"
	"testing"

	"github.com/vapor-ui/vapor"
	"github.com/vapor-ui/vapor/testhost"
)

func TestHostTracksCreatedNodes(t *testing.T) {
	host := testhost.New()
	eng := vapor.New(host)
	eng.SetRoot(func(e *vapor.Engine) {
		vapor.Container(e, vapor.CallSite(), "").Children(func() {
			vapor.Text(e, vapor.CallSite(), "", "hello").End()
		})
	})
	if err := eng.Cycle(); err != nil {
		t.Fatal(err)
	}
	if host.Len() != 2 {
		t.Fatalf("want 2 tracked nodes, got %d", host.Len())
	}
}

func TestHostAttrsReflectUpdates(t *testing.T) {
	host := testhost.New()
	eng := vapor.New(host)
	text := "first"
	eng.SetRoot(func(e *vapor.Engine) {
		vapor.Text(e, vapor.CallSite(), "", text).End()
	})
	if err := eng.Cycle(); err != nil {
		t.Fatal(err)
	}
	ids := host.Identities()
	if len(ids) != 1 {
		t.Fatalf("want 1 node, got %d", len(ids))
	}
	attrs, ok := host.Attrs(ids[0])
	if !ok {
		t.Fatalf("want attrs for the text node")
	}
	if v, _ := attrs.Get("text"); v != vapor.String("first") {
		t.Fatalf("want text=%q, got %v", "first", v)
	}

	text = "second"
	if err := eng.Cycle(); err != nil {
		t.Fatal(err)
	}
	attrs, _ = host.Attrs(ids[0])
	if v, _ := attrs.Get("text"); v != vapor.String("second") {
		t.Fatalf("want text updated to %q, got %v", "second", v)
	}
}

func TestHostFailNextSurfacesAsHostApplyFailed(t *testing.T) {
	host := testhost.New()
	eng := vapor.New(host)
	eng.SetRoot(func(e *vapor.Engine) {
		vapor.Text(e, vapor.CallSite(), "", "x").End()
	})
	host.FailNext("create")
	err := eng.Cycle()
	if !errors.Is(err, vapor.ErrHostApplyFailed) {
		t.Fatalf("want ErrHostApplyFailed, got %v", err)
	}
}

func TestHostFailNextRecoversWithFullReplaceOnNextPass(t *testing.T) {
	host := testhost.New()
	eng := vapor.New(host)
	text := "first"
	eng.SetRoot(func(e *vapor.Engine) {
		vapor.Container(e, vapor.CallSite(), "").Children(func() {
			vapor.Text(e, vapor.CallSite(), "", text).End()
		})
	})

	host.FailNext("insert")
	if err := eng.Cycle(); !errors.Is(err, vapor.ErrHostApplyFailed) {
		t.Fatalf("want ErrHostApplyFailed from the forced insert failure, got %v", err)
	}

	text = "second"
	if err := eng.Cycle(); err != nil {
		t.Fatalf("the pass after a host-apply failure must recover via a full replace, got %v", err)
	}

	ids := host.Identities()
	if len(ids) != 2 {
		t.Fatalf("want the container and text node both present after recovery, got %d nodes", len(ids))
	}
	found := false
	for _, id := range ids {
		attrs, ok := host.Attrs(id)
		if !ok {
			continue
		}
		if v, _ := attrs.Get("text"); v == vapor.String("second") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want the recovered tree to carry the latest text attribute, got %+v", ids)
	}
}

func TestHostChildOrderMatchesInsertion(t *testing.T) {
	host := testhost.New()
	eng := vapor.New(host)
	items := []string{"x", "y", "z"}
	eng.SetRoot(func(e *vapor.Engine) {
		vapor.Container(e, vapor.CallSite(), "").Children(func() {
			for _, it := range items {
				vapor.Text(e, vapor.CallSite(), it, it).End()
			}
		})
	})
	if err := eng.Cycle(); err != nil {
		t.Fatal(err)
	}
	ids := host.Identities()
	var root vapor.Identity
	for _, id := range ids {
		if len(host.Children(id)) == 3 {
			root = id
		}
	}
	children := host.Children(root)
	if len(children) != 3 {
		t.Fatalf("want 3 children in insertion order, got %d", len(children))
	}
	for i, id := range children {
		attrs, _ := host.Attrs(id)
		if v, _ := attrs.Get("text"); v != vapor.String(items[i]) {
			t.Fatalf("child %d: want text %q in insertion order, got %v", i, items[i], v)
		}
	}
}
