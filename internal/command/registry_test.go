package command

import (
	"errors"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(func(arg string) error {
		called = true
		return nil
	}, "hello")

	h, ok := r.Lookup("hello")
	if !ok {
		t.Fatal("Lookup(hello) = false, want true")
	}
	if err := h(""); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !called {
		t.Error("handler was not invoked")
	}
}

func TestLookupLowercasesName(t *testing.T) {
	r := NewRegistry()
	r.Register(func(string) error { return nil }, "Room")

	if !r.Has("room") {
		t.Error("Has(room) = false after registering Room")
	}
	if !r.Has("ROOM") {
		t.Error("Has(ROOM) = false, lookup should be case-insensitive")
	}
}

func TestRegisterAliases(t *testing.T) {
	r := NewRegistry()
	r.Register(func(string) error { return nil }, "load", "loadplugin")

	if !r.Has("load") || !r.Has("loadplugin") {
		t.Error("aliases not both registered")
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	errFirst := errors.New("first")
	errSecond := errors.New("second")

	r.Register(func(string) error { return errFirst }, "cmd")
	r.Register(func(string) error { return errSecond }, "cmd")

	h, _ := r.Lookup("cmd")
	if err := h(""); !errors.Is(err, errSecond) {
		t.Errorf("handler after overwrite returned %v, want the second handler", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d after overwrite, want 1", r.Count())
	}
}

func TestUnregisterTolerant(t *testing.T) {
	r := NewRegistry()
	r.Register(func(string) error { return nil }, "keep", "drop")

	// Removing a missing name alongside a present one must not fail.
	r.Unregister("drop", "never-existed")

	if r.Has("drop") {
		t.Error("Has(drop) = true after Unregister")
	}
	if !r.Has("keep") {
		t.Error("Has(keep) = false, unrelated entry removed")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(func(string) error { return nil }, "zeta", "alpha", "mid")

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegisterNilHandlerIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register(nil, "ghost")

	if r.Has("ghost") {
		t.Error("nil handler was registered")
	}
}
