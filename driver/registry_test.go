package driver

import (
	"slices"
	"testing"
)

// fakeAdapter stubs the Adapter surface for registry tests. Only the
// methods the registry touches are real.
type fakeAdapter struct {
	Adapter
	name    string
	initErr error
	inited  bool
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Init() error {
	if f.initErr != nil {
		return f.initErr
	}
	f.inited = true
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	const name = "registry-test"
	Register(name, func() Adapter { return &fakeAdapter{name: name} })
	t.Cleanup(func() { Unregister(name) })

	if !IsRegistered(name) {
		t.Fatalf("IsRegistered(%q) = false after Register", name)
	}
	a := Get(name)
	if a == nil {
		t.Fatalf("Get(%q) = nil", name)
	}
	if a.Name() != name {
		t.Errorf("Name() = %q, want %q", a.Name(), name)
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	if a := Get("no-such-adapter"); a != nil {
		t.Errorf("Get of unregistered name returned %v, want nil", a)
	}
}

func TestGetReturnsFreshInstance(t *testing.T) {
	const name = "registry-fresh"
	Register(name, func() Adapter { return &fakeAdapter{name: name} })
	t.Cleanup(func() { Unregister(name) })

	a := Get(name)
	b := Get(name)
	if a == b {
		t.Error("Get returned the same instance twice, want a fresh instance per call")
	}
}

func TestUnregister(t *testing.T) {
	const name = "registry-gone"
	Register(name, func() Adapter { return &fakeAdapter{name: name} })
	Unregister(name)

	if IsRegistered(name) {
		t.Errorf("IsRegistered(%q) = true after Unregister", name)
	}
	if slices.Contains(Available(), name) {
		t.Errorf("Available() still lists %q after Unregister", name)
	}
}

func TestRegisterReplaces(t *testing.T) {
	const name = "registry-replace"
	Register(name, func() Adapter { return &fakeAdapter{name: "first"} })
	Register(name, func() Adapter { return &fakeAdapter{name: "second"} })
	t.Cleanup(func() { Unregister(name) })

	if got := Get(name).Name(); got != "second" {
		t.Errorf("after re-register, Get().Name() = %q, want %q", got, "second")
	}
}
