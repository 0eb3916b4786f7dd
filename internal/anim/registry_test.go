package anim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBoneRegistry_SequentialIndices(t *testing.T) {
	r := NewBoneRegistry()

	names := []string{"hips", "spine", "head"}
	for want, name := range names {
		if got := r.Register(name, mgl32.Ident4()); got != want {
			t.Errorf("Register(%q) = %d, want %d", name, got, want)
		}
	}

	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}

	got := r.Names()
	for i, name := range names {
		if got[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestBoneRegistry_IdempotentKeepsFirstOffset(t *testing.T) {
	r := NewBoneRegistry()
	first := mgl32.Translate3D(1, 2, 3)
	second := mgl32.Scale3D(5, 5, 5)

	r.Register("root", mgl32.Ident4())
	a := r.Register("arm", first)
	b := r.Register("arm", second)

	if a != b {
		t.Errorf("re-registering returned %d, first registration %d", b, a)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}

	info, ok := r.Lookup("arm")
	if !ok {
		t.Fatal("Lookup(arm) not found")
	}
	if info.Offset != first {
		t.Errorf("offset = %v, want first offset %v", info.Offset, first)
	}
}

func TestBoneRegistry_Lookup(t *testing.T) {
	r := NewBoneRegistry()
	r.Register("a", mgl32.Ident4())

	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup returned ok for unregistered bone")
	}

	var nilRegistry *BoneRegistry
	if _, ok := nilRegistry.Lookup("a"); ok {
		t.Error("nil registry Lookup returned ok")
	}
	if nilRegistry.Count() != 0 {
		t.Error("nil registry Count should be 0")
	}
}

func TestBoneRegistry_NamesIsCopy(t *testing.T) {
	r := NewBoneRegistry()
	r.Register("a", mgl32.Ident4())

	names := r.Names()
	names[0] = "changed"

	if r.Names()[0] != "a" {
		t.Error("modifying Names() result changed the registry")
	}
}
