package anim

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BoneInfo is a bone's output slot and inverse bind matrix.
type BoneInfo struct {
	Index  int
	Offset mgl32.Mat4
}

// BoneRegistry assigns stable indices to bone names in first-seen order.
// It is filled while a model loads and is read-only afterwards.
type BoneRegistry struct {
	bones map[string]BoneInfo
	names []string
}

// NewBoneRegistry creates an empty registry.
func NewBoneRegistry() *BoneRegistry {
	return &BoneRegistry{bones: make(map[string]BoneInfo)}
}

// Register returns the index of name, assigning the next one if the name is
// new. The offset of an already registered bone is left unchanged.
func (r *BoneRegistry) Register(name string, offset mgl32.Mat4) int {
	if info, ok := r.bones[name]; ok {
		return info.Index
	}
	index := len(r.names)
	r.bones[name] = BoneInfo{Index: index, Offset: offset}
	r.names = append(r.names, name)
	return index
}

// Lookup returns the bone registered under name.
func (r *BoneRegistry) Lookup(name string) (BoneInfo, bool) {
	if r == nil {
		return BoneInfo{}, false
	}
	info, ok := r.bones[name]
	return info, ok
}

// Count returns the number of registered bones.
func (r *BoneRegistry) Count() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Names returns bone names ordered by index.
func (r *BoneRegistry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
