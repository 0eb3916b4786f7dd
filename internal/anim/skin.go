package anim

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxBoneInfluence is the number of bones that may affect a single vertex.
const MaxBoneInfluence = 4

// VertexInfluence lists the bones affecting one vertex.
// Unused slots have bone -1 and weight 0.
type VertexInfluence struct {
	Bones   [MaxBoneInfluence]int
	Weights [MaxBoneInfluence]float32
}

// NewVertexInfluence returns an influence with every slot empty.
func NewVertexInfluence() VertexInfluence {
	var v VertexInfluence
	for i := range v.Bones {
		v.Bones[i] = -1
	}
	return v
}

// Add stores bone with weight in the first empty slot.
// It returns false when all slots are taken.
func (v *VertexInfluence) Add(bone int, weight float32) bool {
	for i := range v.Bones {
		if v.Bones[i] < 0 {
			v.Bones[i] = bone
			v.Weights[i] = weight
			return true
		}
	}
	return false
}

// Count returns the number of occupied slots.
func (v VertexInfluence) Count() int {
	n := 0
	for _, b := range v.Bones {
		if b >= 0 {
			n++
		}
	}
	return n
}

// SkinPosition blends position through the pose matrices of its bones.
// Influences that point outside the pose are skipped and counted in
// unresolved. A vertex without usable weight keeps its rest position.
func SkinPosition(pose Pose, position mgl32.Vec3, influence VertexInfluence) (skinned mgl32.Vec3, unresolved int) {
	var total float32
	p := position.Vec4(1)
	for i, bone := range influence.Bones {
		if bone < 0 {
			continue
		}
		if bone >= len(pose) {
			unresolved++
			continue
		}
		w := influence.Weights[i]
		if w == 0 {
			continue
		}
		skinned = skinned.Add(pose[bone].Mul4x1(p).Vec3().Mul(w))
		total += w
	}
	if total == 0 {
		return position, unresolved
	}
	return skinned, unresolved
}

// VertexWeight is one vertex influenced by a bone.
type VertexWeight struct {
	Vertex int
	Weight float32
}

// BoneBinding is a bone referenced by mesh skinning data.
type BoneBinding struct {
	Name    string
	Offset  mgl32.Mat4
	Weights []VertexWeight
}

// BindStats reports influences BindBones could not store.
type BindStats struct {
	OutOfRange int // vertex id not in the mesh
	Overflow   int // vertex already had MaxBoneInfluence bones
}

// BindBones registers each binding's bone and records its weights in
// influences. Bones shared between meshes keep the index of their first
// registration.
func BindBones(registry *BoneRegistry, influences []VertexInfluence, bindings []BoneBinding) BindStats {
	var stats BindStats
	for _, b := range bindings {
		index := registry.Register(b.Name, b.Offset)
		for _, vw := range b.Weights {
			if vw.Vertex < 0 || vw.Vertex >= len(influences) {
				stats.OutOfRange++
				continue
			}
			if !influences[vw.Vertex].Add(index, vw.Weight) {
				stats.Overflow++
			}
		}
	}
	return stats
}
