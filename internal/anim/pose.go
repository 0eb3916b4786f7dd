package anim

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Pose holds one final skinning matrix per bone, indexed by BoneInfo.Index.
type Pose []mgl32.Mat4

// NewPose allocates a pose of the given size with every slot at identity.
func NewPose(size int) Pose {
	p := make(Pose, size)
	p.Reset()
	return p
}

// Reset sets every slot back to identity.
func (p Pose) Reset() {
	for i := range p {
		p[i] = mgl32.Ident4()
	}
}

// ComputePose samples clip at tick t over the tree rooted at root.
// The returned pose has one slot per registered bone. A nil clip gives the
// rest pose.
func ComputePose(root *Node, clip *Clip, t float32, registry *BoneRegistry) Pose {
	pose := NewPose(registry.Count())
	ComputePoseInto(pose, root, clip, t, registry)
	return pose
}

// ComputePoseInto writes bone matrices for tick t into pose. Slots of bones
// that are never reached keep their current value. Bones whose index does
// not fit in pose are skipped.
func ComputePoseInto(pose Pose, root *Node, clip *Clip, t float32, registry *BoneRegistry) {
	if root == nil {
		return
	}
	w := walker{pose: pose, clip: clip, t: t, registry: registry}
	w.visit(root, mgl32.Ident4())
}

type walker struct {
	pose     Pose
	clip     *Clip
	t        float32
	registry *BoneRegistry
}

func (w *walker) visit(node *Node, parent mgl32.Mat4) {
	local := node.Transform
	if ch := w.clip.FindChannel(node.Name); ch != nil {
		local = ch.LocalTransform(w.t)
	}
	global := parent.Mul4(local)

	if bone, ok := w.registry.Lookup(node.Name); ok && bone.Index >= 0 && bone.Index < len(w.pose) {
		w.pose[bone.Index] = global.Mul4(bone.Offset)
	}

	for _, child := range node.Children {
		w.visit(child, global)
	}
}

// GlobalTransforms returns the model-space transform of every node at tick t,
// keyed by node name. Later duplicates of a name overwrite earlier ones.
func GlobalTransforms(root *Node, clip *Clip, t float32) map[string]mgl32.Mat4 {
	out := make(map[string]mgl32.Mat4)
	var visit func(node *Node, parent mgl32.Mat4)
	visit = func(node *Node, parent mgl32.Mat4) {
		local := node.Transform
		if ch := clip.FindChannel(node.Name); ch != nil {
			local = ch.LocalTransform(t)
		}
		global := parent.Mul4(local)
		out[node.Name] = global
		for _, child := range node.Children {
			visit(child, global)
		}
	}
	if root != nil {
		visit(root, mgl32.Ident4())
	}
	return out
}
