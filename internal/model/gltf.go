package model

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/anim"
)

// syntheticRootName names the identity node that parents several scene roots.
const syntheticRootName = "__scene_root"

// LoadGLTF loads a .gltf or .glb file.
func LoadGLTF(path string, log *zap.Logger) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF %s: %w", path, err)
	}
	m, err := FromGLTF(doc, baseName(path), log)
	if err != nil {
		return nil, fmt.Errorf("converting glTF %s: %w", path, err)
	}
	return m, nil
}

// DecodeGLTF decodes a .glb or self-contained .gltf held in memory.
func DecodeGLTF(name string, data []byte, log *zap.Logger) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return FromGLTF(doc, baseName(name), log)
}

// FromGLTF converts a decoded glTF document. Scene roots become the node
// tree, skinned meshes feed the bone registry and every animation becomes a
// clip timed in seconds.
func FromGLTF(doc *gltf.Document, name string, log *zap.Logger) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := gltfConverter{doc: doc, log: log, model: New(name)}
	c.model.Format = "gltf"

	if err := c.buildNodes(); err != nil {
		return nil, err
	}
	if err := c.buildMeshes(); err != nil {
		return nil, err
	}
	if err := c.buildClips(); err != nil {
		return nil, err
	}
	return c.model, nil
}

type gltfConverter struct {
	doc   *gltf.Document
	log   *zap.Logger
	model *Model

	nodes []*anim.Node
	rest  []trs
	order []uint32 // node indices in depth-first order from the root
}

func (c *gltfConverter) nodeName(i uint32) string {
	if n := c.doc.Nodes[i]; n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node_%d", i)
}

func (c *gltfConverter) buildNodes() error {
	count := len(c.doc.Nodes)
	if count == 0 {
		return ErrNoScene
	}

	c.nodes = make([]*anim.Node, count)
	c.rest = make([]trs, count)
	for i, n := range c.doc.Nodes {
		c.rest[i] = gltfNodeTRS(n)
		local := c.rest[i].Mat4()
		if hasMatrix(n.Matrix) {
			local = mgl32.Mat4(n.Matrix)
		}
		c.nodes[i] = anim.NewNode(c.nodeName(uint32(i)), local)
	}

	// Each node may have a single parent; later claims are ignored.
	hasParent := make([]bool, count)
	for i, n := range c.doc.Nodes {
		for _, child := range n.Children {
			if int(child) >= count || int(child) == i || hasParent[child] {
				c.log.Warn("ignoring invalid glTF child reference",
					zap.Int("node", i), zap.Uint32("child", child))
				continue
			}
			hasParent[child] = true
			c.nodes[i].AddChild(c.nodes[child])
		}
	}

	roots := c.sceneRoots(hasParent)
	if len(roots) == 0 {
		return ErrNoScene
	}

	if len(roots) == 1 {
		c.model.Root = c.nodes[roots[0]]
	} else {
		c.model.Root = anim.NewNode(syntheticRootName, mgl32.Ident4())
		for _, r := range roots {
			c.model.Root.AddChild(c.nodes[r])
		}
	}

	index := make(map[*anim.Node]uint32, count)
	for i, n := range c.nodes {
		index[n] = uint32(i)
	}
	c.model.Root.Walk(func(n *anim.Node, _ int) bool {
		if i, ok := index[n]; ok {
			c.order = append(c.order, i)
		}
		return true
	})
	return nil
}

// sceneRoots returns the root nodes of the default scene, or every
// parentless node when the document has no scenes.
func (c *gltfConverter) sceneRoots(hasParent []bool) []uint32 {
	var roots []uint32
	if len(c.doc.Scenes) > 0 {
		scene := 0
		if c.doc.Scene != nil && int(*c.doc.Scene) < len(c.doc.Scenes) {
			scene = int(*c.doc.Scene)
		}
		for _, r := range c.doc.Scenes[scene].Nodes {
			if int(r) < len(c.nodes) && !hasParent[r] {
				roots = append(roots, r)
			}
		}
		if len(roots) > 0 {
			return roots
		}
	}
	for i := range c.nodes {
		if !hasParent[i] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// buildMeshes walks mesh nodes in tree order so bones are registered in the
// order their meshes are processed.
func (c *gltfConverter) buildMeshes() error {
	for _, i := range c.order {
		n := c.doc.Nodes[i]
		if n.Mesh == nil || int(*n.Mesh) >= len(c.doc.Meshes) {
			continue
		}
		mesh := c.doc.Meshes[*n.Mesh]

		var skin *gltf.Skin
		if n.Skin != nil && int(*n.Skin) < len(c.doc.Skins) {
			skin = c.doc.Skins[*n.Skin]
		}
		var offsets []mgl32.Mat4
		if skin != nil {
			var err error
			if offsets, err = c.inverseBindMatrices(skin); err != nil {
				return fmt.Errorf("skin %q: %w", skin.Name, err)
			}
		}

		for p, prim := range mesh.Primitives {
			name := mesh.Name
			if name == "" {
				name = c.nodeName(i)
			}
			if len(mesh.Primitives) > 1 {
				name = fmt.Sprintf("%s.%d", name, p)
			}
			if err := c.addPrimitive(name, prim, skin, offsets); err != nil {
				return fmt.Errorf("mesh %q: %w", name, err)
			}
		}
	}
	return nil
}

func (c *gltfConverter) inverseBindMatrices(skin *gltf.Skin) ([]mgl32.Mat4, error) {
	offsets := make([]mgl32.Mat4, len(skin.Joints))
	for i := range offsets {
		offsets[i] = mgl32.Ident4()
	}
	if skin.InverseBindMatrices == nil {
		return offsets, nil
	}
	data, err := c.readAccessor(*skin.InverseBindMatrices)
	if err != nil {
		return nil, err
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("inverse bind matrices: unexpected accessor data %T", data)
	}
	for i := 0; i < len(mats) && i < len(offsets); i++ {
		var m mgl32.Mat4
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				m[col*4+row] = mats[i][col][row]
			}
		}
		offsets[i] = m
	}
	return offsets, nil
}

func (c *gltfConverter) addPrimitive(name string, prim *gltf.Primitive, skin *gltf.Skin, offsets []mgl32.Mat4) error {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok || int(posIdx) >= len(c.doc.Accessors) {
		return nil
	}
	raw, err := modeler.ReadPosition(c.doc, c.doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}
	positions := make([]mgl32.Vec3, len(raw))
	for i, p := range raw {
		positions[i] = mgl32.Vec3(p)
	}

	if skin == nil {
		c.model.AddMesh(name, positions, nil)
		return nil
	}

	bindings := make([]anim.BoneBinding, len(skin.Joints))
	for j, node := range skin.Joints {
		if int(node) >= len(c.nodes) {
			return fmt.Errorf("skin joint %d references missing node %d", j, node)
		}
		bindings[j] = anim.BoneBinding{Name: c.nodes[node].Name, Offset: offsets[j]}
	}

	jointsIdx, hasJoints := prim.Attributes["JOINTS_0"]
	weightsIdx, hasWeights := prim.Attributes["WEIGHTS_0"]
	if hasJoints && hasWeights {
		if int(jointsIdx) >= len(c.doc.Accessors) || int(weightsIdx) >= len(c.doc.Accessors) {
			return fmt.Errorf("skin accessors %d/%d out of range", jointsIdx, weightsIdx)
		}
		joints, err := modeler.ReadJoints(c.doc, c.doc.Accessors[jointsIdx], nil)
		if err != nil {
			return fmt.Errorf("reading joints: %w", err)
		}
		weights, err := modeler.ReadWeights(c.doc, c.doc.Accessors[weightsIdx], nil)
		if err != nil {
			return fmt.Errorf("reading weights: %w", err)
		}
		unresolved := 0
		for v := 0; v < len(joints) && v < len(weights); v++ {
			for k := 0; k < 4; k++ {
				w := weights[v][k]
				if w == 0 {
					continue
				}
				j := int(joints[v][k])
				if j >= len(bindings) {
					unresolved++
					continue
				}
				bindings[j].Weights = append(bindings[j].Weights, anim.VertexWeight{Vertex: v, Weight: w})
			}
		}
		if unresolved > 0 {
			c.log.Warn("vertex weights reference joints outside the skin",
				zap.String("mesh", name), zap.Int("count", unresolved))
		}
	}

	logBindStats(c.log, name, c.model.AddMesh(name, positions, bindings))
	return nil
}

func (c *gltfConverter) buildClips() error {
	for ai, a := range c.doc.Animations {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("clip_%d", ai)
		}

		byNode := make(map[uint32]int)
		var channels []anim.Channel
		var duration float32

		for _, ch := range a.Channels {
			if ch.Sampler == nil || ch.Target.Node == nil || int(*ch.Sampler) >= len(a.Samplers) {
				continue
			}
			target := *ch.Target.Node
			if int(target) >= len(c.nodes) {
				continue
			}
			sampler := a.Samplers[*ch.Sampler]
			if sampler.Input == nil || sampler.Output == nil {
				continue
			}

			times, err := c.readFloats(*sampler.Input)
			if err != nil {
				return fmt.Errorf("animation %q input: %w", name, err)
			}
			if len(times) > 0 && times[len(times)-1] > duration {
				duration = times[len(times)-1]
			}

			ci, ok := byNode[target]
			if !ok {
				ci = len(channels)
				byNode[target] = ci
				channels = append(channels, anim.Channel{NodeName: c.nodes[target].Name})
			}
			dst := &channels[ci]
			cubic := sampler.Interpolation == gltf.InterpolationCubicSpline

			switch ch.Target.Path {
			case gltf.TRSTranslation, gltf.TRSScale:
				values, err := c.readVec3s(*sampler.Output)
				if err != nil {
					return fmt.Errorf("animation %q output: %w", name, err)
				}
				keys := make([]anim.VectorKey, 0, len(times))
				for k, t := range times {
					v, ok := keyValue(values, k, cubic)
					if !ok {
						break
					}
					keys = append(keys, anim.VectorKey{Time: t, Value: v})
				}
				if ch.Target.Path == gltf.TRSTranslation {
					dst.Positions = keys
				} else {
					dst.Scales = keys
				}
			case gltf.TRSRotation:
				values, err := c.readVec4s(*sampler.Output)
				if err != nil {
					return fmt.Errorf("animation %q output: %w", name, err)
				}
				keys := make([]anim.QuatKey, 0, len(times))
				for k, t := range times {
					v, ok := keyValue(values, k, cubic)
					if !ok {
						break
					}
					keys = append(keys, anim.QuatKey{Time: t, Value: quatXYZW(v)})
				}
				dst.Rotations = keys
			}
		}

		// Components the clip does not animate hold the node's rest value.
		for target, ci := range byNode {
			fillRest(&channels[ci], c.rest[target])
		}
		c.model.Clips = append(c.model.Clips, anim.NewClip(name, duration, 1, channels))
	}
	return nil
}

// fillRest gives empty components of ch a single key at the rest value.
func fillRest(ch *anim.Channel, rest trs) {
	if len(ch.Positions) == 0 {
		ch.Positions = []anim.VectorKey{{Value: rest.T}}
	}
	if len(ch.Rotations) == 0 {
		ch.Rotations = []anim.QuatKey{{Value: rest.R}}
	}
	if len(ch.Scales) == 0 {
		ch.Scales = []anim.VectorKey{{Value: rest.S}}
	}
}

// keyValue returns output k. Cubic-spline outputs store in-tangent, value
// and out-tangent per key.
func keyValue[V any](values []V, k int, cubic bool) (V, bool) {
	if cubic {
		k = k*3 + 1
	}
	if k >= len(values) {
		var zero V
		return zero, false
	}
	return values[k], true
}

func (c *gltfConverter) readAccessor(i uint32) (interface{}, error) {
	if int(i) >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return modeler.ReadAccessor(c.doc, c.doc.Accessors[i], nil)
}

func (c *gltfConverter) readFloats(i uint32) ([]float32, error) {
	data, err := c.readAccessor(i)
	if err != nil {
		return nil, err
	}
	v, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected float scalars, got %T", i, data)
	}
	return v, nil
}

func (c *gltfConverter) readVec3s(i uint32) ([]mgl32.Vec3, error) {
	data, err := c.readAccessor(i)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected float vec3, got %T", i, data)
	}
	out := make([]mgl32.Vec3, len(raw))
	for k, v := range raw {
		out[k] = mgl32.Vec3(v)
	}
	return out, nil
}

func (c *gltfConverter) readVec4s(i uint32) ([][4]float32, error) {
	data, err := c.readAccessor(i)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: expected float vec4, got %T", i, data)
	}
	return raw, nil
}

// gltfNodeTRS returns the node's rest transform as TRS, decomposing the
// matrix form when present.
func gltfNodeTRS(n *gltf.Node) trs {
	if hasMatrix(n.Matrix) {
		return decompose(mgl32.Mat4(n.Matrix))
	}
	p := trs{
		T: mgl32.Vec3(n.Translation),
		R: quatXYZW(n.Rotation),
		S: mgl32.Vec3(n.Scale),
	}
	if n.Rotation == [4]float32{} {
		p.R = mgl32.QuatIdent()
	}
	if n.Scale == [3]float32{} {
		p.S = mgl32.Vec3{1, 1, 1}
	}
	return p
}

// hasMatrix reports whether m carries a transform other than identity.
func hasMatrix(m [16]float32) bool {
	return m != [16]float32{} && mgl32.Mat4(m) != mgl32.Ident4()
}
