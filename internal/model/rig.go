package model

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rigview/internal/anim"
)

// ErrInvalidRig is returned for rig files that cannot form a model.
var ErrInvalidRig = errors.New("invalid rig")

// RigFile is the YAML rig format used for hand-authored test models.
type RigFile struct {
	Name   string    `yaml:"name"`
	Root   *RigNode  `yaml:"root"`
	Meshes []RigMesh `yaml:"meshes"`
	Clips  []RigClip `yaml:"clips"`
}

// RigTransform is either a column-major matrix or translation, rotation
// (x, y, z, w) and scale.
type RigTransform struct {
	Matrix      []float32  `yaml:"matrix,omitempty"`
	Translation [3]float32 `yaml:"translation"`
	Rotation    []float32  `yaml:"rotation,omitempty"`
	Scale       []float32  `yaml:"scale,omitempty"`
}

// RigNode is a node of the rig hierarchy.
type RigNode struct {
	Name      string       `yaml:"name"`
	Transform RigTransform `yaml:",inline"`
	Children  []*RigNode   `yaml:"children"`
}

// RigMesh is a mesh with its bone bindings.
type RigMesh struct {
	Name      string       `yaml:"name"`
	Positions [][3]float32 `yaml:"positions"`
	Bones     []RigBinding `yaml:"bones"`
}

// RigBinding binds a bone to mesh vertices.
type RigBinding struct {
	Name    string      `yaml:"name"`
	Offset  []float32   `yaml:"offset,omitempty"`
	Weights []RigWeight `yaml:"weights"`
}

// RigWeight is one vertex weight.
type RigWeight struct {
	Vertex int     `yaml:"vertex"`
	Weight float32 `yaml:"weight"`
}

// RigClip is an animation clip.
type RigClip struct {
	Name           string       `yaml:"name"`
	Duration       float32      `yaml:"duration"`
	TicksPerSecond float32      `yaml:"ticks_per_second"`
	Channels       []RigChannel `yaml:"channels"`
}

// RigChannel animates one node.
type RigChannel struct {
	Node      string      `yaml:"node"`
	Positions []RigVecKey `yaml:"positions"`
	Rotations []RigRotKey `yaml:"rotations"`
	Scales    []RigVecKey `yaml:"scales"`
}

// RigVecKey is a translation or scale key.
type RigVecKey struct {
	Time  float32    `yaml:"time"`
	Value [3]float32 `yaml:"value"`
}

// RigRotKey is a rotation key. Value is x, y, z, w; alternatively Axis and
// Angle (degrees) may be given.
type RigRotKey struct {
	Time  float32    `yaml:"time"`
	Value []float32  `yaml:"value,omitempty"`
	Axis  [3]float32 `yaml:"axis"`
	Angle float32    `yaml:"angle"`
}

// LoadRig loads a YAML rig file.
func LoadRig(path string, log *zap.Logger) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rig file: %w", err)
	}
	m, err := DecodeRig(path, data, log)
	if err != nil {
		return nil, fmt.Errorf("rig %s: %w", path, err)
	}
	return m, nil
}

// DecodeRig decodes YAML rig data. name supplies the model name when the rig
// has none.
func DecodeRig(name string, data []byte, log *zap.Logger) (*Model, error) {
	var rig RigFile
	if err := yaml.Unmarshal(data, &rig); err != nil {
		return nil, fmt.Errorf("decoding rig: %w", err)
	}
	if rig.Name == "" {
		rig.Name = baseName(name)
	}
	return FromRig(&rig, log)
}

// FromRig converts a decoded rig. Bones are registered mesh by mesh in file
// order.
func FromRig(rig *RigFile, log *zap.Logger) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if rig.Root == nil {
		return nil, ErrNoScene
	}

	m := New(rig.Name)
	m.Format = "rig"

	root, err := rigNode(rig.Root, 0)
	if err != nil {
		return nil, err
	}
	m.Root = root

	for i, mesh := range rig.Meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", i)
		}
		positions := make([]mgl32.Vec3, len(mesh.Positions))
		for v, p := range mesh.Positions {
			positions[v] = mgl32.Vec3(p)
		}
		bindings := make([]anim.BoneBinding, len(mesh.Bones))
		for b, bone := range mesh.Bones {
			offset, err := rigMatrix(bone.Offset)
			if err != nil {
				return nil, fmt.Errorf("mesh %q bone %q offset: %w", name, bone.Name, err)
			}
			bindings[b] = anim.BoneBinding{Name: bone.Name, Offset: offset}
			for _, w := range bone.Weights {
				bindings[b].Weights = append(bindings[b].Weights, anim.VertexWeight{Vertex: w.Vertex, Weight: w.Weight})
			}
		}
		logBindStats(log, name, m.AddMesh(name, positions, bindings))
	}

	for i, clip := range rig.Clips {
		name := clip.Name
		if name == "" {
			name = fmt.Sprintf("clip_%d", i)
		}
		channels := make([]anim.Channel, len(clip.Channels))
		for c, ch := range clip.Channels {
			out := anim.Channel{NodeName: ch.Node}
			for _, k := range ch.Positions {
				out.Positions = append(out.Positions, anim.VectorKey{Time: k.Time, Value: mgl32.Vec3(k.Value)})
			}
			for _, k := range ch.Scales {
				out.Scales = append(out.Scales, anim.VectorKey{Time: k.Time, Value: mgl32.Vec3(k.Value)})
			}
			for _, k := range ch.Rotations {
				q, err := rigRotation(k)
				if err != nil {
					return nil, fmt.Errorf("clip %q channel %q: %w", name, ch.Node, err)
				}
				out.Rotations = append(out.Rotations, anim.QuatKey{Time: k.Time, Value: q})
			}
			if node := m.Root.Find(ch.Node); node != nil {
				fillRest(&out, decompose(node.Transform))
			} else {
				log.Debug("channel targets unknown node", zap.String("clip", name), zap.String("node", ch.Node))
			}
			channels[c] = out
		}
		m.Clips = append(m.Clips, anim.NewClip(name, clip.Duration, clip.TicksPerSecond, channels))
	}
	return m, nil
}

// maxRigDepth bounds YAML nesting; real rigs stay far below it.
const maxRigDepth = 256

func rigNode(rn *RigNode, depth int) (*anim.Node, error) {
	if depth > maxRigDepth {
		return nil, fmt.Errorf("%w: hierarchy deeper than %d", ErrInvalidRig, maxRigDepth)
	}
	if rn.Name == "" {
		return nil, fmt.Errorf("%w: node without name at depth %d", ErrInvalidRig, depth)
	}
	local, err := rn.Transform.Mat4()
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", rn.Name, err)
	}
	node := anim.NewNode(rn.Name, local)
	for _, child := range rn.Children {
		if child == nil {
			continue
		}
		c, err := rigNode(child, depth+1)
		if err != nil {
			return nil, err
		}
		node.AddChild(c)
	}
	return node, nil
}

// Mat4 returns the transform as a matrix.
func (t RigTransform) Mat4() (mgl32.Mat4, error) {
	if len(t.Matrix) > 0 {
		return rigMatrix(t.Matrix)
	}
	p := trs{T: mgl32.Vec3(t.Translation), R: mgl32.QuatIdent(), S: mgl32.Vec3{1, 1, 1}}
	switch len(t.Rotation) {
	case 0:
	case 4:
		p.R = quatXYZW([4]float32{t.Rotation[0], t.Rotation[1], t.Rotation[2], t.Rotation[3]})
	default:
		return mgl32.Mat4{}, fmt.Errorf("%w: rotation needs 4 values, got %d", ErrInvalidRig, len(t.Rotation))
	}
	switch len(t.Scale) {
	case 0:
	case 1:
		p.S = mgl32.Vec3{t.Scale[0], t.Scale[0], t.Scale[0]}
	case 3:
		p.S = mgl32.Vec3{t.Scale[0], t.Scale[1], t.Scale[2]}
	default:
		return mgl32.Mat4{}, fmt.Errorf("%w: scale needs 1 or 3 values, got %d", ErrInvalidRig, len(t.Scale))
	}
	return p.Mat4(), nil
}

// rigMatrix reads a column-major matrix. An empty list is identity.
func rigMatrix(values []float32) (mgl32.Mat4, error) {
	if len(values) == 0 {
		return mgl32.Ident4(), nil
	}
	if len(values) != 16 {
		return mgl32.Mat4{}, fmt.Errorf("%w: matrix needs 16 values, got %d", ErrInvalidRig, len(values))
	}
	var m mgl32.Mat4
	copy(m[:], values)
	return m, nil
}

func rigRotation(k RigRotKey) (mgl32.Quat, error) {
	switch len(k.Value) {
	case 4:
		return quatXYZW([4]float32{k.Value[0], k.Value[1], k.Value[2], k.Value[3]}), nil
	case 0:
		return axisAngle(mgl32.DegToRad(k.Angle), mgl32.Vec3(k.Axis)), nil
	default:
		return mgl32.Quat{}, fmt.Errorf("%w: rotation key needs 4 values, got %d", ErrInvalidRig, len(k.Value))
	}
}
