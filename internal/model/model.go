// Package model loads rigged and static models into the node trees, clips
// and bone registries sampled by package anim.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/anim"
)

// Model loading errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrNoScene           = errors.New("model has no root node")
)

// Mesh is the skinning-relevant part of a mesh: rest positions and the bones
// influencing each vertex.
type Mesh struct {
	Name       string
	Positions  []mgl32.Vec3
	Influences []anim.VertexInfluence
}

// Model is a loaded asset. It owns its node tree, clips and bone registry;
// nothing is shared between models.
type Model struct {
	Name   string
	Path   string
	Format string
	Root   *anim.Node
	Clips  []*anim.Clip
	Bones  *anim.BoneRegistry
	Meshes []Mesh
}

// New creates an empty model with its own bone registry.
func New(name string) *Model {
	return &Model{Name: name, Bones: anim.NewBoneRegistry()}
}

// ActiveClip returns clip index, or nil when the model has no such clip.
func (m *Model) ActiveClip(index int) *anim.Clip {
	if index < 0 || index >= len(m.Clips) {
		return nil
	}
	return m.Clips[index]
}

// ClipByName returns the first clip called name, or nil.
func (m *Model) ClipByName(name string) *anim.Clip {
	for _, c := range m.Clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NewAnimator creates an animator for clip index with a pose buffer of at
// least capacity slots.
func (m *Model) NewAnimator(clipIndex, capacity int) *anim.Animator {
	return anim.NewAnimator(m.Root, m.ActiveClip(clipIndex), m.Bones, capacity)
}

// AddMesh registers the mesh's bones and stores the mesh.
func (m *Model) AddMesh(name string, positions []mgl32.Vec3, bindings []anim.BoneBinding) anim.BindStats {
	influences := make([]anim.VertexInfluence, len(positions))
	for i := range influences {
		influences[i] = anim.NewVertexInfluence()
	}
	stats := anim.BindBones(m.Bones, influences, bindings)
	m.Meshes = append(m.Meshes, Mesh{Name: name, Positions: positions, Influences: influences})
	return stats
}

// SkinResult holds skinned positions for every mesh of a model.
type SkinResult struct {
	Positions  [][]mgl32.Vec3
	Unresolved int // influences referencing bones outside the pose
}

// Skin deforms every mesh with pose.
func (m *Model) Skin(pose anim.Pose) SkinResult {
	res := SkinResult{Positions: make([][]mgl32.Vec3, len(m.Meshes))}
	for i, mesh := range m.Meshes {
		out := make([]mgl32.Vec3, len(mesh.Positions))
		for v, p := range mesh.Positions {
			var missed int
			out[v], missed = anim.SkinPosition(pose, p, mesh.Influences[v])
			res.Unresolved += missed
		}
		res.Positions[i] = out
	}
	return res
}

// VertexCount returns the number of vertices across all meshes.
func (m *Model) VertexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += len(mesh.Positions)
	}
	return total
}

// HasAnimation reports whether any clip has at least one channel.
func (m *Model) HasAnimation() bool {
	for _, c := range m.Clips {
		if len(c.Channels) > 0 {
			return true
		}
	}
	return false
}

// Load reads a model from disk, choosing the loader by file extension.
// Data problems that still allow rendering (bad keyframes, unresolved
// bones) are logged as warnings. A nil log discards them.
func Load(path string, log *zap.Logger) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		m   *Model
		err error
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		m, err = LoadGLTF(path, log)
	case ".rsm":
		m, err = LoadRSM(path, log)
	case ".yaml", ".yml":
		m, err = LoadRig(path, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return finish(m, path, log), nil
}

// Decode builds a model from in-memory data such as an archive entry. name
// selects the loader by extension and names the model. glTF documents must
// embed their buffers.
func Decode(name string, data []byte, log *zap.Logger) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		m   *Model
		err error
	)
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".gltf", ".glb":
		m, err = DecodeGLTF(name, data, log)
	case ".rsm":
		var rsm *RSM
		if rsm, err = ParseRSM(data); err == nil {
			m, err = FromRSM(rsm, baseName(name), log)
		}
	case ".yaml", ".yml":
		m, err = DecodeRig(name, data, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return finish(m, name, log), nil
}

func finish(m *Model, path string, log *zap.Logger) *Model {
	m.Path = path
	checkClips(m, log)
	log.Debug("model loaded",
		zap.String("path", path),
		zap.String("format", m.Format),
		zap.Int("nodes", m.Root.Count()),
		zap.Int("bones", m.Bones.Count()),
		zap.Int("clips", len(m.Clips)),
		zap.Int("meshes", len(m.Meshes)))
	return m
}

// checkClips logs keyframe problems. Clips are kept: interpolation guards
// against them and degenerate clips fall back to the rest pose.
func checkClips(m *Model, log *zap.Logger) {
	for _, c := range m.Clips {
		if err := c.Validate(); err != nil {
			log.Warn("clip has invalid animation data",
				zap.String("model", m.Name),
				zap.String("clip", c.Name),
				zap.Error(err))
		}
	}
}

func logBindStats(log *zap.Logger, mesh string, stats anim.BindStats) {
	if stats.OutOfRange > 0 || stats.Overflow > 0 {
		log.Warn("mesh has bone weights that were dropped",
			zap.String("mesh", mesh),
			zap.Int("out_of_range", stats.OutOfRange),
			zap.Int("overflow", stats.Overflow))
	}
}

// baseName returns the file name without directory or extension.
func baseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
