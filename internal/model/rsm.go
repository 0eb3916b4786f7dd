package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/anim"
	"github.com/Faultbox/rigview/internal/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

// RSM keyframes are stored in milliseconds.
const rsmTicksPerSecond = 1000

// RSMVersion is the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMNode holds the parts of an RSM node the animation pipeline uses.
type RSMNode struct {
	Name   string
	Parent string

	Matrix   [9]float32 // 3x3 vertex transform, not inherited
	Offset   [3]float32 // Pivot, not inherited
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices [][3]float32

	PosKeys   []RSMVectorKey // v < 1.5
	RotKeys   []RSMRotKey
	ScaleKeys []RSMVectorKey // v >= 1.5
}

// RSMVectorKey is a position or scale keyframe.
type RSMVectorKey struct {
	Frame int32 // Milliseconds
	Value [3]float32
}

// RSMRotKey is a rotation keyframe stored as x, y, z, w.
type RSMRotKey struct {
	Frame      int32 // Milliseconds
	Quaternion [4]float32
}

// RSM is a parsed Ragnarok Online rigid model.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // Milliseconds
	RootNode   string
	Nodes      []RSMNode
}

// rsmReader reads little-endian values and keeps the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncatedRSMData
		}
		rr.err = err
	}
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if int64(rr.r.Len()) < n {
		rr.err = ErrTruncatedRSMData
		return
	}
	_, rr.err = rr.r.Seek(n, io.SeekCurrent)
}

// str reads a fixed-length, NUL-padded EUC-KR string.
func (rr *rsmReader) str(length int) string {
	buf := make([]byte, length)
	rr.read(buf)
	return encoding.DecodeName(buf)
}

// count reads an int32 element count and checks it against limit.
func (rr *rsmReader) count(what string, limit int32) int {
	var n int32
	rr.read(&n)
	if rr.err == nil && (n < 0 || n > limit) {
		rr.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	if rr.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM 1.x data. Textures, faces and texture coordinates
// are skipped.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rr := &rsmReader{r: bytes.NewReader(data[6:])}
	rr.read(&rsm.AnimLength)
	rr.skip(4) // shading
	if rsm.Version.AtLeast(1, 4) {
		rr.skip(1) // alpha
	}
	rr.skip(16) // reserved

	textures := rr.count("textures", 1000)
	rr.skip(int64(textures) * 40)

	rsm.RootNode = rr.str(40)

	nodeCount := rr.count("nodes", 10000)
	if rr.err != nil {
		return nil, rr.err
	}
	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(rr, rsm.Version, &rsm.Nodes[i])
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}
	return rsm, nil
}

func parseRSMNode(rr *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = rr.str(40)
	node.Parent = rr.str(40)

	textureIDs := rr.count("node textures", 1000)
	rr.skip(int64(textureIDs) * 4)

	rr.read(&node.Matrix)
	rr.read(&node.Offset)
	rr.read(&node.Position)
	rr.read(&node.RotAngle)
	rr.read(&node.RotAxis)
	rr.read(&node.Scale)

	if n := rr.count("vertices", 100000); n > 0 {
		node.Vertices = make([][3]float32, n)
		rr.read(node.Vertices)
	}

	texCoordSize := int64(8)
	if version.AtLeast(1, 2) {
		texCoordSize += 4 // vertex color
	}
	rr.skip(int64(rr.count("texture coordinates", 100000)) * texCoordSize)

	faceSize := int64(6 + 6 + 2 + 2 + 4)
	if version.AtLeast(1, 2) {
		faceSize += 4 // smoothing group
	}
	rr.skip(int64(rr.count("faces", 100000)) * faceSize)

	if !version.AtLeast(1, 5) {
		if n := rr.count("position keys", 10000); n > 0 {
			node.PosKeys = make([]RSMVectorKey, n)
			rr.read(node.PosKeys)
		}
	}

	if n := rr.count("rotation keys", 10000); n > 0 {
		node.RotKeys = make([]RSMRotKey, n)
		rr.read(node.RotKeys)
	}

	if version.AtLeast(1, 5) {
		if n := rr.count("scale keys", 10000); n > 0 {
			node.ScaleKeys = make([]RSMVectorKey, n)
			rr.read(node.ScaleKeys)
		}
	}
}

// LoadRSM loads a .rsm file.
func LoadRSM(path string, log *zap.Logger) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	rsm, err := ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parsing RSM %s: %w", path, err)
	}
	return FromRSM(rsm, baseName(path), log)
}

// FromRSM converts a parsed RSM. Every node is a rigid bone: its vertices
// follow the node with full weight, and the node's pivot and 3x3 matrix form
// the bone offset since children do not inherit them.
func FromRSM(rsm *RSM, name string, log *zap.Logger) (*Model, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(rsm.Nodes) == 0 {
		return nil, ErrNoScene
	}

	m := New(name)
	m.Format = "rsm"

	// Later nodes reusing a name are dropped.
	nodes := make(map[string]*anim.Node, len(rsm.Nodes))
	var unique []*RSMNode
	for i := range rsm.Nodes {
		rn := &rsm.Nodes[i]
		if _, dup := nodes[rn.Name]; dup {
			log.Warn("duplicate RSM node name", zap.String("node", rn.Name))
			continue
		}
		nodes[rn.Name] = anim.NewNode(rn.Name, rsmRest(rn).Mat4())
		unique = append(unique, rn)
	}

	var roots []*anim.Node
	for _, rn := range unique {
		n := nodes[rn.Name]
		parent, ok := nodes[rn.Parent]
		if !ok || rn.Parent == rn.Name {
			roots = append(roots, n)
			continue
		}
		parent.AddChild(n)
	}

	m.Root = pickRSMRoot(roots)
	if reached := m.Root.Count(); reached < len(nodes) {
		log.Warn("RSM nodes unreachable from root", zap.Int("dropped", len(nodes)-reached))
	}

	var channels []anim.Channel
	for _, rn := range unique {
		offset := mgl32.Translate3D(rn.Offset[0], rn.Offset[1], rn.Offset[2]).
			Mul4(mgl32.Mat3(rn.Matrix).Mat4())

		positions := make([]mgl32.Vec3, len(rn.Vertices))
		weights := make([]anim.VertexWeight, len(rn.Vertices))
		for v, p := range rn.Vertices {
			positions[v] = mgl32.Vec3(p)
			weights[v] = anim.VertexWeight{Vertex: v, Weight: 1}
		}
		logBindStats(log, rn.Name, m.AddMesh(rn.Name, positions, []anim.BoneBinding{
			{Name: rn.Name, Offset: offset, Weights: weights},
		}))

		if ch, ok := rsmChannel(rn); ok {
			channels = append(channels, ch)
		}
	}

	if len(channels) > 0 {
		m.Clips = append(m.Clips, anim.NewClip("default", float32(rsm.AnimLength), rsmTicksPerSecond, channels))
	}
	return m, nil
}

// pickRSMRoot returns the single root, or groups several roots under an
// identity node.
func pickRSMRoot(roots []*anim.Node) *anim.Node {
	if len(roots) == 1 {
		return roots[0]
	}
	root := anim.NewNode(syntheticRootName, mgl32.Ident4())
	for _, r := range roots {
		root.AddChild(r)
	}
	return root
}

func rsmRest(rn *RSMNode) trs {
	scale := mgl32.Vec3(rn.Scale)
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	return trs{
		T: mgl32.Vec3(rn.Position),
		R: axisAngle(rn.RotAngle, mgl32.Vec3(rn.RotAxis)),
		S: scale,
	}
}

// rsmChannel builds a channel for a node with keyframes. Components without
// keys hold the node's rest value. Scale keys are relative to the node's
// static scale.
func rsmChannel(rn *RSMNode) (anim.Channel, bool) {
	if len(rn.PosKeys) == 0 && len(rn.RotKeys) == 0 && len(rn.ScaleKeys) == 0 {
		return anim.Channel{}, false
	}
	ch := anim.Channel{NodeName: rn.Name}
	for _, k := range rn.PosKeys {
		ch.Positions = append(ch.Positions, anim.VectorKey{Time: float32(k.Frame), Value: mgl32.Vec3(k.Value)})
	}
	for _, k := range rn.RotKeys {
		ch.Rotations = append(ch.Rotations, anim.QuatKey{Time: float32(k.Frame), Value: quatXYZW(k.Quaternion)})
	}
	rest := rsmRest(rn)
	for _, k := range rn.ScaleKeys {
		v := mgl32.Vec3(k.Value)
		ch.Scales = append(ch.Scales, anim.VectorKey{
			Time:  float32(k.Frame),
			Value: mgl32.Vec3{v[0] * rest.S[0], v[1] * rest.S[1], v[2] * rest.S[2]},
		})
	}
	fillRest(&ch, rest)
	return ch, true
}
