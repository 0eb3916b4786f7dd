// Package anim provides skeletal animation sampling: keyframe interpolation,
// bone registration and the node tree walk that produces skinning matrices.
package anim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Animation data errors.
var (
	ErrDegenerateClip             = errors.New("degenerate clip: duration or tick rate unusable")
	ErrZeroLengthKeyframeInterval = errors.New("consecutive keyframes share the same time")
	ErrUnsortedKeyframes          = errors.New("keyframe times are not increasing")
	ErrEmptyKeyframes             = errors.New("channel component has no keyframes")
)

// DefaultTicksPerSecond is used when a clip does not declare its tick rate.
const DefaultTicksPerSecond float32 = 25.0

// Node is an element of the model hierarchy.
// Children are owned by their parent and kept in load order.
type Node struct {
	Name      string
	Transform mgl32.Mat4 // Local rest transform
	Children  []*Node
}

// NewNode creates a node with the given rest transform.
func NewNode(name string, transform mgl32.Mat4, children ...*Node) *Node {
	return &Node{Name: name, Transform: transform, Children: children}
}

// AddChild appends a child node and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Walk visits n and its descendants depth-first in child order.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Find returns the first node named name in depth-first order, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// VectorKey is a translation or scale keyframe.
type VectorKey struct {
	Time  float32 // Ticks
	Value mgl32.Vec3
}

// KeyTime returns the key's time in ticks.
func (k VectorKey) KeyTime() float32 { return k.Time }

// QuatKey is a rotation keyframe.
type QuatKey struct {
	Time  float32 // Ticks
	Value mgl32.Quat
}

// KeyTime returns the key's time in ticks.
func (k QuatKey) KeyTime() float32 { return k.Time }

// Channel holds the animated transform of a single node within a clip.
type Channel struct {
	NodeName  string
	Positions []VectorKey
	Rotations []QuatKey
	Scales    []VectorKey
}

// LocalTransform samples the channel at tick t and returns T * R * S.
func (c *Channel) LocalTransform(t float32) mgl32.Mat4 {
	translation := InterpolateTranslation(c.Positions, t)
	rotation := InterpolateRotation(c.Rotations, t)
	scale := InterpolateScaling(c.Scales, t)
	return translation.Mul4(rotation).Mul4(scale)
}

// Validate reports the first keyframe ordering problem in the channel.
func (c *Channel) Validate() error {
	if err := validateKeys("position", c.Positions); err != nil {
		return fmt.Errorf("channel %q: %w", c.NodeName, err)
	}
	if err := validateKeys("rotation", c.Rotations); err != nil {
		return fmt.Errorf("channel %q: %w", c.NodeName, err)
	}
	if err := validateKeys("scale", c.Scales); err != nil {
		return fmt.Errorf("channel %q: %w", c.NodeName, err)
	}
	return nil
}

func validateKeys[K timedKey](component string, keys []K) error {
	if len(keys) == 0 {
		return fmt.Errorf("%s: %w", component, ErrEmptyKeyframes)
	}
	for i := 1; i < len(keys); i++ {
		prev, cur := keys[i-1].KeyTime(), keys[i].KeyTime()
		switch {
		case cur == prev:
			return fmt.Errorf("%s key %d at %g: %w", component, i, cur, ErrZeroLengthKeyframeInterval)
		case cur < prev:
			return fmt.Errorf("%s key %d at %g: %w", component, i, cur, ErrUnsortedKeyframes)
		}
	}
	return nil
}

// Clip is one animation sequence. Clips are immutable once loaded.
type Clip struct {
	Name           string
	Duration       float32 // Ticks
	TicksPerSecond float32 // 0 means DefaultTicksPerSecond
	Channels       []Channel

	index map[string]int
}

// NewClip creates a clip and indexes its channels by node name.
// When several channels target the same node the first one wins.
func NewClip(name string, duration, ticksPerSecond float32, channels []Channel) *Clip {
	c := &Clip{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: ticksPerSecond,
		Channels:       channels,
		index:          make(map[string]int, len(channels)),
	}
	for i := range channels {
		if _, ok := c.index[channels[i].NodeName]; !ok {
			c.index[channels[i].NodeName] = i
		}
	}
	return c
}

// FindChannel returns the channel animating nodeName, or nil if the node is
// not animated by this clip.
func (c *Clip) FindChannel(nodeName string) *Channel {
	if c == nil {
		return nil
	}
	if c.index != nil {
		if i, ok := c.index[nodeName]; ok {
			return &c.Channels[i]
		}
		return nil
	}
	for i := range c.Channels {
		if c.Channels[i].NodeName == nodeName {
			return &c.Channels[i]
		}
	}
	return nil
}

// Rate returns the effective ticks per second.
func (c *Clip) Rate() float32 {
	if c.TicksPerSecond == 0 {
		return DefaultTicksPerSecond
	}
	return c.TicksPerSecond
}

// Seconds returns the clip length in seconds.
func (c *Clip) Seconds() float32 {
	return c.Duration / c.Rate()
}

// Validate checks the clip duration and every channel's keyframes.
// All problems are joined into the returned error.
func (c *Clip) Validate() error {
	var errs []error
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("clip %q duration %g: %w", c.Name, c.Duration, ErrDegenerateClip))
	}
	for i := range c.Channels {
		if err := c.Channels[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
