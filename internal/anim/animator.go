package anim

// Animator drives one model's clip frame by frame and owns the pose buffer
// handed to the renderer.
type Animator struct {
	root     *Node
	clip     *Clip
	registry *BoneRegistry
	pose     Pose

	clipTime   float32
	degenerate bool
}

// NewAnimator creates an animator for clip over the tree rooted at root.
// The pose buffer holds max(capacity, bone count) slots; slots past the bone
// count stay at identity.
func NewAnimator(root *Node, clip *Clip, registry *BoneRegistry, capacity int) *Animator {
	size := registry.Count()
	if capacity > size {
		size = capacity
	}
	return &Animator{
		root:     root,
		clip:     clip,
		registry: registry,
		pose:     NewPose(size),
	}
}

// Update samples the clip at elapsedSeconds and returns the pose buffer.
// The returned slice is reused by the next call. A missing or degenerate clip
// yields the rest pose.
func (a *Animator) Update(elapsedSeconds float32) Pose {
	a.pose.Reset()

	if a.clip == nil {
		a.clipTime = 0
		a.degenerate = false
		ComputePoseInto(a.pose, a.root, nil, 0, a.registry)
		return a.pose
	}

	t, err := ClipTime(elapsedSeconds, a.clip.TicksPerSecond, a.clip.Duration)
	if err != nil {
		a.clipTime = 0
		a.degenerate = true
		ComputePoseInto(a.pose, a.root, nil, 0, a.registry)
		return a.pose
	}

	a.clipTime = t
	a.degenerate = false
	ComputePoseInto(a.pose, a.root, a.clip, t, a.registry)
	return a.pose
}

// SetClip switches the sampled clip. nil selects the rest pose.
func (a *Animator) SetClip(clip *Clip) {
	a.clip = clip
}

// Clip returns the sampled clip.
func (a *Animator) Clip() *Clip { return a.clip }

// ClipTime returns the tick time used by the last Update.
func (a *Animator) ClipTime() float32 { return a.clipTime }

// Degenerate reports whether the last Update fell back to the rest pose
// because the clip could not be timed.
func (a *Animator) Degenerate() bool { return a.degenerate }

// Pose returns the pose computed by the last Update.
func (a *Animator) Pose() Pose { return a.pose }
