package anim

import (
	"github.com/chewxy/math32"
)

// ClipTime converts wall-clock seconds into a looping clip-local tick time.
// A zero tick rate falls back to DefaultTicksPerSecond. The result lies in
// [0, durationTicks). ErrDegenerateClip is returned when the duration is not
// positive or the inputs are not finite; callers should then use the rest pose.
func ClipTime(elapsedSeconds, ticksPerSecond, durationTicks float32) (float32, error) {
	if ticksPerSecond == 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	if !(durationTicks > 0) || !finite(durationTicks) || !finite(ticksPerSecond) || !finite(elapsedSeconds) {
		return 0, ErrDegenerateClip
	}

	ticks := elapsedSeconds * ticksPerSecond
	t := math32.Mod(ticks, durationTicks)
	if t < 0 {
		t += durationTicks
	}
	// Rounding in the shift can land exactly on the duration.
	if t >= durationTicks {
		t = 0
	}
	return t, nil
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
