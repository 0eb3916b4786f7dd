package anim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func matApprox(a, b mgl32.Mat4) bool {
	return a.ApproxEqualThreshold(b, eps)
}

func translationOf(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

func TestInterpolateTranslation_TwoKeys(t *testing.T) {
	keys := []VectorKey{
		{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
		{Time: 10, Value: mgl32.Vec3{10, 0, 0}},
	}

	tests := []struct {
		name string
		at   float32
		want mgl32.Vec3
	}{
		{"start", 0, mgl32.Vec3{0, 0, 0}},
		{"midpoint", 5, mgl32.Vec3{5, 0, 0}},
		{"quarter", 2.5, mgl32.Vec3{2.5, 0, 0}},
		{"end", 10, mgl32.Vec3{10, 0, 0}},
		{"just before end", 9.999, mgl32.Vec3{9.999, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translationOf(InterpolateTranslation(keys, tt.at))
			if !got.ApproxEqualThreshold(tt.want, eps) {
				t.Errorf("translation at %v = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestInterpolateTranslation_SingleKeyIgnoresTime(t *testing.T) {
	keys := []VectorKey{{Time: 3, Value: mgl32.Vec3{1, 2, 3}}}
	want := mgl32.Translate3D(1, 2, 3)

	for _, at := range []float32{-5, 0, 3, 100} {
		if got := InterpolateTranslation(keys, at); !matApprox(got, want) {
			t.Errorf("single key at %v = %v, want %v", at, got, want)
		}
	}
}

func TestInterpolateScaling(t *testing.T) {
	keys := []VectorKey{
		{Time: 0, Value: mgl32.Vec3{1, 1, 1}},
		{Time: 4, Value: mgl32.Vec3{3, 5, 1}},
	}

	got := InterpolateScaling(keys, 2)
	want := mgl32.Scale3D(2, 3, 1)
	if !matApprox(got, want) {
		t.Errorf("scale at 2 = %v, want %v", got, want)
	}
}

func TestInterpolate_NoKeysIsIdentity(t *testing.T) {
	if got := InterpolateTranslation(nil, 1); !matApprox(got, mgl32.Ident4()) {
		t.Errorf("empty translation = %v, want identity", got)
	}
	if got := InterpolateScaling(nil, 1); !matApprox(got, mgl32.Ident4()) {
		t.Errorf("empty scale = %v, want identity", got)
	}
	if got := InterpolateRotation(nil, 1); !matApprox(got, mgl32.Ident4()) {
		t.Errorf("empty rotation = %v, want identity", got)
	}
}

func TestInterpolateRotation_ShortestArcMidpoint(t *testing.T) {
	yAxis := mgl32.Vec3{0, 1, 0}
	keys := []QuatKey{
		{Time: 0, Value: mgl32.QuatRotate(0, yAxis)},
		{Time: 10, Value: mgl32.QuatRotate(math.Pi, yAxis)},
	}

	got := InterpolateRotation(keys, 5)
	want := mgl32.HomogRotate3DY(math.Pi / 2)
	if !matApprox(got, want) {
		t.Errorf("rotation at midpoint = %v, want 90deg about Y %v", got, want)
	}
}

func TestInterpolateRotation_OppositeHemisphere(t *testing.T) {
	// q and -q describe the same orientation; interpolation must not take
	// the long way round when the second key is stored negated.
	zAxis := mgl32.Vec3{0, 0, 1}
	q1 := mgl32.QuatRotate(mgl32.DegToRad(80), zAxis)
	keys := []QuatKey{
		{Time: 0, Value: mgl32.QuatIdent()},
		{Time: 2, Value: q1.Scale(-1)},
	}

	got := InterpolateRotation(keys, 1)
	want := mgl32.HomogRotate3DZ(mgl32.DegToRad(40))
	if !matApprox(got, want) {
		t.Errorf("rotation = %v, want 40deg about Z %v", got, want)
	}
}

func TestInterpolateRotation_NearlyParallelKeys(t *testing.T) {
	// Two degrees apart the key dot product is above the lerp threshold.
	zAxis := mgl32.Vec3{0, 0, 1}
	keys := []QuatKey{
		{Time: 0, Value: mgl32.QuatIdent()},
		{Time: 2, Value: mgl32.QuatRotate(mgl32.DegToRad(2), zAxis)},
	}

	for _, tt := range []struct {
		t   float32
		deg float32
	}{
		{0.5, 0.5},
		{1, 1},
		{1.5, 1.5},
	} {
		got := InterpolateRotation(keys, tt.t)
		want := mgl32.HomogRotate3DZ(mgl32.DegToRad(tt.deg))
		if !matApprox(got, want) {
			t.Errorf("rotation at %v = %v, want %vdeg about Z", tt.t, got, tt.deg)
		}
	}
}

func TestInterpolate_ZeroLengthIntervalUsesFirstKey(t *testing.T) {
	keys := []VectorKey{
		{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
		{Time: 0, Value: mgl32.Vec3{7, 0, 0}},
	}

	got := SampleTranslation(keys, 0)
	if !got.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, eps) {
		t.Errorf("zero-length interval = %v, want first key value", got)
	}
	for _, f := range got {
		if math.IsNaN(float64(f)) {
			t.Fatalf("zero-length interval produced NaN: %v", got)
		}
	}

	rot := []QuatKey{
		{Time: 4, Value: mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0})},
		{Time: 4, Value: mgl32.QuatIdent()},
	}
	q := SampleRotation(rot, 4)
	if !q.ApproxEqualThreshold(rot[0].Value, eps) {
		t.Errorf("zero-length rotation interval = %v, want %v", q, rot[0].Value)
	}
}

func TestSegmentIndex(t *testing.T) {
	keys := []VectorKey{{Time: 0}, {Time: 10}, {Time: 20}}

	tests := []struct {
		at   float32
		want int
	}{
		{0, 0},
		{9.9, 0},
		{10, 1},
		{19.9, 1},
		// Past the last key the scan finds no bracket and falls back to 0.
		{20, 0},
		{35, 0},
		{-1, 0},
	}

	for _, tt := range tests {
		if got := segmentIndex(keys, tt.at); got != tt.want {
			t.Errorf("segmentIndex(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

// Sampling at or after the last key of a sequence with more than two keys
// extrapolates from the first segment instead of holding the last value.
// This matches the behaviour models were authored against; clamping would
// give (20,0,0) here.
func TestInterpolateTranslation_PastLastKeyFallsBackToFirstSegment(t *testing.T) {
	keys := []VectorKey{
		{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
		{Time: 10, Value: mgl32.Vec3{10, 0, 0}},
		{Time: 20, Value: mgl32.Vec3{10, 0, 0}},
	}

	got := SampleTranslation(keys, 20)
	want := mgl32.Vec3{20, 0, 0}
	if !got.ApproxEqualThreshold(want, eps) {
		t.Errorf("translation past last key = %v, want %v", got, want)
	}
}

func TestChannelLocalTransform_Order(t *testing.T) {
	ch := Channel{
		NodeName:  "bone",
		Positions: []VectorKey{{Time: 0, Value: mgl32.Vec3{1, 0, 0}}},
		Rotations: []QuatKey{{Time: 0, Value: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})}},
		Scales:    []VectorKey{{Time: 0, Value: mgl32.Vec3{2, 2, 2}}},
	}

	want := mgl32.Translate3D(1, 0, 0).
		Mul4(mgl32.HomogRotate3DZ(math.Pi / 2)).
		Mul4(mgl32.Scale3D(2, 2, 2))
	if got := ch.LocalTransform(0); !matApprox(got, want) {
		t.Errorf("LocalTransform = %v, want T*R*S %v", got, want)
	}
}
