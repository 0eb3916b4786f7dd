package anim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type timedKey interface {
	KeyTime() float32
}

// segmentIndex returns the index i of the key pair (i, i+1) that brackets t:
// the first i with t < keys[i+1].time. If t is past every bracket the scan
// falls through to 0 rather than clamping to the last segment.
func segmentIndex[K timedKey](keys []K, t float32) int {
	for i := 0; i < len(keys)-1; i++ {
		if t < keys[i+1].KeyTime() {
			return i
		}
	}
	return 0
}

// lerpFactor returns the normalized position of t between from and to.
// ok is false for a zero-length interval.
func lerpFactor(t, from, to float32) (f float32, ok bool) {
	span := to - from
	if span == 0 {
		return 0, false
	}
	return (t - from) / span, true
}

// sampleSegment locates the keys bracketing t and the factor between them.
// single is true when only the first key should be used.
func sampleSegment[K timedKey](keys []K, t float32) (i int, f float32, single bool) {
	if len(keys) == 1 {
		return 0, 0, true
	}
	i = segmentIndex(keys, t)
	f, ok := lerpFactor(t, keys[i].KeyTime(), keys[i+1].KeyTime())
	if !ok {
		return i, 0, true
	}
	return i, f, false
}

func lerpVec3(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// interpolateVector samples a translation or scale sequence.
func interpolateVector(keys []VectorKey, t float32, fallback mgl32.Vec3) mgl32.Vec3 {
	if len(keys) == 0 {
		return fallback
	}
	i, f, single := sampleSegment(keys, t)
	if single {
		return keys[i].Value
	}
	return lerpVec3(keys[i].Value, keys[i+1].Value, f)
}

// InterpolateTranslation returns a pure translation matrix for tick t.
func InterpolateTranslation(keys []VectorKey, t float32) mgl32.Mat4 {
	v := interpolateVector(keys, t, mgl32.Vec3{})
	return mgl32.Translate3D(v[0], v[1], v[2])
}

// InterpolateScaling returns a pure scale matrix for tick t.
func InterpolateScaling(keys []VectorKey, t float32) mgl32.Mat4 {
	v := interpolateVector(keys, t, mgl32.Vec3{1, 1, 1})
	return mgl32.Scale3D(v[0], v[1], v[2])
}

// InterpolateRotation returns a pure rotation matrix for tick t using
// shortest-arc spherical interpolation.
func InterpolateRotation(keys []QuatKey, t float32) mgl32.Mat4 {
	return SampleRotation(keys, t).Normalize().Mat4()
}

// SampleRotation returns the interpolated orientation at tick t.
func SampleRotation(keys []QuatKey, t float32) mgl32.Quat {
	if len(keys) == 0 {
		return mgl32.QuatIdent()
	}
	i, f, single := sampleSegment(keys, t)
	if single {
		return keys[i].Value
	}
	return slerpShortest(keys[i].Value, keys[i+1].Value, f)
}

// SampleTranslation returns the interpolated translation vector at tick t.
func SampleTranslation(keys []VectorKey, t float32) mgl32.Vec3 {
	return interpolateVector(keys, t, mgl32.Vec3{})
}

// hemisphereEpsilon keeps keys exactly a quarter turn apart in quaternion
// space (a half turn in 3D) interpolating towards the stored second key.
const hemisphereEpsilon = 1e-6

// parallelDot is the dot product above which keys are lerped instead of
// slerped.
const parallelDot = 0.9995

// slerpShortest interpolates along the shorter arc between a and b.
func slerpShortest(a, b mgl32.Quat, f float32) mgl32.Quat {
	a, b = a.Normalize(), b.Normalize()
	dot := a.Dot(b)
	if dot < -hemisphereEpsilon {
		b = b.Scale(-1)
		dot = -dot
	}

	// Nearly parallel: lerp avoids dividing by sin(theta) ~ 0.
	if dot > parallelDot {
		return mgl32.QuatLerp(a, b, f).Normalize()
	}

	dot = mgl32.Clamp(dot, -1, 1)
	theta0 := math32.Acos(dot)
	theta := theta0 * f
	sinTheta := math32.Sin(theta)
	sinTheta0 := math32.Sin(theta0)

	s0 := math32.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0
	return a.Scale(s0).Add(b.Scale(s1))
}
