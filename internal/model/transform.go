package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// trs is a transform split into translation, rotation and scale.
type trs struct {
	T mgl32.Vec3
	R mgl32.Quat
	S mgl32.Vec3
}

func (p trs) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(p.T[0], p.T[1], p.T[2]).
		Mul4(p.R.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(p.S[0], p.S[1], p.S[2]))
}

// decompose splits an affine matrix without shear into T, R and S.
func decompose(m mgl32.Mat4) trs {
	t := m.Col(3).Vec3()
	s := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}

	rot := mgl32.Ident4()
	for c := 0; c < 3; c++ {
		if s[c] == 0 {
			continue
		}
		col := m.Col(c).Vec3().Mul(1 / s[c])
		rot.SetCol(c, col.Vec4(0))
	}
	// A negative determinant means one axis is mirrored; fold it into X scale.
	if rot.Mat3().Det() < 0 {
		s[0] = -s[0]
		rot.SetCol(0, rot.Col(0).Mul(-1))
	}
	return trs{T: t, R: mgl32.Mat4ToQuat(rot).Normalize(), S: s}
}

// quatXYZW converts a quaternion stored as x, y, z, w.
func quatXYZW(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// axisAngle returns a rotation quaternion, identity for a degenerate axis.
func axisAngle(angle float32, axis mgl32.Vec3) mgl32.Quat {
	if angle == 0 || axis.Len() < 1e-6 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(angle, axis.Normalize())
}
