package geom

import (
	"cogentcore.org/core/math32"
)

// Matrix4 is a 4x4 affine matrix stored in column-major order.
type Matrix4 struct {
	m math32.Matrix4
}

func IdentityMatrix() Matrix4 {
	return Matrix4{m: *math32.Identity4()}
}

// ComposeMatrix returns the matrix that applies scale, then rotation, then
// translation.
func ComposeMatrix(position Vector3f, rotation Quaternion, scale Vector3f) Matrix4 {
	var r Matrix4
	r.m.SetTransform(position.vec3(), rotation.quat(), scale.vec3())
	return r
}

// Mul returns m * o, the transform that applies o first.
func (m Matrix4) Mul(o Matrix4) Matrix4 {
	var r Matrix4
	r.m.MulMatrices(&m.m, &o.m)
	return r
}

func (m Matrix4) MulPoint(v Vector3f) Vector3f {
	p := math32.Vector4FromVector3(v.vec3(), 1).MulMatrix4(&m.m)
	if p.W != 0 && p.W != 1 {
		return Vector3f{p.X / p.W, p.Y / p.W, p.Z / p.W}
	}
	return Vector3f{p.X, p.Y, p.Z}
}

// Inverse returns the inverse of m. The second value is false when m is not
// invertible, in which case the returned matrix is meaningless.
func (m Matrix4) Inverse() (Matrix4, bool) {
	inv, err := m.m.Inverse()
	if err != nil || inv == nil {
		return Matrix4{}, false
	}

	for _, v := range inv {
		if !IsFinite(v) {
			return Matrix4{}, false
		}
	}
	return Matrix4{m: *inv}, true
}
