package geom

import (
	"cogentcore.org/core/math32"
)

// Quaternion is a rotation. The zero value is not a valid rotation; use
// IdentityQuaternion.
type Quaternion struct {
	X float32 `json:"x" yaml:"x" toml:"x"`
	Y float32 `json:"y" yaml:"y" toml:"y"`
	Z float32 `json:"z" yaml:"z" toml:"z"`
	W float32 `json:"w" yaml:"w" toml:"w"`
}

func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func QuaternionFromAxisAngle(axis Vector3f, angle float32) Quaternion {
	return fromQuat(math32.NewQuatAxisAngle(Normalized(axis).vec3(), angle))
}

// QuaternionFromUnitVectors returns the shortest rotation that maps the unit
// vector from onto the unit vector to. Opposite vectors give a half turn
// around an orthogonal axis.
func QuaternionFromUnitVectors(from Vector3f, to Vector3f) Quaternion {
	var q math32.Quat
	q.SetFromUnitVectors(from.vec3(), to.vec3())
	return fromQuat(q).Normalized()
}

func (q Quaternion) Length() float32 {
	return math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalized returns q scaled to unit length. A zero quaternion becomes the
// identity.
func (q Quaternion) Normalized() Quaternion {
	l := q.Length()
	if l == 0 || !IsFinite(l) {
		return IdentityQuaternion()
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Mul returns the rotation q applied after p.
func (q Quaternion) Mul(p Quaternion) Quaternion {
	r := q.quat()
	return fromQuat(r.Mul(p.quat()))
}

func (q Quaternion) Rotate(v Vector3f) Vector3f {
	r := v.vec3()
	return fromVec3(q.quat().MulVector(r))
}

func (q Quaternion) EqualWithEpsilon(o Quaternion, epsilon float32) bool {
	same := EqualWithEpsilon(q.X, o.X, epsilon) &&
		EqualWithEpsilon(q.Y, o.Y, epsilon) &&
		EqualWithEpsilon(q.Z, o.Z, epsilon) &&
		EqualWithEpsilon(q.W, o.W, epsilon)
	opposite := EqualWithEpsilon(q.X, -o.X, epsilon) &&
		EqualWithEpsilon(q.Y, -o.Y, epsilon) &&
		EqualWithEpsilon(q.Z, -o.Z, epsilon) &&
		EqualWithEpsilon(q.W, -o.W, epsilon)
	return same || opposite
}

func (q Quaternion) quat() math32.Quat {
	return math32.Quat{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

func fromQuat(q math32.Quat) Quaternion {
	return Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}
