package geom

import (
	"cogentcore.org/core/math32"
)

func EqualWithEpsilon(a float32, b float32, epsilon float32) bool {
	return math32.Abs(a-b) <= epsilon
}

func InRangeWithEpsilon(value float32, min float32, max float32, epsilon float32) bool {
	return value+epsilon >= min && value-epsilon <= max
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

type Vector3f struct {
	X float32 `json:"x" yaml:"x" toml:"x"`
	Y float32 `json:"y" yaml:"y" toml:"y"`
	Z float32 `json:"z" yaml:"z" toml:"z"`
}

func NewVector3f(x, y, z float32) Vector3f {
	return Vector3f{X: x, Y: y, Z: z}
}

var (
	Zero = Vector3f{}
	One  = Vector3f{1, 1, 1}
	Up   = Vector3f{0, 1, 0}

	// Forward is the canonical facing direction of an unrotated asset.
	Forward = Vector3f{0, 0, 1}
)

func (v Vector3f) EqualWithEpsilon(o Vector3f, epsilon float32) bool {
	return EqualWithEpsilon(v.X, o.X, epsilon) &&
		EqualWithEpsilon(v.Y, o.Y, epsilon) &&
		EqualWithEpsilon(v.Z, o.Z, epsilon)
}

func (v Vector3f) Equal(o Vector3f) bool {
	return v.X == o.X && v.Y == o.Y && v.Z == o.Z
}

func (v Vector3f) LesserOrEqualThan(o Vector3f) bool {
	return v.X <= o.X && v.Y <= o.Y && v.Z <= o.Z
}

func (v Vector3f) IsFinite() bool {
	return IsFinite(v.X) && IsFinite(v.Y) && IsFinite(v.Z)
}

func Add(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func Sub(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func Mul(a Vector3f, s float32) Vector3f {
	return Vector3f{a.X * s, a.Y * s, a.Z * s}
}

// MulComponents multiplies a and b component-wise.
func MulComponents(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X * b.X, a.Y * b.Y, a.Z * b.Z}
}

func Min(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{math32.Min(a.X, b.X), math32.Min(a.Y, b.Y), math32.Min(a.Z, b.Z)}
}

func Max(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{math32.Max(a.X, b.X), math32.Max(a.Y, b.Y), math32.Max(a.Z, b.Z)}
}

func Abs(a Vector3f) Vector3f {
	return Vector3f{math32.Abs(a.X), math32.Abs(a.Y), math32.Abs(a.Z)}
}

func (v Vector3f) Length() float32 {
	return v.vec3().Length()
}

func Normalized(a Vector3f) Vector3f {
	if a.Length() == 0 {
		return a
	}
	return fromVec3(a.vec3().Normal())
}

func (v Vector3f) Dot(o Vector3f) float32 {
	return v.vec3().Dot(o.vec3())
}

func Cross(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

func (v Vector3f) vec3() math32.Vector3 {
	return math32.Vec3(v.X, v.Y, v.Z)
}

func fromVec3(v math32.Vector3) Vector3f {
	return Vector3f{v.X, v.Y, v.Z}
}
