package geom

import (
	"cogentcore.org/core/math32"
)

// Box is an axis-aligned box. An empty box has Min greater than Max and grows
// with ExpandByPoint.
type Box struct {
	Min Vector3f `json:"min" yaml:"min" toml:"min"`
	Max Vector3f `json:"max" yaml:"max" toml:"max"`
}

func EmptyBox() Box {
	return fromBox3(math32.B3Empty())
}

// BoxFromCenterAndSize returns the box of the given full size centered on
// center.
func BoxFromCenterAndSize(center Vector3f, size Vector3f) Box {
	var b math32.Box3
	b.SetFromCenterAndSize(center.vec3(), Abs(size).vec3())
	return fromBox3(b)
}

func (b Box) IsEmpty() bool {
	return b.box3().IsEmpty()
}

func (b Box) ExpandByPoint(p Vector3f) Box {
	r := b.box3()
	r.ExpandByPoint(p.vec3())
	return fromBox3(r)
}

func (b Box) ExpandByBox(o Box) Box {
	r := b.box3()
	r.ExpandByBox(o.box3())
	return fromBox3(r)
}

func (b Box) Center() Vector3f {
	return fromVec3(b.box3().Center())
}

func (b Box) Size() Vector3f {
	return fromVec3(b.box3().Size())
}

func (b Box) Corners() [8]Vector3f {
	return [8]Vector3f{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// Transform applies m to the eight corners of b and returns the axis-aligned
// box that encloses them.
func (b Box) Transform(m Matrix4) Box {
	return fromBox3(b.box3().MulMatrix4(&m.m))
}

// Rotate is Transform for a pure rotation around the origin.
func (b Box) Rotate(q Quaternion) Box {
	return fromBox3(b.box3().MulQuat(q.quat()))
}

func (b Box) Translate(offset Vector3f) Box {
	return fromBox3(b.box3().Translate(offset.vec3()))
}

// ContainsBox reports whether o lies entirely inside b, boundaries included.
func (b Box) ContainsBox(o Box) bool {
	return b.Min.LesserOrEqualThan(o.Min) && o.Max.LesserOrEqualThan(b.Max)
}

func (b Box) IsFinite() bool {
	return b.Min.IsFinite() && b.Max.IsFinite()
}

func (b Box) box3() math32.Box3 {
	return math32.Box3{Min: b.Min.vec3(), Max: b.Max.vec3()}
}

func fromBox3(b math32.Box3) Box {
	return Box{Min: fromVec3(b.Min), Max: fromVec3(b.Max)}
}
