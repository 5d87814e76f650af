package bounds

import (
	"github.com/aukilabs/roomlayout/geom"
)

// BoundingVolume is an axis-aligned box in world space. Values are never
// mutated in place: every operation returns a new volume.
type BoundingVolume struct {
	Min geom.Vector3f `json:"min"`
	Max geom.Vector3f `json:"max"`
}

// New returns the volume spanned by a and b, whatever their order.
func New(a, b geom.Vector3f) BoundingVolume {
	return BoundingVolume{
		Min: geom.Min(a, b),
		Max: geom.Max(a, b),
	}
}

func FromBox(b geom.Box) BoundingVolume {
	return New(b.Min, b.Max)
}

// FromCenterAndSize returns the volume of the given full size centered on
// center.
func FromCenterAndSize(center, size geom.Vector3f) BoundingVolume {
	return FromBox(geom.BoxFromCenterAndSize(center, size))
}

func (v BoundingVolume) Box() geom.Box {
	return geom.Box{Min: v.Min, Max: v.Max}
}

func (v BoundingVolume) Center() geom.Vector3f {
	return v.Box().Center()
}

func (v BoundingVolume) Size() geom.Vector3f {
	return v.Box().Size()
}

// IsValid reports whether the volume is finite and ordered.
func (v BoundingVolume) IsValid() bool {
	return v.Min.IsFinite() && v.Max.IsFinite() && v.Min.LesserOrEqualThan(v.Max)
}

// IsDegenerate reports whether any extent is below minExtent.
func (v BoundingVolume) IsDegenerate(minExtent float32) bool {
	s := v.Size()
	return s.X < minExtent || s.Y < minExtent || s.Z < minExtent
}

// ExpandHorizontal grows the volume by margin on the X and Z axes. The
// vertical axis is left untouched.
func (v BoundingVolume) ExpandHorizontal(margin float32) BoundingVolume {
	m := geom.Vector3f{X: margin, Z: margin}
	return New(geom.Sub(v.Min, m), geom.Add(v.Max, m))
}

func (v BoundingVolume) Translate(offset geom.Vector3f) BoundingVolume {
	return BoundingVolume{
		Min: geom.Add(v.Min, offset),
		Max: geom.Add(v.Max, offset),
	}
}

// Intersects reports whether v and o overlap on all three axes. Boxes that
// only touch do not intersect.
func (v BoundingVolume) Intersects(o BoundingVolume) bool {
	return !(v.Max.X <= o.Min.X || v.Min.X >= o.Max.X ||
		v.Max.Y <= o.Min.Y || v.Min.Y >= o.Max.Y ||
		v.Max.Z <= o.Min.Z || v.Min.Z >= o.Max.Z)
}
