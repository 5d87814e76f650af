package geom

// Ray is a segment going from From to To. Intersection parameters are in the
// range [0..1] along the segment.
type Ray struct {
	From Vector3f `json:"from"`
	To   Vector3f `json:"to"`
}

func (r Ray) At(t float32) Vector3f {
	return Add(r.From, Mul(Sub(r.To, r.From), t))
}

// Quad is a flat axis-aligned rectangle. Extents are half extents and are zero
// along the axis of the normal.
type Quad struct {
	Center  Vector3f `json:"center"  yaml:"center"  toml:"center"`
	Extents Vector3f `json:"extents" yaml:"extents" toml:"extents"`
	Normal  Vector3f `json:"normal"  yaml:"normal"  toml:"normal"`
}

// HorizontalQuad returns an upward facing quad.
func HorizontalQuad(center Vector3f, halfX, halfZ float32) Quad {
	return Quad{
		Center:  center,
		Extents: Vector3f{halfX, 0, halfZ},
		Normal:  Up,
	}
}

func (q Quad) Min() Vector3f {
	return Sub(q.Center, q.Extents)
}

func (q Quad) Max() Vector3f {
	return Add(q.Center, q.Extents)
}

func IntersectQuad(r Ray, q Quad) (bool, float32) {
	rayDir := Sub(r.To, r.From)

	denominator := q.Normal.Dot(rayDir)
	if denominator != 0 {
		t := (q.Normal.Dot(q.Center) - q.Normal.Dot(r.From)) / denominator
		if t >= 0 && t <= 1 {
			hitPoint := Add(r.From, Mul(rayDir, t))

			// check hitPoint is in bounds:
			minPoint := q.Min()
			maxPoint := q.Max()
			if InRangeWithEpsilon(hitPoint.X, minPoint.X, maxPoint.X, 0.0001) &&
				InRangeWithEpsilon(hitPoint.Y, minPoint.Y, maxPoint.Y, 0.0001) &&
				InRangeWithEpsilon(hitPoint.Z, minPoint.Z, maxPoint.Z, 0.0001) {
				return true, t
			}
		}
	}
	return false, -1
}
