package geom

// Transform is a position, rotation and non-uniform scale.
type Transform struct {
	Position Vector3f   `json:"position" yaml:"position" toml:"position"`
	Rotation Quaternion `json:"rotation" yaml:"rotation" toml:"rotation"`
	Scale    Vector3f   `json:"scale"    yaml:"scale"    toml:"scale"`
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: IdentityQuaternion(),
		Scale:    One,
	}
}

// Matrix returns the matrix that applies scale, then rotation, then
// translation.
func (t Transform) Matrix() Matrix4 {
	return ComposeMatrix(t.Position, t.Rotation, t.Scale)
}

// Linear returns the matrix of t without its translation.
func (t Transform) Linear() Matrix4 {
	return ComposeMatrix(Zero, t.Rotation, t.Scale)
}

// Normalized returns t with a unit rotation. A zero rotation is read as the
// identity and a zero scale as the unit scale, which is what omitted values in
// a request or a catalog file mean.
func (t Transform) Normalized() Transform {
	t.Rotation = t.Rotation.Normalized()
	if t.Scale == Zero {
		t.Scale = One
	}
	return t
}
