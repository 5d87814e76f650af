package models

import (
	"strconv"

	"github.com/aukilabs/roomlayout/geom"
)

// ObjectID identifies a placed object for its whole lifetime.
type ObjectID uint32

func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Part is one piece of a composite object.
type Part struct {
	Name string `json:"name,omitempty" yaml:"name" toml:"name"`

	// The part geometry bounds in mesh space. Nil when the part has no
	// geometry (empty groups, lights, helpers).
	Geometry *geom.Box `json:"geometry,omitempty" yaml:"geometry" toml:"geometry"`

	// The part transform relative to the object root.
	Local geom.Transform `json:"local" yaml:"local" toml:"local"`

	Hidden bool `json:"hidden,omitempty" yaml:"hidden" toml:"hidden"`
}

// HasGeometry reports whether the part contributes to the object bounds.
func (p Part) HasGeometry() bool {
	return p.Geometry != nil && !p.Hidden
}

// PlacedObject is a composite object living in a room.
type PlacedObject struct {
	ID        ObjectID       `json:"id"`
	Kind      string         `json:"kind"`
	Transform geom.Transform `json:"transform"`
	Parts     []Part         `json:"parts,omitempty"`

	// The bounds of the object in its own frame, cached after the last
	// structural change. Nil until resolved.
	LocalBounds *geom.Box `json:"local_bounds,omitempty"`
}

// WithTransform returns a shallow copy of the object at another transform.
// Parts and cached bounds are shared with o and must not be mutated through
// the copy.
func (o *PlacedObject) WithTransform(t geom.Transform) *PlacedObject {
	c := *o
	c.Transform = t
	return &c
}

// Clone returns a deep copy of o with a new id.
func (o *PlacedObject) Clone(id ObjectID) *PlacedObject {
	c := &PlacedObject{
		ID:        id,
		Kind:      o.Kind,
		Transform: o.Transform,
		Parts:     make([]Part, len(o.Parts)),
	}

	for i, p := range o.Parts {
		c.Parts[i] = p
		if p.Geometry != nil {
			g := *p.Geometry
			c.Parts[i].Geometry = &g
		}
	}

	if o.LocalBounds != nil {
		lb := *o.LocalBounds
		c.LocalBounds = &lb
	}
	return c
}

// InvalidateBounds drops the cached local bounds. It must be called whenever
// parts are added, removed or moved relative to the root.
func (o *PlacedObject) InvalidateBounds() {
	o.LocalBounds = nil
}
