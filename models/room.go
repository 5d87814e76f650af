package models

import (
	"github.com/aukilabs/roomlayout/geom"
)

// RoomLayout is the size of a rectangular room centered on the origin, with
// its floor at Y = 0.
type RoomLayout struct {
	Width      float32 `json:"width"`
	Depth      float32 `json:"depth"`
	WallHeight float32 `json:"wall_height"`
}

// IsValid reports whether every dimension is finite and positive.
func (l RoomLayout) IsValid() bool {
	return geom.IsFinite(l.Width) && l.Width > 0 &&
		geom.IsFinite(l.Depth) && l.Depth > 0 &&
		geom.IsFinite(l.WallHeight) && l.WallHeight > 0
}

// Surfaces returns the floor and the four walls of the room. Wall normals
// point inward.
func (l RoomLayout) Surfaces() []Surface {
	hw := l.Width / 2
	hd := l.Depth / 2
	hh := l.WallHeight / 2

	return []Surface{
		{
			Name: "floor",
			Kind: SurfaceFloor,
			Quad: geom.HorizontalQuad(geom.Zero, hw, hd),
		},
		{
			Name: "wall_west",
			Kind: SurfaceWall,
			Quad: geom.Quad{
				Center:  geom.NewVector3f(-hw, hh, 0),
				Extents: geom.NewVector3f(0, hh, hd),
				Normal:  geom.NewVector3f(1, 0, 0),
			},
		},
		{
			Name: "wall_east",
			Kind: SurfaceWall,
			Quad: geom.Quad{
				Center:  geom.NewVector3f(hw, hh, 0),
				Extents: geom.NewVector3f(0, hh, hd),
				Normal:  geom.NewVector3f(-1, 0, 0),
			},
		},
		{
			Name: "wall_north",
			Kind: SurfaceWall,
			Quad: geom.Quad{
				Center:  geom.NewVector3f(0, hh, -hd),
				Extents: geom.NewVector3f(hw, hh, 0),
				Normal:  geom.NewVector3f(0, 0, 1),
			},
		},
		{
			Name: "wall_south",
			Kind: SurfaceWall,
			Quad: geom.Quad{
				Center:  geom.NewVector3f(0, hh, hd),
				Extents: geom.NewVector3f(hw, hh, 0),
				Normal:  geom.NewVector3f(0, 0, -1),
			},
		},
	}
}

// Surface is a named room surface a pick ray can hit.
type Surface struct {
	Name string      `json:"name"`
	Kind SurfaceKind `json:"kind"`
	Quad geom.Quad   `json:"quad"`
}

// Target is where an object is dropped: either a hit already classified by
// the client or a pick ray that the room resolves into a hit.
type Target struct {
	Hit *Hit      `json:"hit,omitempty"`
	Ray *geom.Ray `json:"ray,omitempty"`
}
