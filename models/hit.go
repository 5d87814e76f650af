package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/roomlayout/geom"
)

// SurfaceKind classifies the surface a pick ray hit.
type SurfaceKind int

const (
	SurfaceOther SurfaceKind = iota
	SurfaceFloor
	SurfaceWall
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceFloor:
		return "floor"
	case SurfaceWall:
		return "wall"
	default:
		return "other"
	}
}

func ParseSurfaceKind(s string) (SurfaceKind, error) {
	switch s {
	case "floor":
		return SurfaceFloor, nil
	case "wall":
		return SurfaceWall, nil
	case "other", "":
		return SurfaceOther, nil
	default:
		return SurfaceOther, errors.New("unknown surface kind").
			WithType(ErrTypeInvalidSurfaceKind).
			WithTag("surface_kind", s)
	}
}

func (k SurfaceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SurfaceKind) UnmarshalText(b []byte) error {
	v, err := ParseSurfaceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

const ErrTypeInvalidSurfaceKind = "invalid_surface_kind"

// Hit is the result of a pick ray hitting a surface.
type Hit struct {
	Point       geom.Vector3f `json:"point"`
	Normal      geom.Vector3f `json:"normal"`
	SurfaceKind SurfaceKind   `json:"surface_kind"`

	// The object whose surface was hit, zero when the hit is on a room
	// surface.
	HitObjectID ObjectID `json:"hit_object_id,omitempty"`
}
