package placement

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/collision"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/surface"
)

const ErrTypeInvalidConfig = "placement_config_invalid"

// Config holds the distances used to place objects, in meters.
type Config struct {
	// Added on the X and Z axes of a candidate volume before checking it for
	// collisions.
	CollisionMargin float32

	WallStandoff    float32
	WallMountHeight float32
	FloorClearance  float32

	// Extents below this value make an object volume degenerate.
	MinimumExtent float32

	// The size of the unscaled box used when an object volume can not be
	// resolved.
	NominalUnitSize float32
}

func DefaultConfig() Config {
	return Config{
		CollisionMargin: collision.DefaultMargin,
		WallStandoff:    surface.DefaultWallStandoff,
		WallMountHeight: surface.DefaultWallMountHeight,
		FloorClearance:  surface.DefaultFloorClearance,
		MinimumExtent:   bounds.DefaultMinimumExtent,
		NominalUnitSize: bounds.DefaultNominalUnitSize,
	}
}

// Validate returns an error when a value is not finite or out of range.
func (c Config) Validate() error {
	values := []struct {
		name     string
		value    float32
		positive bool
	}{
		{name: "collision_margin", value: c.CollisionMargin},
		{name: "wall_standoff", value: c.WallStandoff},
		{name: "wall_mount_height", value: c.WallMountHeight},
		{name: "floor_clearance", value: c.FloorClearance},
		{name: "minimum_extent", value: c.MinimumExtent, positive: true},
		{name: "nominal_unit_size", value: c.NominalUnitSize, positive: true},
	}

	for _, v := range values {
		if !geom.IsFinite(v.value) || v.value < 0 || (v.positive && v.value == 0) {
			return errors.New("invalid placement configuration").
				WithType(ErrTypeInvalidConfig).
				WithTag("name", v.name).
				WithTag("value", v.value)
		}
	}
	return nil
}

func (c Config) surfaceOptions() surface.Options {
	return surface.Options{
		WallStandoff:    c.WallStandoff,
		WallMountHeight: c.WallMountHeight,
		FloorClearance:  c.FloorClearance,
	}
}
