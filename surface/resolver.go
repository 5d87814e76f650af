package surface

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/chewxy/math32"
)

const (
	DefaultWallStandoff    = 0.10
	DefaultWallMountHeight = 1.2
	DefaultFloorClearance  = 0.001

	// Hits on other surfaces whose normal is at least this aligned with the
	// up axis are treated like the floor.
	DefaultUpThreshold = 0.7

)

// Rule is the placement rule applied to a hit.
type Rule string

const (
	RuleFloor Rule = "floor"
	RuleWall  Rule = "wall"
	RuleRaw   Rule = "raw"
)

// Options are the distances used to place an object against a surface.
type Options struct {
	// The distance between a wall and the origin of an object placed on it.
	WallStandoff float32

	// The height of the origin of an object placed on a wall.
	WallMountHeight float32

	// The gap left between a floor and the bottom of an object resting on
	// it.
	FloorClearance float32
}

func DefaultOptions() Options {
	return Options{
		WallStandoff:    DefaultWallStandoff,
		WallMountHeight: DefaultWallMountHeight,
		FloorClearance:  DefaultFloorClearance,
	}
}

// Placement is the transform an object would get on a surface.
type Placement struct {
	Transform geom.Transform
	Rule      Rule

	// Set when the resting height was estimated from the object scale.
	Fallback bounds.FallbackReason

	// The volume of the object at Transform, when the rule had to resolve it.
	// Nil otherwise.
	Bounds *bounds.Result
}

// Resolver computes where an object goes when dropped on a surface. It keeps
// no state between calls.
type Resolver struct {
	Bounds      *bounds.Resolver
	UpThreshold float32
}

func NewResolver(b *bounds.Resolver) *Resolver {
	return &Resolver{
		Bounds:      b,
		UpThreshold: DefaultUpThreshold,
	}
}

// ResolvePlacement returns the transform of obj placed at the given hit.
func (r *Resolver) ResolvePlacement(hit models.Hit, obj *models.PlacedObject, opts Options) Placement {
	switch hit.SurfaceKind {
	case models.SurfaceFloor:
		return r.onFloor(hit, obj, opts)

	case models.SurfaceWall:
		return r.onWall(hit, obj, opts)

	default:
		if geom.Normalized(hit.Normal).Dot(geom.Up) >= r.UpThreshold {
			return r.onFloor(hit, obj, opts)
		}

		t := obj.Transform
		t.Position = hit.Point
		return Placement{
			Transform: t,
			Rule:      RuleRaw,
		}
	}
}

// RestingOffset returns the height between the origin of obj and the bottom
// of its bounds, at the given rotation and scale.
func (r *Resolver) RestingOffset(obj *models.PlacedObject, rotation geom.Quaternion, scale geom.Vector3f) (float32, bounds.FallbackReason) {
	offset, res := r.restingOffset(obj, rotation, scale)
	return offset, res.Fallback
}

// restingOffset also returns the volume of obj with its origin at zero.
func (r *Resolver) restingOffset(obj *models.PlacedObject, rotation geom.Quaternion, scale geom.Vector3f) (float32, bounds.Result) {
	atOrigin := obj.WithTransform(geom.Transform{
		Position: geom.Zero,
		Rotation: rotation,
		Scale:    scale,
	})

	res := r.Bounds.Resolve(atOrigin)
	if res.Fallback == bounds.FallbackNone {
		return -res.World.Min.Y, res
	}

	sy := math32.Abs(scale.Y)
	if !geom.IsFinite(sy) || sy == 0 {
		sy = 1
	}
	height := sy * r.Bounds.Nominal(obj.Kind).Y

	// The bounds resolver already reported the fallback.
	logs.WithTag("object_id", obj.ID).
		WithTag("kind", obj.Kind).
		WithTag("reason", res.Fallback).
		WithTag("height", height).
		Debug("resting height estimated from the object scale")

	return height / 2, res
}

func (r *Resolver) onFloor(hit models.Hit, obj *models.PlacedObject, opts Options) Placement {
	t := obj.Transform
	offset, res := r.restingOffset(obj, t.Rotation, t.Scale)

	t.Position = geom.Vector3f{
		X: hit.Point.X,
		Y: hit.Point.Y + offset + opts.FloorClearance,
		Z: hit.Point.Z,
	}
	res.World = res.World.Translate(t.Position)

	return Placement{
		Transform: t,
		Rule:      RuleFloor,
		Fallback:  res.Fallback,
		Bounds:    &res,
	}
}

func (r *Resolver) onWall(hit models.Hit, obj *models.PlacedObject, opts Options) Placement {
	t := obj.Transform

	normal := geom.Normalized(hit.Normal)
	if !normal.IsFinite() || normal.Length() == 0 {
		logs.WithTag("object_id", obj.ID).
			WithTag("normal", hit.Normal).
			Debug("wall hit without a normal, keeping the object rotation")

		t.Position = geom.Vector3f{X: hit.Point.X, Y: opts.WallMountHeight, Z: hit.Point.Z}
		return Placement{Transform: t, Rule: RuleWall}
	}

	p := geom.Add(hit.Point, geom.Mul(normal, opts.WallStandoff))
	p.Y = opts.WallMountHeight

	t.Position = p
	t.Rotation = geom.QuaternionFromUnitVectors(geom.Forward, normal)

	return Placement{
		Transform: t,
		Rule:      RuleWall,
	}
}
