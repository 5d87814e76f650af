package bounds

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/chewxy/math32"
)

const (
	DefaultMinimumExtent   = 0.01
	DefaultNominalUnitSize = 1.0

	// Scales below this magnitude make the root transform non-invertible.
	minScale = 1e-4
)

// Result is a resolved object volume.
type Result struct {
	// The volume in world space.
	World BoundingVolume

	// The volume in the object frame, before the root transform is applied.
	Local geom.Box

	// Why the volume is an estimate. Empty when it comes from the object
	// geometry.
	Fallback FallbackReason
}

// Resolver computes the bounds of composite objects.
//
// The zero value is not usable, use NewResolver.
type Resolver struct {
	// Extents below this value make a volume degenerate.
	MinimumExtent float32

	// The size of the unscaled box used when an object volume can not be
	// trusted.
	NominalUnitSize float32

	// Returns the unscaled fallback size of a kind of object. When nil or
	// when it returns false, a cube of NominalUnitSize is used.
	NominalSize func(kind string) (geom.Vector3f, bool)

	// Receives fallback and invalid transform events.
	Hook models.DebugHook
}

func NewResolver() *Resolver {
	return &Resolver{
		MinimumExtent:   DefaultMinimumExtent,
		NominalUnitSize: DefaultNominalUnitSize,
	}
}

// ResolveWorldBounds aggregates the world-space boxes of every visible part
// with geometry. It returns false when no part qualifies.
func (r *Resolver) ResolveWorldBounds(obj *models.PlacedObject) (BoundingVolume, bool) {
	root := obj.Transform.Matrix()

	box := geom.EmptyBox()
	count := 0
	for _, p := range obj.Parts {
		if !p.HasGeometry() {
			continue
		}

		partBox := p.Geometry.Transform(root.Mul(p.Local.Matrix()))
		if !partBox.IsFinite() || partBox.IsEmpty() {
			logs.WithTag("object_id", obj.ID).
				WithTag("part", p.Name).
				Debug("skipping part with invalid geometry")
			continue
		}

		s := partBox.Size()
		if s.X < r.MinimumExtent || s.Y < r.MinimumExtent || s.Z < r.MinimumExtent {
			logs.WithTag("object_id", obj.ID).
				WithTag("part", p.Name).
				WithTag("size", s).
				Debug("part has a degenerate extent")
		}

		box = box.ExpandByBox(partBox)
		count++
	}

	if count == 0 {
		return BoundingVolume{}, false
	}
	return FromBox(box), true
}

// ResolveFrameBounds aggregates the boxes of every visible part with geometry
// in the object frame, before the root transform is applied. The result does
// not depend on the object position, rotation or scale. It returns false when
// no part qualifies.
func (r *Resolver) ResolveFrameBounds(obj *models.PlacedObject) (geom.Box, bool) {
	box := geom.EmptyBox()
	count := 0
	for _, p := range obj.Parts {
		if !p.HasGeometry() {
			continue
		}

		partBox := p.Geometry.Transform(p.Local.Matrix())
		if !partBox.IsFinite() || partBox.IsEmpty() {
			continue
		}

		box = box.ExpandByBox(partBox)
		count++
	}
	return box, count != 0
}

// ResolveLocalBounds brings a world-space volume back into the object frame.
// Each corner goes through the inverse of the root world matrix, and the
// returned box encloses the transformed corners, so that a rotated object
// gets a local box that still contains its whole world extent.
func (r *Resolver) ResolveLocalBounds(obj *models.PlacedObject, world BoundingVolume) geom.Box {
	inv := r.inverseWorldMatrix(obj)
	return world.Box().Transform(inv)
}

// Refresh resolves the object volume from its parts and caches its frame
// bounds on the object. It must be called after creation, cloning and any
// change of the object parts.
func (r *Resolver) Refresh(obj *models.PlacedObject) Result {
	obj.InvalidateBounds()

	res := r.Resolve(obj)
	if res.Fallback == FallbackNone {
		local := res.Local
		obj.LocalBounds = &local
	}
	return res
}

// Resolve returns the object volume. The cached frame bounds are used when
// present, otherwise the parts are aggregated. Both paths transform the frame
// box by the root matrix, so caching never changes the volume. Unusable
// geometry falls back to an estimate derived from the object scale; the result
// is never invalid.
func (r *Resolver) Resolve(obj *models.PlacedObject) Result {
	obj = r.sanitize(obj)

	if obj.LocalBounds != nil && obj.LocalBounds.IsFinite() && !obj.LocalBounds.IsEmpty() {
		local := *obj.LocalBounds
		return Result{
			World: FromBox(local.Transform(obj.Transform.Matrix())),
			Local: local,
		}
	}

	world, ok := r.ResolveWorldBounds(obj)
	if !ok {
		return r.fallback(obj, FallbackUnresolvable, world)
	}

	if !world.IsValid() || world.IsDegenerate(r.MinimumExtent) {
		return r.fallback(obj, FallbackDegenerate, world)
	}

	local, ok := r.ResolveFrameBounds(obj)
	if !ok {
		return Result{
			World: world,
			Local: r.ResolveLocalBounds(obj, world),
		}
	}

	return Result{
		World: FromBox(local.Transform(obj.Transform.Matrix())),
		Local: local,
	}
}

// Fallback returns the scale-derived estimate of the object volume: a box of
// the nominal size centered on the object origin, scaled and rotated with the
// object.
func (r *Resolver) Fallback(obj *models.PlacedObject) Result {
	obj = r.sanitize(obj)

	local := geom.BoxFromCenterAndSize(geom.Zero, r.Nominal(obj.Kind))
	return Result{
		World: FromBox(local.Transform(obj.Transform.Matrix())),
		Local: local,
	}
}

// Nominal returns the unscaled fallback size of a kind of object.
func (r *Resolver) Nominal(kind string) geom.Vector3f {
	if r.NominalSize != nil {
		if s, ok := r.NominalSize(kind); ok && s.IsFinite() {
			return geom.Abs(s)
		}
	}
	return geom.Mul(geom.One, r.NominalUnitSize)
}

func (r *Resolver) fallback(obj *models.PlacedObject, reason FallbackReason, resolved BoundingVolume) Result {
	res := r.Fallback(obj)
	res.Fallback = reason

	if reason == FallbackDegenerate {
		logs.Warn(errors.New("object bounds are degenerate").
			WithType(ErrTypeDegenerateBounds).
			WithTag("object_id", obj.ID).
			WithTag("kind", obj.Kind).
			WithTag("size", resolved.Size()).
			WithTag("minimum_extent", r.MinimumExtent).
			WithTag("estimated_size", res.World.Size()))
	} else {
		logs.Warn(errors.New("object has no usable geometry").
			WithType(ErrTypeUnresolvableBounds).
			WithTag("object_id", obj.ID).
			WithTag("kind", obj.Kind).
			WithTag("estimated_size", res.World.Size()))
	}

	r.Hook.Emit(models.DebugEvent{
		Type:     models.DebugEventBoundsFallback,
		ObjectID: obj.ID,
		Reason:   string(reason),
		Volume:   res.World.Box(),
	})
	return res
}

func (r *Resolver) inverseWorldMatrix(obj *models.PlacedObject) geom.Matrix4 {
	obj = r.sanitize(obj)

	inv, ok := obj.Transform.Matrix().Inverse()
	if !ok {
		return geom.IdentityMatrix()
	}
	return inv
}

// sanitize returns obj, or a copy of it whose unusable transform components
// are replaced: zero or non-finite scale axes become 1, and a non-finite
// position or rotation becomes the identity.
func (r *Resolver) sanitize(obj *models.PlacedObject) *models.PlacedObject {
	t := obj.Transform
	var axes []string

	fix := func(v *float32, axis string) {
		if !geom.IsFinite(*v) || math32.Abs(*v) < minScale {
			*v = 1
			axes = append(axes, axis)
		}
	}
	fix(&t.Scale.X, "x")
	fix(&t.Scale.Y, "y")
	fix(&t.Scale.Z, "z")

	if !t.Position.IsFinite() {
		t.Position = geom.Zero
		axes = append(axes, "position")
	}

	q := t.Rotation
	if !geom.IsFinite(q.X) || !geom.IsFinite(q.Y) || !geom.IsFinite(q.Z) || !geom.IsFinite(q.W) {
		t.Rotation = geom.IdentityQuaternion()
		axes = append(axes, "rotation")
	} else {
		t.Rotation = q.Normalized()
	}

	if len(axes) == 0 {
		if t.Rotation == obj.Transform.Rotation {
			return obj
		}
		return obj.WithTransform(t)
	}

	logs.Warn(errors.New("object transform is not invertible").
		WithType(ErrTypeInvalidTransform).
		WithTag("object_id", obj.ID).
		WithTag("kind", obj.Kind).
		WithTag("replaced", axes))

	r.Hook.Emit(models.DebugEvent{
		Type:     models.DebugEventInvalidTransform,
		ObjectID: obj.ID,
		Reason:   "replaced " + strings.Join(axes, ","),
	})
	return obj.WithTransform(t)
}
