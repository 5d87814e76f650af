// Package placement turns pick ray hits into collision-free object
// placements.
package placement

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/collision"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/surface"
)

// Reason explains why a placement was rejected.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonCollision         Reason = "collision"
	ReasonSurfaceNotAllowed Reason = "surface_not_allowed"
	ReasonOutOfRoom         Reason = "out_of_room"
	ReasonInvalidHit        Reason = "invalid_hit"
)

// Volumes may stick out of the room limits by this distance.
const limitsTolerance = 0.001

// Result is the outcome of a placement attempt. A rejected attempt leaves the
// collision index untouched.
type Result struct {
	Accepted bool `json:"accepted"`

	// The transform to apply to the object when the placement is accepted,
	// or the one that was rejected.
	Transform geom.Transform `json:"transform"`

	// The objects the candidate volume collides with, in registration order.
	BlockedBy []models.ObjectID `json:"blocked_by,omitempty"`

	// The volume of the object at Transform.
	Volume bounds.BoundingVolume `json:"volume"`

	// Set when the volume or the resting height are estimates.
	Fallback bounds.FallbackReason `json:"fallback,omitempty"`

	Reason Reason       `json:"reason,omitempty"`
	Rule   surface.Rule `json:"rule,omitempty"`
}

// Request describes a collision check at a proposed position.
type Request struct {
	Object   *models.PlacedObject
	Position geom.Vector3f

	// The object to ignore, zero for none.
	ExcludeID models.ObjectID
}

// Orchestrator places objects in a single room. It owns the room collision
// index and is not safe for concurrent use.
type Orchestrator struct {
	// The room volume accepted placements must stay in, on the horizontal
	// axes. Nil disables the check.
	Limits *bounds.BoundingVolume

	config  Config
	catalog *catalog.Catalog
	hook    models.DebugHook
	bounds  *bounds.Resolver
	surface *surface.Resolver
	index   *collision.Index
}

// NewOrchestrator returns an orchestrator using the given configuration. The
// catalog and the hook are optional.
func NewOrchestrator(conf Config, cat *catalog.Catalog, hook models.DebugHook) *Orchestrator {
	b := bounds.NewResolver()
	b.MinimumExtent = conf.MinimumExtent
	b.NominalUnitSize = conf.NominalUnitSize
	b.Hook = hook
	if cat != nil {
		b.NominalSize = cat.NominalSize
	}

	idx := collision.NewIndex()
	idx.Margin = conf.CollisionMargin

	return &Orchestrator{
		config:  conf,
		catalog: cat,
		hook:    hook,
		bounds:  b,
		surface: surface.NewResolver(b),
		index:   idx,
	}
}

// SetLiveness sets the function used to drop the volumes of objects that no
// longer exist.
func (o *Orchestrator) SetLiveness(f func(models.ObjectID) bool) {
	o.index.Liveness = f
}

// TryPlace computes where obj goes when dropped at hit and checks the volume it
// would have there. On success the volume is registered and the returned
// transform must be applied to the object by the caller.
func (o *Orchestrator) TryPlace(obj *models.PlacedObject, hit models.Hit) Result {
	return instrumentPlacement("place", func() Result {
		if !hit.Point.IsFinite() || !hit.Normal.IsFinite() {
			return o.reject(obj, Result{Transform: obj.Transform, Reason: ReasonInvalidHit})
		}

		prefab, _ := o.catalog.Get(obj.Kind)
		if !prefab.Allows(hit.SurfaceKind) {
			return o.reject(obj, Result{Transform: obj.Transform, Reason: ReasonSurfaceNotAllowed})
		}

		p := o.surface.ResolvePlacement(hit, obj, prefab.Options(o.config.surfaceOptions()))

		candidate := obj.WithTransform(p.Transform)

		var vol bounds.Result
		if p.Bounds != nil {
			vol = *p.Bounds
		} else {
			vol = o.bounds.Resolve(candidate)
		}

		res := o.evaluate(obj.ID, candidate, vol)
		res.Rule = p.Rule
		if res.Fallback == bounds.FallbackNone {
			res.Fallback = p.Fallback
		}
		return res
	})
}

// TryTransform checks obj at an explicit transform, registering its volume on
// success.
func (o *Orchestrator) TryTransform(obj *models.PlacedObject, t geom.Transform) Result {
	return instrumentPlacement("transform", func() Result {
		candidate := obj.WithTransform(t.Normalized())
		return o.evaluate(obj.ID, candidate, o.bounds.Resolve(candidate))
	})
}

// Check reports whether the object of req would collide at the requested
// position. Nothing is registered.
func (o *Orchestrator) Check(req Request) collision.Result {
	t := req.Object.Transform
	t.Position = req.Position

	res := o.bounds.Resolve(req.Object.WithTransform(t))
	if req.ExcludeID == 0 {
		return o.index.Query(res.World)
	}
	return o.index.Query(res.World, req.ExcludeID)
}

// Rescale checks obj in place at a new scale. The volume is recomputed from
// the object parts. On success the cached bounds of obj are updated and the
// new volume is registered; the caller applies the returned transform.
func (o *Orchestrator) Rescale(obj *models.PlacedObject, scale geom.Vector3f) Result {
	return instrumentPlacement("rescale", func() Result {
		t := obj.Transform
		t.Scale = scale

		candidate := obj.WithTransform(t)
		vol := o.bounds.Refresh(candidate)

		res := o.evaluate(obj.ID, candidate, vol)
		if res.Accepted {
			obj.LocalBounds = candidate.LocalBounds
		}
		return res
	})
}

// Refresh recomputes the cached bounds of obj after it was created, cloned or
// its parts changed. A registered object is checked again at its new volume:
// when the volume now collides or leaves the room, the previous registration
// and cached bounds are kept and the rejection is returned.
func (o *Orchestrator) Refresh(obj *models.PlacedObject) Result {
	return instrumentPlacement("refresh", func() Result {
		candidate := obj.WithTransform(obj.Transform)
		vol := o.bounds.Refresh(candidate)

		if !o.index.Has(obj.ID) {
			obj.LocalBounds = candidate.LocalBounds
			return Result{
				Accepted:  true,
				Transform: obj.Transform,
				Volume:    vol.World,
				Fallback:  vol.Fallback,
			}
		}

		res := o.evaluate(obj.ID, candidate, vol)
		if res.Accepted {
			obj.LocalBounds = candidate.LocalBounds
		}
		return res
	})
}

// Remove drops the volume of an object.
func (o *Orchestrator) Remove(id models.ObjectID) {
	o.index.Unregister(id)
}

// Clear drops every registered volume.
func (o *Orchestrator) Clear() {
	o.index.Clear()
}

// Count returns the number of registered volumes.
func (o *Orchestrator) Count() int {
	return o.index.Count()
}

// Volume returns the registered volume of an object.
func (o *Orchestrator) Volume(id models.ObjectID) (bounds.BoundingVolume, bool) {
	return o.index.Volume(id)
}

// Entries returns the registered volumes in registration order.
func (o *Orchestrator) Entries() []collision.Entry {
	return o.index.Entries()
}

// evaluate checks the resolved volume of candidate and registers it under id
// when it fits.
func (o *Orchestrator) evaluate(id models.ObjectID, candidate *models.PlacedObject, vol bounds.Result) Result {
	res := Result{
		Transform: candidate.Transform,
		Volume:    vol.World,
		Fallback:  vol.Fallback,
	}

	if !o.inLimits(vol.World) {
		res.Reason = ReasonOutOfRoom
		return o.reject(candidate, res)
	}

	var exclude []models.ObjectID
	if o.index.Has(id) {
		exclude = append(exclude, id)
	}

	q := o.index.Query(vol.World, exclude...)
	if !q.CanPlace {
		res.Reason = ReasonCollision
		res.BlockedBy = q.IDs()

		conflicts := make([]geom.Box, len(q.Collisions))
		for i, c := range q.Collisions {
			conflicts[i] = c.Volume.Box()
		}

		o.hook.Emit(models.DebugEvent{
			Type:            models.DebugEventCollisionRejected,
			ObjectID:        id,
			Reason:          string(ReasonCollision),
			Volume:          vol.World.Box(),
			Conflicts:       res.BlockedBy,
			ConflictVolumes: conflicts,
		})
		return o.reject(candidate, res)
	}

	o.index.Register(id, vol.World)
	res.Accepted = true

	logs.WithTag("object_id", id).
		WithTag("kind", candidate.Kind).
		WithTag("position", candidate.Transform.Position).
		Debug("placement accepted")
	return res
}

func (o *Orchestrator) reject(obj *models.PlacedObject, res Result) Result {
	logs.WithTag("object_id", obj.ID).
		WithTag("kind", obj.Kind).
		WithTag("reason", res.Reason).
		WithTag("blocked_by", res.BlockedBy).
		Debug("placement rejected")

	res.Accepted = false
	return res
}

func (o *Orchestrator) inLimits(v bounds.BoundingVolume) bool {
	if o.Limits == nil {
		return true
	}

	l := o.Limits
	return v.Min.X >= l.Min.X-limitsTolerance &&
		v.Max.X <= l.Max.X+limitsTolerance &&
		v.Min.Z >= l.Min.Z-limitsTolerance &&
		v.Max.Z <= l.Max.Z+limitsTolerance
}
