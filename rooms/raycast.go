package rooms

import (
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
)

// Raycast returns the closest hit of a pick ray on the room surfaces and on
// the top faces of placed objects. Objects in ignore are skipped.
func (r *Room) Raycast(ray geom.Ray, ignore ...models.ObjectID) (models.Hit, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.raycast(ray, ignore...)
}

func (r *Room) raycast(ray geom.Ray, ignore ...models.ObjectID) (models.Hit, bool) {
	if !ray.From.IsFinite() || !ray.To.IsFinite() {
		return models.Hit{}, false
	}

	var hit models.Hit
	closest := float32(-1)

	test := func(q geom.Quad, kind models.SurfaceKind, id models.ObjectID) {
		ok, t := geom.IntersectQuad(ray, q)
		if !ok || (closest >= 0 && t >= closest) {
			return
		}

		closest = t
		hit = models.Hit{
			Point:       ray.At(t),
			Normal:      q.Normal,
			SurfaceKind: kind,
			HitObjectID: id,
		}
	}

	for _, s := range r.surfaces {
		test(s.Quad, s.Kind, 0)
	}

	for _, e := range r.placement.Entries() {
		if isIgnored(e.ID, ignore) || !r.isLive(e.ID) || !e.Volume.IsValid() {
			continue
		}

		size := e.Volume.Size()
		center := e.Volume.Center()
		center.Y = e.Volume.Max.Y
		test(geom.HorizontalQuad(center, size.X/2, size.Z/2), models.SurfaceOther, e.ID)
	}

	return hit, closest >= 0
}

func isIgnored(id models.ObjectID, ignore []models.ObjectID) bool {
	for _, i := range ignore {
		if i == id {
			return true
		}
	}
	return false
}
