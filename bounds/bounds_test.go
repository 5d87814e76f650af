package bounds

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float32) *geom.Box {
	return &geom.Box{
		Min: geom.NewVector3f(minX, minY, minZ),
		Max: geom.NewVector3f(maxX, maxY, maxZ),
	}
}

func containsWithEpsilon(outer, inner geom.Box, epsilon float32) bool {
	grown := geom.Box{
		Min: geom.Sub(outer.Min, geom.Mul(geom.One, epsilon)),
		Max: geom.Add(outer.Max, geom.Mul(geom.One, epsilon)),
	}
	return grown.ContainsBox(inner)
}

func captureLogs(t *testing.T) *strings.Builder {
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})
	return &b
}

func TestBoundingVolume(t *testing.T) {
	t.Run("orders corners", func(t *testing.T) {
		v := New(geom.NewVector3f(1, 2, 3), geom.NewVector3f(-1, 0, 5))
		require.Equal(t, geom.NewVector3f(-1, 0, 3), v.Min)
		require.Equal(t, geom.NewVector3f(1, 2, 5), v.Max)
		require.True(t, v.IsValid())
		require.Equal(t, geom.NewVector3f(0, 1, 4), v.Center())
		require.Equal(t, geom.NewVector3f(2, 2, 2), v.Size())
	})

	t.Run("degenerate", func(t *testing.T) {
		flat := FromCenterAndSize(geom.Zero, geom.NewVector3f(1, 0.001, 1))
		require.True(t, flat.IsDegenerate(DefaultMinimumExtent))
		require.True(t, flat.IsValid())

		cube := FromCenterAndSize(geom.Zero, geom.One)
		require.False(t, cube.IsDegenerate(DefaultMinimumExtent))
	})

	t.Run("expand horizontal", func(t *testing.T) {
		v := FromCenterAndSize(geom.Zero, geom.One).ExpandHorizontal(0.05)
		require.InDelta(t, -0.55, v.Min.X, 0.0001)
		require.InDelta(t, 0.55, v.Max.Z, 0.0001)
		require.Equal(t, float32(-0.5), v.Min.Y)
		require.Equal(t, float32(0.5), v.Max.Y)
	})

	t.Run("intersects", func(t *testing.T) {
		a := FromCenterAndSize(geom.Zero, geom.One)

		require.True(t, a.Intersects(a))
		require.True(t, a.Intersects(a.Translate(geom.NewVector3f(0.5, 0, 0))))
		require.False(t, a.Intersects(a.Translate(geom.NewVector3f(2, 0, 0))))
		require.False(t, a.Intersects(a.Translate(geom.NewVector3f(0.5, 0, 3))))
		require.False(t, a.Intersects(a.Translate(geom.NewVector3f(0.5, 2, 0))))
	})

	t.Run("touching boxes do not intersect", func(t *testing.T) {
		a := FromCenterAndSize(geom.Zero, geom.One)
		require.False(t, a.Intersects(a.Translate(geom.NewVector3f(1, 0, 0))))
		require.False(t, a.Intersects(a.Translate(geom.NewVector3f(0, -1, 0))))
	})
}

func TestResolveWorldBounds(t *testing.T) {
	r := NewResolver()

	t.Run("aggregates visible parts with geometry", func(t *testing.T) {
		obj := &models.PlacedObject{
			ID:        1,
			Transform: geom.IdentityTransform(),
			Parts: []models.Part{
				{Name: "body", Geometry: box(-1, 0, -1, 1, 1, 1), Local: geom.IdentityTransform()},
				{Name: "lamp", Geometry: box(-0.1, 0, -0.1, 0.1, 0.5, 0.1), Local: geom.Transform{
					Position: geom.NewVector3f(0, 1, 0),
					Rotation: geom.IdentityQuaternion(),
					Scale:    geom.One,
				}},
				{Name: "hidden", Geometry: box(-10, -10, -10, 10, 10, 10), Local: geom.IdentityTransform(), Hidden: true},
				{Name: "group", Local: geom.IdentityTransform()},
			},
		}

		v, ok := r.ResolveWorldBounds(obj)
		require.True(t, ok)
		require.True(t, v.Min.EqualWithEpsilon(geom.NewVector3f(-1, 0, -1), 0.0001))
		require.True(t, v.Max.EqualWithEpsilon(geom.NewVector3f(1, 1.5, 1), 0.0001))
	})

	t.Run("applies the root transform", func(t *testing.T) {
		obj := &models.PlacedObject{
			ID: 2,
			Transform: geom.Transform{
				Position: geom.NewVector3f(3, 0, 0),
				Rotation: geom.IdentityQuaternion(),
				Scale:    geom.NewVector3f(2, 2, 2),
			},
			Parts: []models.Part{
				{Geometry: box(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5), Local: geom.IdentityTransform()},
			},
		}

		v, ok := r.ResolveWorldBounds(obj)
		require.True(t, ok)
		require.True(t, v.Min.EqualWithEpsilon(geom.NewVector3f(2, -1, -1), 0.0001))
		require.True(t, v.Max.EqualWithEpsilon(geom.NewVector3f(4, 1, 1), 0.0001))
	})

	t.Run("no qualifying part", func(t *testing.T) {
		obj := &models.PlacedObject{
			ID:        3,
			Transform: geom.IdentityTransform(),
			Parts:     []models.Part{{Name: "empty", Local: geom.IdentityTransform()}},
		}

		_, ok := r.ResolveWorldBounds(obj)
		require.False(t, ok)
	})
}

func TestResolveLocalBounds(t *testing.T) {
	r := NewResolver()

	newRotated := func(angle float32) *models.PlacedObject {
		return &models.PlacedObject{
			ID: 1,
			Transform: geom.Transform{
				Position: geom.NewVector3f(1, 0, 2),
				Rotation: geom.QuaternionFromAxisAngle(geom.Up, angle),
				Scale:    geom.NewVector3f(1, 2, 1),
			},
			Parts: []models.Part{
				{Geometry: box(-0.5, 0, -1, 1.5, 1, 0.2), Local: geom.IdentityTransform()},
			},
		}
	}

	t.Run("quarter turn re-encloses the world box", func(t *testing.T) {
		obj := newRotated(math32.Pi / 2)

		world, ok := r.ResolveWorldBounds(obj)
		require.True(t, ok)

		local := r.ResolveLocalBounds(obj, world)
		reprojected := local.Transform(obj.Transform.Matrix())
		require.True(t, containsWithEpsilon(reprojected, world.Box(), 0.0001))

		// A quarter turn keeps the box axis aligned, so the local box is the
		// part geometry itself.
		require.True(t, local.Min.EqualWithEpsilon(geom.NewVector3f(-0.5, 0, -1), 0.0001))
		require.True(t, local.Max.EqualWithEpsilon(geom.NewVector3f(1.5, 1, 0.2), 0.0001))

		naive := geom.Box{
			Min: geom.Sub(world.Min, obj.Transform.Position),
			Max: geom.Sub(world.Max, obj.Transform.Position),
		}
		require.False(t, naive.Min.EqualWithEpsilon(local.Min, 0.0001))
	})

	t.Run("arbitrary rotation re-encloses the world box", func(t *testing.T) {
		obj := newRotated(0.6)

		world, ok := r.ResolveWorldBounds(obj)
		require.True(t, ok)

		local := r.ResolveLocalBounds(obj, world)
		reprojected := local.Transform(obj.Transform.Matrix())
		for _, c := range world.Box().Corners() {
			require.True(t, containsWithEpsilon(reprojected, geom.Box{Min: c, Max: c}, 0.0001))
		}
		require.True(t, containsWithEpsilon(local, *obj.Parts[0].Geometry, 0.0001))
	})
}

func TestResolve(t *testing.T) {
	t.Run("refresh caches the local bounds", func(t *testing.T) {
		r := NewResolver()
		obj := &models.PlacedObject{
			ID:        1,
			Transform: geom.IdentityTransform(),
			Parts: []models.Part{
				{Geometry: box(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5), Local: geom.IdentityTransform()},
			},
		}

		res := r.Refresh(obj)
		require.Equal(t, FallbackNone, res.Fallback)
		require.NotNil(t, obj.LocalBounds)

		// The cached bounds are used without touching the parts again.
		obj.Parts = nil
		obj.Transform.Position = geom.NewVector3f(2, 0, 0)
		res = r.Resolve(obj)
		require.Equal(t, FallbackNone, res.Fallback)
		require.True(t, res.World.Center().EqualWithEpsilon(geom.NewVector3f(2, 0, 0), 0.0001))
	})

	t.Run("cached bounds of a rotated object keep its volume", func(t *testing.T) {
		r := NewResolver()
		obj := &models.PlacedObject{
			ID: 2,
			Transform: geom.Transform{
				Rotation: geom.QuaternionFromAxisAngle(geom.Up, math32.Pi/4),
				Scale:    geom.One,
			},
			Parts: []models.Part{
				{Geometry: box(-0.5, 0, -0.5, 0.5, 1, 0.5), Local: geom.IdentityTransform()},
				{Geometry: box(-0.1, 0, -0.1, 0.1, 0.3, 0.1), Local: geom.Transform{
					Position: geom.NewVector3f(0, 1, 0),
					Rotation: geom.IdentityQuaternion(),
					Scale:    geom.One,
				}},
			},
		}

		first := r.Refresh(obj)
		require.NotNil(t, obj.LocalBounds)
		require.InDelta(t, math32.Sqrt(2), first.World.Size().X, 0.001)
		require.True(t, obj.LocalBounds.Size().EqualWithEpsilon(geom.NewVector3f(1, 1.3, 1), 0.0001))

		for i := 0; i < 3; i++ {
			again := r.Refresh(obj)
			require.True(t, again.World.Size().EqualWithEpsilon(first.World.Size(), 0.0001))

			cached := r.Resolve(obj)
			require.True(t, cached.World.Min.EqualWithEpsilon(first.World.Min, 0.0001))
			require.True(t, cached.World.Max.EqualWithEpsilon(first.World.Max, 0.0001))
		}

		frame, ok := r.ResolveFrameBounds(obj.WithTransform(geom.IdentityTransform()))
		require.True(t, ok)
		require.Equal(t, *obj.LocalBounds, frame)
	})

	t.Run("no geometry falls back to the scale", func(t *testing.T) {
		b := captureLogs(t)

		var events []models.DebugEvent
		r := NewResolver()
		r.Hook = func(e models.DebugEvent) {
			events = append(events, e)
		}

		obj := &models.PlacedObject{
			ID:   7,
			Kind: "upload",
			Transform: geom.Transform{
				Rotation: geom.IdentityQuaternion(),
				Scale:    geom.NewVector3f(2, 3, 2),
			},
		}

		res := r.Refresh(obj)
		require.Equal(t, FallbackUnresolvable, res.Fallback)
		require.True(t, res.World.IsValid())
		require.True(t, res.World.Size().EqualWithEpsilon(geom.NewVector3f(2, 3, 2), 0.0001))
		require.Nil(t, obj.LocalBounds)

		require.Len(t, events, 1)
		require.Equal(t, models.DebugEventBoundsFallback, events[0].Type)
		require.Equal(t, models.ObjectID(7), events[0].ObjectID)
		require.NotEmpty(t, b.String())
	})

	t.Run("degenerate bounds fall back to the nominal size", func(t *testing.T) {
		captureLogs(t)

		r := NewResolver()
		r.NominalSize = func(kind string) (geom.Vector3f, bool) {
			if kind == "rug" {
				return geom.NewVector3f(2, 0.5, 3), true
			}
			return geom.Vector3f{}, false
		}

		obj := &models.PlacedObject{
			ID:        8,
			Kind:      "rug",
			Transform: geom.IdentityTransform(),
			Parts: []models.Part{
				{Geometry: box(-1, 0, -1.5, 1, 0.001, 1.5), Local: geom.IdentityTransform()},
			},
		}

		res := r.Resolve(obj)
		require.Equal(t, FallbackDegenerate, res.Fallback)
		require.True(t, res.World.Size().EqualWithEpsilon(geom.NewVector3f(2, 0.5, 3), 0.0001))
	})

	t.Run("zero scale axis is replaced", func(t *testing.T) {
		captureLogs(t)

		var events []models.DebugEvent
		r := NewResolver()
		r.Hook = func(e models.DebugEvent) {
			events = append(events, e)
		}

		obj := &models.PlacedObject{
			ID: 9,
			Transform: geom.Transform{
				Rotation: geom.IdentityQuaternion(),
				Scale:    geom.NewVector3f(2, 0, 2),
			},
			Parts: []models.Part{
				{Geometry: box(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5), Local: geom.IdentityTransform()},
			},
		}

		res := r.Resolve(obj)
		require.Equal(t, FallbackNone, res.Fallback)
		require.True(t, res.World.Size().EqualWithEpsilon(geom.NewVector3f(2, 1, 2), 0.0001))
		require.True(t, res.Local.Size().EqualWithEpsilon(geom.One, 0.0001))
		require.Equal(t, float32(0), obj.Transform.Scale.Y)

		require.NotEmpty(t, events)
		require.Equal(t, models.DebugEventInvalidTransform, events[0].Type)
	})
}
