package models

import (
	"testing"

	"github.com/aukilabs/roomlayout/geom"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestPlacedObjectClone(t *testing.T) {
	box := geom.BoxFromCenterAndSize(geom.Zero, geom.One)
	o := &PlacedObject{
		ID:        1,
		Kind:      "chair",
		Transform: geom.IdentityTransform(),
		Parts: []Part{
			{Name: "seat", Geometry: &box, Local: geom.IdentityTransform()},
			{Name: "anchor", Local: geom.IdentityTransform()},
		},
		LocalBounds: &box,
	}

	c := o.Clone(2)
	require.Equal(t, ObjectID(2), c.ID)
	require.Equal(t, o.Kind, c.Kind)
	require.Len(t, c.Parts, 2)
	require.Nil(t, c.Parts[1].Geometry)

	c.Parts[0].Geometry.Max.X = 10
	c.LocalBounds.Max.X = 10
	require.Equal(t, float32(0.5), o.Parts[0].Geometry.Max.X)
	require.Equal(t, float32(0.5), o.LocalBounds.Max.X)
}

func TestPlacedObjectWithTransform(t *testing.T) {
	o := &PlacedObject{ID: 1, Transform: geom.IdentityTransform()}

	moved := geom.IdentityTransform()
	moved.Position = geom.NewVector3f(1, 2, 3)

	c := o.WithTransform(moved)
	require.Equal(t, moved, c.Transform)
	require.Equal(t, geom.Zero, o.Transform.Position)
	require.Equal(t, o.ID, c.ID)
}

func TestPartHasGeometry(t *testing.T) {
	box := geom.BoxFromCenterAndSize(geom.Zero, geom.One)

	require.True(t, Part{Geometry: &box}.HasGeometry())
	require.False(t, Part{Geometry: &box, Hidden: true}.HasGeometry())
	require.False(t, Part{}.HasGeometry())
}

func TestSurfaceKind(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		k, err := ParseSurfaceKind("wall")
		require.NoError(t, err)
		require.Equal(t, SurfaceWall, k)

		_, err = ParseSurfaceKind("ceiling")
		require.Error(t, err)
	})

	t.Run("json", func(t *testing.T) {
		b, err := json.Marshal(Hit{SurfaceKind: SurfaceFloor})
		require.NoError(t, err)
		require.Contains(t, string(b), `"surface_kind":"floor"`)

		var hit Hit
		err = json.Unmarshal([]byte(`{"surface_kind":"wall"}`), &hit)
		require.NoError(t, err)
		require.Equal(t, SurfaceWall, hit.SurfaceKind)
	})
}

func TestDebugHookEmit(t *testing.T) {
	var nilHook DebugHook
	nilHook.Emit(DebugEvent{})

	var got []DebugEvent
	hook := DebugHook(func(e DebugEvent) {
		got = append(got, e)
	})
	hook.Emit(DebugEvent{Type: DebugEventBoundsFallback, ObjectID: 3})
	require.Len(t, got, 1)
	require.Equal(t, ObjectID(3), got[0].ObjectID)
}
