package collision

import (
	"math/rand"
	"testing"

	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

func unitCubeAt(x, y, z float32) bounds.BoundingVolume {
	return bounds.FromCenterAndSize(geom.NewVector3f(x, y, z), geom.One)
}

func TestIndexRegister(t *testing.T) {
	t.Run("register and unregister", func(t *testing.T) {
		idx := NewIndex()
		require.Zero(t, idx.Count())

		idx.Register(1, unitCubeAt(0, 0, 0))
		require.Equal(t, 1, idx.Count())
		require.True(t, idx.Has(1))

		v, ok := idx.Volume(1)
		require.True(t, ok)
		require.Equal(t, unitCubeAt(0, 0, 0), v)

		idx.Unregister(1)
		idx.Unregister(1)
		require.Zero(t, idx.Count())
		require.False(t, idx.Has(1))

		_, ok = idx.Volume(1)
		require.False(t, ok)
	})

	t.Run("registering twice is idempotent", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, unitCubeAt(0, 0, 0))
		before := idx.Query(unitCubeAt(0.5, 0, 0))

		idx.Register(1, unitCubeAt(0, 0, 0))
		after := idx.Query(unitCubeAt(0.5, 0, 0))

		require.Equal(t, 1, idx.Count())
		require.Equal(t, before, after)
	})

	t.Run("replacing keeps the registration order", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(3, unitCubeAt(0, 0, 0))
		idx.Register(1, unitCubeAt(0.2, 0, 0))
		idx.Register(2, unitCubeAt(0.4, 0, 0))
		idx.Register(3, unitCubeAt(-0.2, 0, 0))

		entries := idx.Entries()
		require.Len(t, entries, 3)
		require.Equal(t, models.ObjectID(3), entries[0].ID)
		require.Equal(t, unitCubeAt(-0.2, 0, 0), entries[0].Volume)
		require.Equal(t, models.ObjectID(1), entries[1].ID)
		require.Equal(t, models.ObjectID(2), entries[2].ID)

		res := idx.Query(unitCubeAt(0.1, 0, 0))
		require.False(t, res.CanPlace)
		require.Equal(t, []models.ObjectID{3, 1, 2}, res.IDs())
	})

	t.Run("clear", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, unitCubeAt(0, 0, 0))
		idx.Register(2, unitCubeAt(5, 0, 0))
		idx.Clear()

		require.Zero(t, idx.Count())
		require.True(t, idx.Query(unitCubeAt(0, 0, 0)).CanPlace)

		idx.Register(1, unitCubeAt(0, 0, 0))
		require.Equal(t, 1, idx.Count())
	})
}

func TestIndexQuery(t *testing.T) {
	t.Run("empty index accepts", func(t *testing.T) {
		idx := NewIndex()
		res := idx.Query(unitCubeAt(0, 0, 0))
		require.True(t, res.CanPlace)
		require.Empty(t, res.Collisions)
	})

	t.Run("unit cubes", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, unitCubeAt(0, 0, 0))

		res := idx.Query(unitCubeAt(0.5, 0, 0))
		require.False(t, res.CanPlace)
		require.Equal(t, []models.ObjectID{1}, res.IDs())
		require.Equal(t, unitCubeAt(0, 0, 0), res.Collisions[0].Volume)

		res = idx.Query(unitCubeAt(2, 0, 0))
		require.True(t, res.CanPlace)
	})

	t.Run("margin applies to the horizontal axes only", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, unitCubeAt(0, 0, 0))

		require.False(t, idx.Query(unitCubeAt(1.02, 0, 0)).CanPlace)
		require.False(t, idx.Query(unitCubeAt(0, 0, 1.02)).CanPlace)
		require.True(t, idx.Query(unitCubeAt(1.1, 0, 0)).CanPlace)
		require.True(t, idx.Query(unitCubeAt(0, 1.02, 0)).CanPlace)
	})

	t.Run("touching volumes do not collide", func(t *testing.T) {
		idx := NewIndex()
		idx.Margin = 0
		idx.Register(1, unitCubeAt(0, 0, 0))

		require.True(t, idx.Query(unitCubeAt(1, 0, 0)).CanPlace)
		require.True(t, idx.Query(unitCubeAt(0, 1, 0)).CanPlace)
		require.False(t, idx.Query(unitCubeAt(0.999, 0, 0)).CanPlace)
	})

	t.Run("excluded ids are ignored", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, unitCubeAt(0, 0, 0))
		idx.Register(2, unitCubeAt(3, 0, 0))

		res := idx.Query(unitCubeAt(0.1, 0, 0), 1)
		require.True(t, res.CanPlace)

		res = idx.Query(unitCubeAt(2.9, 0, 0), 1)
		require.False(t, res.CanPlace)
		require.Equal(t, []models.ObjectID{2}, res.IDs())
	})

	t.Run("flat volumes are found", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, bounds.New(geom.NewVector3f(-1, 0, -1), geom.NewVector3f(1, 0, 1)))
		idx.Register(2, bounds.FromCenterAndSize(geom.Zero, geom.NewVector3f(1, 0.2, 1)))

		res := idx.Query(unitCubeAt(0, 0, 0))
		require.False(t, res.CanPlace)
		require.Equal(t, []models.ObjectID{1, 2}, res.IDs())

		require.True(t, idx.Query(unitCubeAt(0, 1, 0)).CanPlace)
	})

	t.Run("invalid volumes are scanned linearly", func(t *testing.T) {
		idx := NewIndex()
		idx.Register(1, bounds.BoundingVolume{
			Min: geom.NewVector3f(5, -1, -1),
			Max: geom.NewVector3f(math32.Inf(1), 1, 1),
		})
		idx.Register(2, unitCubeAt(0, 0, 0))
		require.Equal(t, 2, idx.Count())

		res := idx.Query(unitCubeAt(0.2, 0, 0))
		require.False(t, res.CanPlace)
		require.Equal(t, []models.ObjectID{2}, res.IDs())

		res = idx.Query(unitCubeAt(100, 0, 0))
		require.Equal(t, []models.ObjectID{1}, res.IDs())

		idx.Unregister(1)
		require.Equal(t, 1, idx.Count())
	})

	t.Run("stale entries are pruned", func(t *testing.T) {
		live := map[models.ObjectID]bool{1: true, 2: true}

		idx := NewIndex()
		idx.Liveness = func(id models.ObjectID) bool {
			return live[id]
		}
		idx.Register(1, unitCubeAt(0, 0, 0))
		idx.Register(2, unitCubeAt(0.5, 0, 0))

		delete(live, 1)
		res := idx.Query(unitCubeAt(0.2, 0, 0))
		require.Equal(t, []models.ObjectID{2}, res.IDs())
		require.False(t, idx.Has(1))
		require.Equal(t, 1, idx.Count())
	})
}

func TestIndexNoOverlapInvariant(t *testing.T) {
	idx := NewIndex()
	rnd := rand.New(rand.NewSource(42))

	var id models.ObjectID
	for i := 0; i < 300; i++ {
		size := geom.NewVector3f(
			0.2+rnd.Float32()*1.5,
			0.2+rnd.Float32(),
			0.2+rnd.Float32()*1.5,
		)
		center := geom.NewVector3f(
			rnd.Float32()*20-10,
			size.Y/2,
			rnd.Float32()*20-10,
		)

		v := bounds.FromCenterAndSize(center, size)
		if idx.Query(v).CanPlace {
			id++
			idx.Register(id, v)
		}
	}

	entries := idx.Entries()
	require.NotEmpty(t, entries)

	for i, a := range entries {
		expanded := a.Volume.ExpandHorizontal(idx.Margin)
		for j, b := range entries {
			if i == j {
				continue
			}
			require.False(t, expanded.Intersects(b.Volume), "%v overlaps %v", a.ID, b.ID)
		}
	}
}
