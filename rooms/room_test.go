package rooms

import (
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	cube := geom.Box{Min: geom.NewVector3f(-0.5, -0.5, -0.5), Max: geom.NewVector3f(0.5, 0.5, 0.5)}
	frame := geom.Box{Min: geom.NewVector3f(-0.4, -0.3, -0.02), Max: geom.NewVector3f(0.4, 0.3, 0.02)}

	cat, err := catalog.New(
		catalog.Prefab{
			Kind:  "cube",
			Parts: []models.Part{{Name: "body", Geometry: &cube}},
		},
		catalog.Prefab{
			Kind:     "frame",
			Surfaces: []models.SurfaceKind{models.SurfaceWall},
			Parts:    []models.Part{{Name: "canvas", Geometry: &frame}},
		},
	)
	require.NoError(t, err)
	return cat
}

func newTestRoom(t *testing.T) *Room {
	room, err := NewRoom(DefaultLayout(), placement.DefaultConfig(), newTestCatalog(t))
	require.NoError(t, err)
	return room
}

func downRay(x, z float32) models.Target {
	return models.Target{Ray: &geom.Ray{
		From: geom.NewVector3f(x, 5, z),
		To:   geom.NewVector3f(x, -5, z),
	}}
}

func floorHit(x, z float32) models.Target {
	return models.Target{Hit: &models.Hit{
		Point:       geom.NewVector3f(x, 0, z),
		Normal:      geom.Up,
		SurfaceKind: models.SurfaceFloor,
	}}
}

func TestNewRoom(t *testing.T) {
	room := newTestRoom(t)
	require.NotEmpty(t, room.ID)
	require.Len(t, room.Surfaces(), 5)
	require.Zero(t, room.ObjectCount())

	_, err := NewRoom(models.RoomLayout{Width: 3, Depth: -1, WallHeight: 2}, placement.DefaultConfig(), nil)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidLayout))
}

func TestRoomAdd(t *testing.T) {
	t.Run("on the floor", func(t *testing.T) {
		room := newTestRoom(t)

		out, err := room.Add("cube", downRay(0, 0))
		require.NoError(t, err)
		require.True(t, out.Result.Accepted)
		require.Equal(t, models.ObjectID(1), out.ObjectID)
		require.NotNil(t, out.Object)
		require.InDelta(t, 0.501, out.Object.Transform.Position.Y, 1e-4)
		require.NotNil(t, out.Object.LocalBounds)
		require.Equal(t, 1, room.ObjectCount())
	})

	t.Run("stacked on another object", func(t *testing.T) {
		room := newTestRoom(t)

		_, err := room.Add("cube", downRay(0, 0))
		require.NoError(t, err)

		out, err := room.Add("cube", downRay(0, 0))
		require.NoError(t, err)
		require.True(t, out.Result.Accepted)
		require.InDelta(t, 1.502, out.Object.Transform.Position.Y, 1e-4)
		require.Equal(t, 2, room.ObjectCount())
	})

	t.Run("collision", func(t *testing.T) {
		room := newTestRoom(t)

		_, err := room.Add("cube", floorHit(0, 0))
		require.NoError(t, err)

		out, err := room.Add("cube", floorHit(0.5, 0))
		require.NoError(t, err)
		require.False(t, out.Result.Accepted)
		require.Nil(t, out.Object)
		require.Equal(t, placement.ReasonCollision, out.Result.Reason)
		require.Equal(t, []models.ObjectID{1}, out.Result.BlockedBy)
		require.Len(t, out.Events, 1)
		require.Equal(t, models.DebugEventCollisionRejected, out.Events[0].Type)
		require.Equal(t, out.ObjectID, out.Events[0].ObjectID)
		require.Equal(t, 1, room.ObjectCount())
	})

	t.Run("outside of the room", func(t *testing.T) {
		room := newTestRoom(t)

		out, err := room.Add("cube", floorHit(2.8, 0))
		require.NoError(t, err)
		require.False(t, out.Result.Accepted)
		require.Equal(t, placement.ReasonOutOfRoom, out.Result.Reason)
		require.Zero(t, room.ObjectCount())
	})

	t.Run("on a wall", func(t *testing.T) {
		room := newTestRoom(t)

		out, err := room.Add("frame", models.Target{Ray: &geom.Ray{
			From: geom.NewVector3f(0, 1.2, 0),
			To:   geom.NewVector3f(0, 1.2, -5),
		}})
		require.NoError(t, err)
		require.True(t, out.Result.Accepted)

		pos := out.Object.Transform.Position
		require.InDelta(t, 0, pos.X, 1e-4)
		require.InDelta(t, 1.2, pos.Y, 1e-4)
		require.InDelta(t, -2.4, pos.Z, 1e-4)
	})

	t.Run("surface not allowed", func(t *testing.T) {
		room := newTestRoom(t)

		out, err := room.Add("frame", downRay(0, 0))
		require.NoError(t, err)
		require.False(t, out.Result.Accepted)
		require.Equal(t, placement.ReasonSurfaceNotAllowed, out.Result.Reason)
	})

	t.Run("unknown kind", func(t *testing.T) {
		room := newTestRoom(t)

		_, err := room.Add("sofa", downRay(0, 0))
		require.Error(t, err)
		require.True(t, errors.IsType(err, catalog.ErrTypeUnknownKind))
	})

	t.Run("ray missing every surface", func(t *testing.T) {
		room := newTestRoom(t)

		_, err := room.Add("cube", models.Target{Ray: &geom.Ray{
			From: geom.NewVector3f(0, 5, 0),
			To:   geom.NewVector3f(0, 4, 0),
		}})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeNoSurfaceHit))
	})

	t.Run("empty target", func(t *testing.T) {
		room := newTestRoom(t)

		_, err := room.Add("cube", models.Target{})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidRequest))
	})
}

func TestRoomMove(t *testing.T) {
	room := newTestRoom(t)

	out, err := room.Add("cube", downRay(0, 0))
	require.NoError(t, err)
	id := out.ObjectID

	out, err = room.Move(id, downRay(-2, 0))
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)

	obj, ok := room.Object(id)
	require.True(t, ok)
	require.InDelta(t, -2, obj.Transform.Position.X, 1e-4)
	require.InDelta(t, 0.501, obj.Transform.Position.Y, 1e-4)

	// The ray goes through the top of the moved object, which is ignored.
	out, err = room.Move(id, downRay(-2, 0.2))
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)
	require.InDelta(t, 0.501, out.Object.Transform.Position.Y, 1e-4)
	require.InDelta(t, 0.2, out.Object.Transform.Position.Z, 1e-4)

	_, err = room.Move(42, downRay(0, 0))
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeObjectNotFound))
}

func TestRoomMoveTo(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)
	b, err := room.Add("cube", floorHit(2, 0))
	require.NoError(t, err)

	out, err := room.MoveTo(b.ObjectID, a.Object.Transform)
	require.NoError(t, err)
	require.False(t, out.Result.Accepted)
	require.Equal(t, []models.ObjectID{a.ObjectID}, out.Result.BlockedBy)

	obj, _ := room.Object(b.ObjectID)
	require.Equal(t, b.Object.Transform, obj.Transform)

	t.Run("omitted rotation and scale", func(t *testing.T) {
		out, err := room.MoveTo(b.ObjectID, geom.Transform{Position: geom.NewVector3f(-2, 0.501, 1)})
		require.NoError(t, err)
		require.True(t, out.Result.Accepted)
		require.Equal(t, geom.One, out.Object.Transform.Scale)
	})

	t.Run("not finite", func(t *testing.T) {
		tr := geom.IdentityTransform()
		tr.Position.X = math32.Inf(1)

		_, err := room.MoveTo(b.ObjectID, tr)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidRequest))
	})
}

func TestRoomScale(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)
	_, err = room.Add("cube", floorHit(2, 0))
	require.NoError(t, err)

	out, err := room.Scale(a.ObjectID, geom.NewVector3f(3, 1, 1))
	require.NoError(t, err)
	require.False(t, out.Result.Accepted)
	require.Equal(t, placement.ReasonCollision, out.Result.Reason)

	out, err = room.Scale(a.ObjectID, geom.NewVector3f(1.5, 1, 1))
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)
	require.Equal(t, geom.NewVector3f(1.5, 1, 1), out.Object.Transform.Scale)

	_, err = room.Scale(a.ObjectID, geom.NewVector3f(0, 1, 1))
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidRequest))
}

func TestRoomClone(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)

	out, err := room.Clone(a.ObjectID, geom.Zero)
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)
	require.NotEqual(t, a.ObjectID, out.ObjectID)
	require.InDelta(t, 1.1, out.Object.Transform.Position.X, 1e-4)
	require.Equal(t, "cube", out.Object.Kind)
	require.Equal(t, 2, room.ObjectCount())

	out, err = room.Clone(a.ObjectID, geom.NewVector3f(0, 0, 0.2))
	require.NoError(t, err)
	require.False(t, out.Result.Accepted)
	require.Equal(t, []models.ObjectID{a.ObjectID}, out.Result.BlockedBy)
	require.Equal(t, 2, room.ObjectCount())

	_, err = room.Clone(42, geom.Zero)
	require.True(t, errors.IsType(err, ErrTypeObjectNotFound))
}

func TestRoomCheck(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)

	res, err := room.Check(0, "cube", geom.NewVector3f(0, 0.5, 0))
	require.NoError(t, err)
	require.False(t, res.CanPlace)
	require.Equal(t, []models.ObjectID{a.ObjectID}, res.IDs())

	res, err = room.Check(a.ObjectID, "", geom.NewVector3f(0.2, 0.5, 0))
	require.NoError(t, err)
	require.True(t, res.CanPlace)

	res, err = room.Check(0, "cube", geom.NewVector3f(2, 0.5, 0))
	require.NoError(t, err)
	require.True(t, res.CanPlace)

	obj, _ := room.Object(a.ObjectID)
	require.Equal(t, a.Object.Transform, obj.Transform)

	_, err = room.Check(0, "sofa", geom.Zero)
	require.True(t, errors.IsType(err, catalog.ErrTypeUnknownKind))
}

func TestRoomDeleteAndClear(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)
	_, err = room.Add("cube", floorHit(2, 0))
	require.NoError(t, err)

	require.NoError(t, room.Delete(a.ObjectID))
	require.Equal(t, 1, room.ObjectCount())

	err = room.Delete(a.ObjectID)
	require.True(t, errors.IsType(err, ErrTypeObjectNotFound))

	out, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)
	require.Greater(t, out.ObjectID, a.ObjectID)

	require.Equal(t, 2, room.Clear())
	require.Empty(t, room.Objects())

	out, err = room.Add("cube", floorHit(2, 0))
	require.NoError(t, err)
	require.True(t, out.Result.Accepted)
}

func TestRoomObjects(t *testing.T) {
	room := newTestRoom(t)

	for _, x := range []float32{-2, 0, 2} {
		_, err := room.Add("cube", floorHit(x, 0))
		require.NoError(t, err)
	}

	objects := room.Objects()
	require.Len(t, objects, 3)
	for i, obj := range objects {
		require.Equal(t, models.ObjectID(i+1), obj.ID)
	}

	// Copies are returned.
	objects[0].Transform.Position.X = 100
	obj, _ := room.Object(1)
	require.InDelta(t, -2, obj.Transform.Position.X, 1e-4)
}

func TestRoomRaycast(t *testing.T) {
	room := newTestRoom(t)

	a, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)

	hit, ok := room.Raycast(geom.Ray{From: geom.NewVector3f(0.2, 5, 0), To: geom.NewVector3f(0.2, -5, 0)})
	require.True(t, ok)
	require.Equal(t, models.SurfaceOther, hit.SurfaceKind)
	require.Equal(t, a.ObjectID, hit.HitObjectID)
	require.Equal(t, geom.Up, hit.Normal)
	require.InDelta(t, 1.001, hit.Point.Y, 1e-4)

	hit, ok = room.Raycast(geom.Ray{From: geom.NewVector3f(0.2, 5, 0), To: geom.NewVector3f(0.2, -5, 0)}, a.ObjectID)
	require.True(t, ok)
	require.Equal(t, models.SurfaceFloor, hit.SurfaceKind)
	require.Zero(t, hit.HitObjectID)

	hit, ok = room.Raycast(geom.Ray{From: geom.NewVector3f(0, 1, 0), To: geom.NewVector3f(10, 1, 0)})
	require.True(t, ok)
	require.Equal(t, models.SurfaceWall, hit.SurfaceKind)
	require.Equal(t, geom.NewVector3f(-1, 0, 0), hit.Normal)
	require.InDelta(t, 3, hit.Point.X, 1e-4)

	_, ok = room.Raycast(geom.Ray{From: geom.NewVector3f(0, 5, 0), To: geom.NewVector3f(0, 10, 0)})
	require.False(t, ok)
}

func TestRoomParticipants(t *testing.T) {
	room := newTestRoom(t)

	a := &Participant{ID: room.NewParticipantID(), Responder: &responseRecorder{}}
	b := &Participant{ID: room.NewParticipantID(), Responder: &responseRecorder{}}
	room.AddParticipant(a)
	room.AddParticipant(b)
	require.Equal(t, 2, room.ParticipantCount())
	require.Equal(t, []uint32{1, 2}, room.State().Participants)

	room.Broadcast(a, protocol.MsgTypeAssetDeletedBroadcast, protocol.AssetDeletedBroadcast{
		ParticipantID: a.ID,
		ObjectID:      7,
	})
	require.Empty(t, a.Responder.(*responseRecorder).Msgs())

	msgs := b.Responder.(*responseRecorder).Msgs()
	require.Len(t, msgs, 1)
	require.Equal(t, protocol.MsgTypeAssetDeletedBroadcast, msgs[0].Type)

	var broadcast protocol.AssetDeletedBroadcast
	require.NoError(t, msgs[0].DataTo(&broadcast))
	require.Equal(t, models.ObjectID(7), broadcast.ObjectID)

	room.RemoveParticipant(a)
	require.Equal(t, 1, room.ParticipantCount())
	require.Equal(t, uint32(1), room.NewParticipantID())
}

func TestRoomState(t *testing.T) {
	room := newTestRoom(t)

	_, err := room.Add("cube", floorHit(0, 0))
	require.NoError(t, err)

	state := room.State()
	require.Equal(t, DefaultLayout(), state.Layout)
	require.Len(t, state.Surfaces, 5)
	require.Len(t, state.Objects, 1)
	require.Equal(t, []string{"cube", "frame"}, state.Kinds)
}

func TestRoomConcurrentAdds(t *testing.T) {
	room := newTestRoom(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room.Add("cube", floorHit(0, 0))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, room.ObjectCount())
}

type responseRecorder struct {
	mutex sync.Mutex
	msgs  []protocol.Msg
}

func (r *responseRecorder) Send(t protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		panic(err)
	}
	r.SendMsg(msg)
}

func (r *responseRecorder) SendMsg(msg protocol.Msg) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.msgs = append(r.msgs, msg)
}

func (r *responseRecorder) Msgs() []protocol.Msg {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]protocol.Msg(nil), r.msgs...)
}
