// Package rooms holds the rooms edited by connected clients and the objects
// placed in them.
package rooms

import (
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/bounds"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/collision"
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/google/uuid"
)

const (
	ErrTypeObjectNotFound = "room_object_not_found"
	ErrTypeNoSurfaceHit   = "room_no_surface_hit"
	ErrTypeInvalidRequest = "room_invalid_request"
	ErrTypeInvalidLayout  = "room_invalid_layout"
)

// The gap left between an object and its clone when no offset is given.
const cloneGap = 0.1

func DefaultLayout() models.RoomLayout {
	return models.RoomLayout{
		Width:      6,
		Depth:      5,
		WallHeight: 2.7,
	}
}

// Outcome is the result of an operation that places an object.
type Outcome struct {
	ObjectID models.ObjectID

	// A copy of the object after the operation, set when the placement was
	// accepted.
	Object *models.PlacedObject

	Result placement.Result

	// The debug events emitted while placing the object.
	Events []models.DebugEvent
}

// Room is a rectangular room where participants place objects. Object
// operations are serialized by the room.
type Room struct {
	ID     string
	Layout models.RoomLayout

	mutex     sync.Mutex
	objectIDs models.SequentialIDGenerator
	objects   map[models.ObjectID]*models.PlacedObject
	surfaces  []models.Surface
	catalog   *catalog.Catalog
	placement *placement.Orchestrator
	events    []models.DebugEvent

	participantIDs   models.SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant
}

// NewRoom creates an empty room. Objects are created from the given catalog.
func NewRoom(layout models.RoomLayout, conf placement.Config, cat *catalog.Catalog) (*Room, error) {
	if !layout.IsValid() {
		return nil, errors.New("invalid room layout").
			WithType(ErrTypeInvalidLayout).
			WithTag("layout", layout)
	}

	r := &Room{
		ID:           uuid.NewString(),
		Layout:       layout,
		objects:      make(map[models.ObjectID]*models.PlacedObject),
		surfaces:     layout.Surfaces(),
		catalog:      cat,
		participants: make(map[uint32]*Participant),
	}

	limits := bounds.New(
		geom.NewVector3f(-layout.Width/2, 0, -layout.Depth/2),
		geom.NewVector3f(layout.Width/2, layout.WallHeight, layout.Depth/2),
	)

	r.placement = placement.NewOrchestrator(conf, cat, r.recordEvent)
	r.placement.Limits = &limits
	r.placement.SetLiveness(r.isLive)
	return r, nil
}

// Add creates an object of the given kind and drops it onto target. The
// object only joins the room when the placement is accepted.
func (r *Room) Add(kind string, target models.Target) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.catalog.Get(kind); !ok {
		return Outcome{}, errors.New("unknown object kind").
			WithType(catalog.ErrTypeUnknownKind).
			WithTag("kind", kind)
	}

	hit, err := r.resolveTarget(target)
	if err != nil {
		return Outcome{}, err
	}

	obj, err := r.catalog.NewObject(kind, r.objectIDs.NewObjectID())
	if err != nil {
		return Outcome{}, err
	}
	r.placement.Refresh(obj)

	return r.apply(obj, r.placement.TryPlace(obj, hit), true), nil
}

// Move drops a placed object onto target.
func (r *Room) Move(id models.ObjectID, target models.Target) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	obj, err := r.object(id)
	if err != nil {
		return Outcome{}, err
	}

	hit, err := r.resolveTarget(target, id)
	if err != nil {
		return Outcome{}, err
	}

	return r.apply(obj, r.placement.TryPlace(obj, hit), false), nil
}

// MoveTo moves a placed object to an explicit transform.
func (r *Room) MoveTo(id models.ObjectID, t geom.Transform) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	obj, err := r.object(id)
	if err != nil {
		return Outcome{}, err
	}

	if !isFiniteTransform(t) {
		return Outcome{}, errors.New("transform is not finite").
			WithType(ErrTypeInvalidRequest).
			WithTag("object_id", id).
			WithTag("transform", t)
	}

	return r.apply(obj, r.placement.TryTransform(obj, t), false), nil
}

// Scale resizes a placed object in place.
func (r *Room) Scale(id models.ObjectID, scale geom.Vector3f) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	obj, err := r.object(id)
	if err != nil {
		return Outcome{}, err
	}

	if !scale.IsFinite() || scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return Outcome{}, errors.New("invalid scale").
			WithType(ErrTypeInvalidRequest).
			WithTag("object_id", id).
			WithTag("scale", scale)
	}

	return r.apply(obj, r.placement.Rescale(obj, scale), false), nil
}

// Clone copies a placed object next to it. A zero offset puts the clone on
// the +X side of the original.
func (r *Room) Clone(id models.ObjectID, offset geom.Vector3f) (Outcome, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	src, err := r.object(id)
	if err != nil {
		return Outcome{}, err
	}

	if !offset.IsFinite() {
		return Outcome{}, errors.New("offset is not finite").
			WithType(ErrTypeInvalidRequest).
			WithTag("object_id", id).
			WithTag("offset", offset)
	}

	if offset == geom.Zero {
		if v, ok := r.placement.Volume(id); ok {
			offset.X = v.Size().X + cloneGap
		}
	}

	clone := src.Clone(r.objectIDs.NewObjectID())
	r.placement.Refresh(clone)

	t := clone.Transform
	t.Position = geom.Add(t.Position, offset)
	return r.apply(clone, r.placement.TryTransform(clone, t), true), nil
}

// Check reports whether an object would collide at position, without
// changing the room. A zero id checks a new object of the given kind.
func (r *Room) Check(id models.ObjectID, kind string, position geom.Vector3f) (collision.Result, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	defer r.takeEvents()

	if !position.IsFinite() {
		return collision.Result{}, errors.New("position is not finite").
			WithType(ErrTypeInvalidRequest).
			WithTag("position", position)
	}

	var obj *models.PlacedObject
	if id != 0 {
		o, err := r.object(id)
		if err != nil {
			return collision.Result{}, err
		}
		obj = o
	} else {
		o, err := r.catalog.NewObject(kind, 0)
		if err != nil {
			return collision.Result{}, err
		}
		obj = o
	}

	return r.placement.Check(placement.Request{
		Object:    obj,
		Position:  position,
		ExcludeID: id,
	}), nil
}

// Delete removes a placed object.
func (r *Room) Delete(id models.ObjectID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, err := r.object(id); err != nil {
		return err
	}

	delete(r.objects, id)
	r.placement.Remove(id)
	instrumentPlacedObjects(-1)
	return nil
}

// Clear removes every object and returns how many were removed.
func (r *Room) Clear() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	n := len(r.objects)
	r.objects = make(map[models.ObjectID]*models.PlacedObject)
	r.placement.Clear()
	instrumentPlacedObjects(-n)
	return n
}

// Object returns a copy of a placed object.
func (r *Room) Object(id models.ObjectID) (*models.PlacedObject, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	obj, ok := r.objects[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(obj.ID), true
}

// Objects returns copies of the placed objects sorted by id.
func (r *Room) Objects() []*models.PlacedObject {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	objects := make([]*models.PlacedObject, 0, len(r.objects))
	for _, obj := range r.objects {
		objects = append(objects, obj.Clone(obj.ID))
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID < objects[j].ID
	})
	return objects
}

func (r *Room) ObjectCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.objects)
}

// Surfaces returns the floor and the walls of the room.
func (r *Room) Surfaces() []models.Surface {
	return append([]models.Surface(nil), r.surfaces...)
}

// State returns what a participant needs to draw the room.
func (r *Room) State() protocol.RoomState {
	return protocol.RoomState{
		Layout:       r.Layout,
		Surfaces:     r.Surfaces(),
		Objects:      r.Objects(),
		Participants: participantIDs(r.Participants()),
		Kinds:        r.catalog.Kinds(),
	}
}

func (r *Room) NewParticipantID() uint32 {
	return r.participantIDs.New()
}

func (r *Room) AddParticipant(p *Participant) {
	r.participantMutex.Lock()
	defer r.participantMutex.Unlock()

	r.participants[p.ID] = p
}

func (r *Room) RemoveParticipant(p *Participant) {
	r.participantMutex.Lock()
	defer r.participantMutex.Unlock()

	delete(r.participants, p.ID)
	r.participantIDs.Reuse(p.ID)
}

func (r *Room) Participants() []*Participant {
	r.participantMutex.RLock()
	defer r.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p)
	}
	return participants
}

func (r *Room) ParticipantCount() int {
	r.participantMutex.RLock()
	defer r.participantMutex.RUnlock()

	return len(r.participants)
}

// Broadcast sends a message to every participant but the sender.
func (r *Room) Broadcast(sender *Participant, t protocol.MsgType, data any) {
	msg, err := protocol.NewMsg(t, 0, data)
	if err != nil {
		logs.WithTag("room_id", r.ID).
			WithTag("msg_type", t).
			Debug(err)
		return
	}

	r.participantMutex.RLock()
	defer r.participantMutex.RUnlock()

	for _, p := range r.participants {
		if p == sender {
			continue
		}
		p.Responder.SendMsg(msg)
	}
}

func (r *Room) apply(obj *models.PlacedObject, res placement.Result, isNew bool) Outcome {
	out := Outcome{
		ObjectID: obj.ID,
		Result:   res,
		Events:   r.takeEvents(),
	}

	if !res.Accepted {
		return out
	}

	obj.Transform = res.Transform
	if isNew {
		r.objects[obj.ID] = obj
		instrumentPlacedObjects(1)
	}

	out.Object = obj.Clone(obj.ID)
	return out
}

func (r *Room) object(id models.ObjectID) (*models.PlacedObject, error) {
	obj, ok := r.objects[id]
	if !ok {
		return nil, errors.New("object not found").
			WithType(ErrTypeObjectNotFound).
			WithTag("room_id", r.ID).
			WithTag("object_id", id)
	}
	return obj, nil
}

func (r *Room) resolveTarget(target models.Target, ignore ...models.ObjectID) (models.Hit, error) {
	if target.Hit != nil {
		return *target.Hit, nil
	}

	if target.Ray == nil {
		return models.Hit{}, errors.New("target has no hit nor ray").
			WithType(ErrTypeInvalidRequest)
	}

	hit, ok := r.raycast(*target.Ray, ignore...)
	if !ok {
		return models.Hit{}, errors.New("ray does not hit any surface").
			WithType(ErrTypeNoSurfaceHit).
			WithTag("ray", *target.Ray)
	}
	return hit, nil
}

func (r *Room) isLive(id models.ObjectID) bool {
	_, ok := r.objects[id]
	return ok
}

func (r *Room) recordEvent(e models.DebugEvent) {
	r.events = append(r.events, e)
}

func (r *Room) takeEvents() []models.DebugEvent {
	events := r.events
	r.events = nil
	return events
}

func isFiniteTransform(t geom.Transform) bool {
	q := t.Rotation
	return t.Position.IsFinite() &&
		t.Scale.IsFinite() &&
		geom.IsFinite(q.X) && geom.IsFinite(q.Y) && geom.IsFinite(q.Z) && geom.IsFinite(q.W)
}
