package protocol

import (
	"github.com/aukilabs/roomlayout/geom"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/placement"
)

// ErrorCode tells a client why a request failed.
type ErrorCode string

const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeUnknownKind         ErrorCode = "unknown_kind"
	ErrorCodeNoSurface           ErrorCode = "no_surface"
	ErrorCodeRoomAlreadyJoined   ErrorCode = "room_already_joined"
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
)

type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

type RoomJoinRequest struct {
	// The room to join. A new room is created when empty.
	RoomID string `json:"room_id,omitempty"`

	// The layout of a new room. The server default is used when nil.
	Layout *models.RoomLayout `json:"layout,omitempty"`
}

type RoomJoinResponse struct {
	RoomID        string `json:"room_id"`
	ParticipantID uint32 `json:"participant_id"`
}

type RoomState struct {
	Layout       models.RoomLayout      `json:"layout"`
	Surfaces     []models.Surface       `json:"surfaces"`
	Objects      []*models.PlacedObject `json:"objects"`
	Participants []uint32               `json:"participants"`
	Kinds        []string               `json:"kinds,omitempty"`
}

type AssetAddRequest struct {
	Kind   string        `json:"kind"`
	Target models.Target `json:"target"`
}

// AssetMoveRequest moves an object onto a target, or to an explicit
// transform when Transform is set.
type AssetMoveRequest struct {
	ObjectID  models.ObjectID `json:"object_id"`
	Target    models.Target   `json:"target"`
	Transform *geom.Transform `json:"transform,omitempty"`
}

type AssetScaleRequest struct {
	ObjectID models.ObjectID `json:"object_id"`
	Scale    geom.Vector3f   `json:"scale"`
}

type AssetCloneRequest struct {
	ObjectID models.ObjectID `json:"object_id"`
	Offset   geom.Vector3f   `json:"offset"`
}

// PlacementResponse answers add, move, scale and clone requests. Object is
// set when the placement was accepted.
type PlacementResponse struct {
	ObjectID models.ObjectID      `json:"object_id"`
	Object   *models.PlacedObject `json:"object,omitempty"`
	Result   placement.Result     `json:"result"`
}

// AssetCheckRequest asks whether an object would fit at a position. ObjectID
// refers to a placed object; Kind is used for objects not placed yet.
type AssetCheckRequest struct {
	ObjectID models.ObjectID `json:"object_id,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Position geom.Vector3f   `json:"position"`
}

type CheckResponse struct {
	CanPlace  bool              `json:"can_place"`
	BlockedBy []models.ObjectID `json:"blocked_by,omitempty"`
}

type AssetDeleteRequest struct {
	ObjectID models.ObjectID `json:"object_id"`
}

type RoomClearResponse struct {
	Removed int `json:"removed"`
}

type ParticipantBroadcast struct {
	ParticipantID uint32 `json:"participant_id"`
}

type AssetPlacedBroadcast struct {
	ParticipantID uint32               `json:"participant_id"`
	Object        *models.PlacedObject `json:"object"`
}

type AssetDeletedBroadcast struct {
	ParticipantID uint32          `json:"participant_id"`
	ObjectID      models.ObjectID `json:"object_id"`
}
