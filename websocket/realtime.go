package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/featureflag"
	rhttp "github.com/aukilabs/roomlayout/http"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/aukilabs/roomlayout/rooms"
	"golang.org/x/net/websocket"
)

// RealtimeHandler represents a service that manages a client connection and
// relays the room edits it makes to the other participants.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the rooms of the server.
	Rooms *rooms.Store

	// The prefabs objects are created from.
	Catalog *catalog.Catalog

	// The placement settings of new rooms.
	Placement placement.Config

	// The layout of rooms created without one.
	DefaultLayout models.RoomLayout

	FeatureFlags featureflag.FeatureFlag

	conn               *websocket.Conn
	currentRoom        *rooms.Room
	currentParticipant *rooms.Participant

	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(rhttp.HeaderClientID)
	h.conn = conn
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	respond.Send(protocol.MsgTypePong, msg.RequestID, nil)
	return nil
}

func (h *RealtimeHandler) HandleRoomJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.RoomJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentRoom != nil && h.currentRoom.ID == req.RoomID {
		sendError(respond, msg, protocol.ErrorCodeRoomAlreadyJoined, "room already joined")
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveRoom()
	}

	room, ok := h.Rooms.Get(req.RoomID)
	if !ok && req.RoomID != "" {
		sendError(respond, msg, protocol.ErrorCodeNotFound, "room not found")
		return nil
	}

	if !ok {
		layout := h.DefaultLayout
		if req.Layout != nil {
			layout = *req.Layout
		}

		r, err := rooms.NewRoom(layout, h.Placement, h.Catalog)
		if err != nil {
			sendError(respond, msg, protocol.ErrorCodeBadRequest, err.Error())
			return nil
		}
		room = r
		h.Rooms.Add(room)
	}

	participant, ok := h.Rooms.Join(room, respond)
	if !ok {
		sendError(respond, msg, protocol.ErrorCodeNotFound, "room not found")
		return nil
	}

	respond.Send(protocol.MsgTypeRoomJoinResponse, msg.RequestID, protocol.RoomJoinResponse{
		RoomID:        room.ID,
		ParticipantID: participant.ID,
	})

	h.currentRoom = room
	h.currentParticipant = participant

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableRoomState, func() {
		respond.Send(protocol.MsgTypeRoomState, 0, room.State())
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantJoinBroadcast, func() {
		room.Broadcast(participant, protocol.MsgTypeParticipantJoinBroadcast, protocol.ParticipantBroadcast{
			ParticipantID: participant.ID,
		})
	})

	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveRoom()
	}
}

func (h *RealtimeHandler) HandleAssetAdd(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetAddRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	out, err := room.Add(req.Kind, req.Target)
	if err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	h.sendPlacement(respond, msg, out)
	return nil
}

func (h *RealtimeHandler) HandleAssetMove(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetMoveRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	var out rooms.Outcome
	if req.Transform != nil {
		out, err = room.MoveTo(req.ObjectID, *req.Transform)
	} else {
		out, err = room.Move(req.ObjectID, req.Target)
	}
	if err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	h.sendPlacement(respond, msg, out)
	return nil
}

func (h *RealtimeHandler) HandleAssetScale(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetScaleRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	out, err := room.Scale(req.ObjectID, req.Scale)
	if err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	h.sendPlacement(respond, msg, out)
	return nil
}

func (h *RealtimeHandler) HandleAssetClone(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetCloneRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	out, err := room.Clone(req.ObjectID, req.Offset)
	if err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	h.sendPlacement(respond, msg, out)
	return nil
}

func (h *RealtimeHandler) HandleAssetCheck(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetCheckRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	res, err := room.Check(req.ObjectID, req.Kind, req.Position)
	if err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	respond.Send(protocol.MsgTypeCheckResponse, msg.RequestID, protocol.CheckResponse{
		CanPlace:  res.CanPlace,
		BlockedBy: res.IDs(),
	})
	return nil
}

func (h *RealtimeHandler) HandleAssetDelete(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.AssetDeleteRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	if err := room.Delete(req.ObjectID); err != nil {
		sendRoomError(respond, msg, err)
		return nil
	}

	respond.Send(protocol.MsgTypeAssetDeleteResponse, msg.RequestID, nil)

	participant := h.currentParticipant
	h.FeatureFlags.IfNotSet(featureflag.FlagDisableAssetDeletedBroadcast, func() {
		room.Broadcast(participant, protocol.MsgTypeAssetDeletedBroadcast, protocol.AssetDeletedBroadcast{
			ParticipantID: participant.ID,
			ObjectID:      req.ObjectID,
		})
	})
	return nil
}

func (h *RealtimeHandler) HandleRoomClear(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	room, err := h.joinedRoom(msg)
	if err != nil {
		return err
	}

	removed := room.Clear()
	respond.Send(protocol.MsgTypeRoomClearResponse, msg.RequestID, protocol.RoomClearResponse{
		Removed: removed,
	})

	participant := h.currentParticipant
	h.FeatureFlags.IfNotSet(featureflag.FlagDisableRoomClearedBroadcast, func() {
		room.Broadcast(participant, protocol.MsgTypeRoomClearedBroadcast, protocol.ParticipantBroadcast{
			ParticipantID: participant.ID,
		})
	})
	return nil
}

func (h *RealtimeHandler) Receiver() protocol.Receiver {
	return func() (protocol.Msg, int, error) {
		return protocol.Receive(h.conn)
	}
}

func (h *RealtimeHandler) Sender() protocol.Sender {
	return func(msg protocol.Msg) (int, error) {
		return protocol.Send(h.conn, msg)
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetRooms() *rooms.Store {
	return h.Rooms
}

func (h *RealtimeHandler) CurrentRoom() *rooms.Room {
	return h.currentRoom
}

func (h *RealtimeHandler) CurrentParticipant() *rooms.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) joinedRoom(msg protocol.Msg) (*rooms.Room, error) {
	if h.currentParticipant == nil || h.currentRoom == nil {
		return nil, errors.New("room not joined").
			WithType(protocol.ErrTypeRoomNotJoined).
			WithTag("msg_type", msg.Type)
	}
	return h.currentRoom, nil
}

// sendPlacement sends the debug events of a placement before its result.
// Accepted placements are broadcast to the other participants.
func (h *RealtimeHandler) sendPlacement(respond protocol.ResponseSender, msg protocol.Msg, out rooms.Outcome) {
	h.FeatureFlags.IfNotSet(featureflag.FlagDisableDebugEvents, func() {
		for _, e := range out.Events {
			respond.Send(protocol.MsgTypeDebugEvent, msg.RequestID, e)
		}
	})

	respond.Send(protocol.MsgTypePlacementResponse, msg.RequestID, protocol.PlacementResponse{
		ObjectID: out.ObjectID,
		Object:   out.Object,
		Result:   out.Result,
	})

	if out.Object == nil {
		return
	}

	participant := h.currentParticipant
	h.FeatureFlags.IfNotSet(featureflag.FlagDisableAssetPlacedBroadcast, func() {
		h.currentRoom.Broadcast(participant, protocol.MsgTypeAssetPlacedBroadcast, protocol.AssetPlacedBroadcast{
			ParticipantID: participant.ID,
			Object:        out.Object,
		})
	})
}

func (h *RealtimeHandler) leaveRoom() {
	room := h.currentRoom
	participant := h.currentParticipant

	if participant == nil || room == nil {
		return
	}

	h.Rooms.Leave(room, participant)

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantLeaveBroadcast, func() {
		room.Broadcast(participant, protocol.MsgTypeParticipantLeaveBroadcast, protocol.ParticipantBroadcast{
			ParticipantID: participant.ID,
		})
	})

	h.currentParticipant = nil
	h.currentRoom = nil
}

func sendError(respond protocol.ResponseSender, msg protocol.Msg, code protocol.ErrorCode, message string) {
	respond.Send(protocol.MsgTypeErrorResponse, msg.RequestID, protocol.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sendRoomError reports a failed room operation to the client.
func sendRoomError(respond protocol.ResponseSender, msg protocol.Msg, err error) {
	var code protocol.ErrorCode
	switch errors.Type(err) {
	case rooms.ErrTypeObjectNotFound:
		code = protocol.ErrorCodeNotFound
	case catalog.ErrTypeUnknownKind:
		code = protocol.ErrorCodeUnknownKind
	case rooms.ErrTypeNoSurfaceHit:
		code = protocol.ErrorCodeNoSurface
	case rooms.ErrTypeInvalidRequest, rooms.ErrTypeInvalidLayout:
		code = protocol.ErrorCodeBadRequest
	default:
		code = protocol.ErrorCodeInternalServerError
	}

	sendError(respond, msg, code, err.Error())
}
