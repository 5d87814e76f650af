// Package protocol defines the JSON messages exchanged with editor clients.
package protocol

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMsgDecode      = "msg_decode_failed"
	ErrTypeMsgEncode      = "msg_encode_failed"
	ErrTypeRoomNotJoined  = "room_not_joined"
	ErrTypeUnknownMsgType = "msg_type_unknown"
)

// MsgType identifies a message.
type MsgType string

const (
	MsgTypePing                MsgType = "ping"
	MsgTypePong                MsgType = "pong"
	MsgTypeErrorResponse       MsgType = "error_response"
	MsgTypeRoomJoin            MsgType = "room_join"
	MsgTypeRoomJoinResponse    MsgType = "room_join_response"
	MsgTypeRoomState           MsgType = "room_state"
	MsgTypeRoomClear           MsgType = "room_clear"
	MsgTypeRoomClearResponse   MsgType = "room_clear_response"
	MsgTypeAssetAdd            MsgType = "asset_add"
	MsgTypeAssetMove           MsgType = "asset_move"
	MsgTypeAssetScale          MsgType = "asset_scale"
	MsgTypeAssetClone          MsgType = "asset_clone"
	MsgTypePlacementResponse   MsgType = "placement_response"
	MsgTypeAssetCheck          MsgType = "asset_check"
	MsgTypeCheckResponse       MsgType = "check_response"
	MsgTypeAssetDelete         MsgType = "asset_delete"
	MsgTypeAssetDeleteResponse MsgType = "asset_delete_response"
	MsgTypeDebugEvent          MsgType = "debug_event"

	MsgTypeParticipantJoinBroadcast  MsgType = "participant_join_broadcast"
	MsgTypeParticipantLeaveBroadcast MsgType = "participant_leave_broadcast"
	MsgTypeAssetPlacedBroadcast      MsgType = "asset_placed_broadcast"
	MsgTypeAssetDeletedBroadcast     MsgType = "asset_deleted_broadcast"
	MsgTypeRoomClearedBroadcast      MsgType = "room_cleared_broadcast"
)

// Msg is the envelope of every message. Data holds the payload of the
// message type.
type Msg struct {
	Type      MsgType         `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg returns a message carrying the JSON encoding of data.
func NewMsg(t MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      t,
		Timestamp: time.Now(),
		RequestID: requestID,
	}

	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithType(ErrTypeMsgEncode).
			WithTag("msg_type", t).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message payload into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	return string(m.Type)
}

// Receiver receives a message and returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message and returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to a client.
type ResponseSender interface {
	Send(t MsgType, requestID uint32, data any)
	SendMsg(msg Msg)
}

// Codec encodes messages as WebSocket text frames.
var Codec = websocket.Codec{
	Marshal: func(v any) ([]byte, byte, error) {
		b, err := json.Marshal(v)
		return b, websocket.TextFrame, err
	},
	Unmarshal: func(data []byte, payloadType byte, v any) error {
		return json.Unmarshal(data, v)
	},
}

// Receive reads a message from conn.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var data []byte
	if err := websocket.Message.Receive(conn, &data); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(data, &msg); err != nil {
		return Msg{}, len(data), errors.New("decoding message failed").
			WithType(ErrTypeMsgDecode).
			Wrap(err)
	}
	return msg, len(data), nil
}

// Send writes msg to conn.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithType(ErrTypeMsgEncode).
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(data)); err != nil {
		return 0, err
	}
	return len(data), nil
}
