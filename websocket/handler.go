package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/aukilabs/roomlayout/rooms"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents a room editor handler.
type Handler interface {
	// Handles a ping request.
	HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a request to join or create a room.
	HandleRoomJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handles a request to create an object and drop it on a surface.
	HandleAssetAdd(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to move an object.
	HandleAssetMove(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to resize an object.
	HandleAssetScale(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to duplicate an object.
	HandleAssetClone(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a drag preview collision check.
	HandleAssetCheck(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to delete an object.
	HandleAssetDelete(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to remove every object of the room.
	HandleRoomClear(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() protocol.Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() protocol.Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Returns the room store.
	GetRooms() *rooms.Store

	// The currently joined room.
	CurrentRoom() *rooms.Room

	// The current participant.
	CurrentParticipant() *rooms.Participant

	GetClientID() string
}

// Handle handles the given service.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The room editor handler.
	Handler Handler

	sendChan       chan protocol.Msg
	receiveChan    chan protocol.Msg
	sender         protocol.Sender
	receiver       protocol.Receiver
	disconnectChan chan error
	done           <-chan struct{}
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.done = ctx.Done()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan protocol.Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan protocol.Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	var disconnectErr error

loop:
	for {
		select {
		case <-ctx.Done():
			disconnectErr = ctx.Err()
			break loop

		case <-idleTimer.C:
			disconnectErr = errors.New("idle connection").WithTag("duration", idleTimeout)
			break loop

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				disconnectErr = errors.New("handling message failed").Wrap(err)
				break loop
			}

		case err := <-h.disconnectChan:
			disconnectErr = err
			break loop
		}
	}

	// Closing the connection unblocks the receiving goroutine.
	h.handleDisconnect(disconnectErr)
	cancel()
	wg.Wait()
}

func (h *handler) send(t protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", t).
			Debug(err)
		return
	}
	h.sendMsg(msg)
}

// sendMsg may be called from other connections broadcasting to the room.
func (h *handler) sendMsg(msg protocol.Msg) {
	select {
	case h.sendChan <- msg:
	case <-h.done:
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		msg, _, err := h.receiver()
		if err != nil {
			h.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return

		case h.receiveChan <- msg:
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg protocol.Msg, responder protocol.ResponseSender) error {
	switch msg.Type {
	case protocol.MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case protocol.MsgTypeRoomJoin:
		return h.Handler.HandleRoomJoin(ctx, responder, msg)

	case protocol.MsgTypeAssetAdd:
		return h.Handler.HandleAssetAdd(ctx, responder, msg)

	case protocol.MsgTypeAssetMove:
		return h.Handler.HandleAssetMove(ctx, responder, msg)

	case protocol.MsgTypeAssetScale:
		return h.Handler.HandleAssetScale(ctx, responder, msg)

	case protocol.MsgTypeAssetClone:
		return h.Handler.HandleAssetClone(ctx, responder, msg)

	case protocol.MsgTypeAssetCheck:
		return h.Handler.HandleAssetCheck(ctx, responder, msg)

	case protocol.MsgTypeAssetDelete:
		return h.Handler.HandleAssetDelete(ctx, responder, msg)

	case protocol.MsgTypeRoomClear:
		return h.Handler.HandleRoomClear(ctx, responder, msg)

	default:
		responder.Send(protocol.MsgTypeErrorResponse, msg.RequestID, protocol.ErrorResponse{
			Code:    protocol.ErrorCodeBadRequest,
			Message: "unknown message type: " + msg.TypeString(),
		})
		return nil
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(protocol.MsgType, uint32, any)
	sendMsg func(protocol.Msg)
}

func (r responseSender) Send(t protocol.MsgType, requestID uint32, data any) {
	r.send(t, requestID, data)
}

func (r responseSender) SendMsg(msg protocol.Msg) {
	r.sendMsg(msg)
}
