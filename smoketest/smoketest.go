// Package smoketest checks that a room layout server accepts connections and
// places objects.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/geom"
	rhttp "github.com/aukilabs/roomlayout/http"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	defaultTimeout = 10 * time.Second
)

type Options struct {
	// The endpoint tested when a request does not name one.
	Endpoint  string
	UserAgent string

	// The kind of the object placed during the test. No object is placed
	// when empty.
	Kind string
}

type Request struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

type Results struct {
	Endpoint        string  `json:"endpoint"`
	Status          string  `json:"status"`
	RoomID          string  `json:"room_id,omitempty"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Placed          bool    `json:"placed"`
	Error           string  `json:"error,omitempty"`
}

// HandleSmokeTest runs a smoke test against the requested endpoint and
// responds with its results.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		if req.Endpoint == "" {
			req.Endpoint = opts.Endpoint
		}
		if req.Timeout <= 0 {
			req.Timeout = defaultTimeout
		}

		ctx, cancel := context.WithTimeout(ctx, req.Timeout)
		defer cancel()

		res, err := Run(ctx, req.Endpoint, opts)
		if err != nil {
			logs.WithTag("endpoint", req.Endpoint).Warn(err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

// Run connects to endpoint, joins a new room and places an object of the
// configured kind.
func Run(ctx context.Context, endpoint string, opts Options) (Results, error) {
	res := Results{
		Endpoint: endpoint,
		Status:   StatusFailed,
	}

	err := run(ctx, endpoint, opts, &res)
	if err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	res.Status = StatusSuccess
	return res, nil
}

func run(ctx context.Context, endpoint string, opts Options, res *Results) error {
	config, err := websocket.NewConfig(websocketURL(endpoint), endpoint)
	if err != nil {
		return errors.New("invalid endpoint").Wrap(err)
	}
	config.Header.Set("User-Agent", opts.UserAgent)
	config.Header.Set(rhttp.HeaderClientID, uuid.NewString())

	start := time.Now()

	conn, err := websocket.DialConfig(config)
	if err != nil {
		return errors.New("dialing endpoint failed").Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := send(conn, protocol.MsgTypeRoomJoin, 1, protocol.RoomJoinRequest{}); err != nil {
		return err
	}

	var join protocol.RoomJoinResponse
	if err := receive(conn, protocol.MsgTypeRoomJoinResponse, &join); err != nil {
		return err
	}
	res.RoomID = join.RoomID
	res.LatencyMilliSec = float64(time.Since(start).Microseconds()) / 1000

	if opts.Kind == "" {
		return nil
	}

	err = send(conn, protocol.MsgTypeAssetAdd, 2, protocol.AssetAddRequest{
		Kind: opts.Kind,
		Target: models.Target{Ray: &geom.Ray{
			From: geom.NewVector3f(0, 10, 0),
			To:   geom.NewVector3f(0, -1, 0),
		}},
	})
	if err != nil {
		return err
	}

	var placed protocol.PlacementResponse
	if err := receive(conn, protocol.MsgTypePlacementResponse, &placed); err != nil {
		return err
	}

	res.Placed = placed.Result.Accepted
	if !res.Placed {
		return errors.New("object placement rejected").
			WithTag("kind", opts.Kind).
			WithTag("reason", placed.Result.Reason)
	}
	return nil
}

func send(conn *websocket.Conn, t protocol.MsgType, requestID uint32, data any) error {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		return err
	}

	_, err = protocol.Send(conn, msg)
	return err
}

// receive skips messages until one of type t is received. Error responses
// end the test.
func receive(conn *websocket.Conn, t protocol.MsgType, v any) error {
	for {
		msg, _, err := protocol.Receive(conn)
		if err != nil {
			return errors.New("receiving message failed").
				WithTag("expected_msg_type", t).
				Wrap(err)
		}

		switch msg.Type {
		case t:
			return msg.DataTo(v)

		case protocol.MsgTypeErrorResponse:
			var errRes protocol.ErrorResponse
			msg.DataTo(&errRes)
			return errors.New("server responded with an error").
				WithTag("code", errRes.Code).
				WithTag("message", errRes.Message)
		}
	}
}

func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")

	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")

	default:
		return endpoint
	}
}
