package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/featureflag"
	rhttp "github.com/aukilabs/roomlayout/http"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/protocol"
	"github.com/aukilabs/roomlayout/rooms"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const testReceiveTimeout = 2 * time.Second

// Creates a testing environement to unit test handlers.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: rhttp.VerifyClientID(false),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	newConn := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-for", "192.0.0.0")
		config.Header.Set(rhttp.HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		return conn
	}

	clientA := newConn()
	clientB := newConn()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
	}
}

const testCatalog = `
prefabs:
  - kind: cube
    parts:
      - name: body
        geometry:
          min: {x: -0.5, y: -0.5, z: -0.5}
          max: {x: 0.5, y: 0.5, z: 0.5}
  - kind: frame
    surfaces: [wall]
    nominal_size: {x: 0.8, y: 0.6, z: 0.04}
`

func newTestHandler(t *testing.T, store *rooms.Store, flags ...string) func() Handler {
	cat, err := catalog.Parse([]byte(testCatalog), catalog.FormatYAML)
	require.NoError(t, err)

	return func() Handler {
		var h Handler = &RealtimeHandler{
			ClientIdleTimeout: time.Minute,
			Rooms:             store,
			Catalog:           cat,
			Placement:         placement.DefaultConfig(),
			DefaultLayout:     rooms.DefaultLayout(),
			FeatureFlags:      featureflag.New(flags),
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://roomlayout-test.com")
		return h
	}
}

// sendTestMsg sends a message from a test client.
func sendTestMsg(t *testing.T, conn *websocket.Conn, msgType protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(msgType, requestID, data)
	require.NoError(t, err)

	_, err = protocol.Send(conn, msg)
	require.NoError(t, err)
}

// receiveTestMsg skips messages until one of the given type is received and
// decodes its payload into v when v is not nil.
func receiveTestMsg(t *testing.T, conn *websocket.Conn, msgType protocol.MsgType, v any) protocol.Msg {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testReceiveTimeout)))
	defer conn.SetReadDeadline(time.Time{})

	for {
		msg, _, err := protocol.Receive(conn)
		require.NoError(t, err, "waiting for %s", msgType)

		if msg.Type != msgType {
			continue
		}

		if v != nil {
			require.NoError(t, msg.DataTo(v))
		}
		return msg
	}
}
