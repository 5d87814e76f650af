package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/featureflag"
	rhttp "github.com/aukilabs/roomlayout/http"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/rooms"
	rwebsocket "github.com/aukilabs/roomlayout/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *rooms.Store) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	var store rooms.Store
	server := httptest.NewServer(websocket.Server{
		Handshake: rhttp.VerifyClientID(false),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &rwebsocket.RealtimeHandler{
				ClientIdleTimeout: time.Minute,
				Rooms:             &store,
				Catalog:           cat,
				Placement:         placement.DefaultConfig(),
				DefaultLayout:     rooms.DefaultLayout(),
				FeatureFlags:      featureflag.New(nil),
			}
			defer h.Close()

			rwebsocket.Handle(context.Background(), conn, h)
		},
	})
	return server, &store
}

func TestRun(t *testing.T) {
	server, store := newTestServer(t)
	defer server.Close()

	t.Run("success", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := Run(ctx, server.URL, Options{Kind: "sofa"})
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, server.URL, res.Endpoint)
		require.NotEmpty(t, res.RoomID)
		require.True(t, res.Placed)
		require.Greater(t, res.LatencyMilliSec, float64(0))
		require.Empty(t, res.Error)

		require.Eventually(t, func() bool {
			return store.Len() == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("join only", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := Run(ctx, server.URL, Options{})
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.False(t, res.Placed)
	})

	t.Run("unknown kind", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := Run(ctx, server.URL, Options{Kind: "piano"})
		require.Error(t, err)
		require.Equal(t, StatusFailed, res.Status)
		require.NotEmpty(t, res.RoomID)
		require.NotEmpty(t, res.Error)
	})

	t.Run("offline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := Run(ctx, "http://127.0.0.1:1", Options{Kind: "sofa"})
		require.Error(t, err)
		require.Equal(t, StatusFailed, res.Status)
		require.Zero(t, res.LatencyMilliSec)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	handler := HandleSmokeTest(context.Background(), Options{
		Endpoint:  server.URL,
		UserAgent: "roomlayout test",
		Kind:      "chair",
	})

	t.Run("default endpoint", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var res Results
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, server.URL, res.Endpoint)
	})

	t.Run("requested endpoint", func(t *testing.T) {
		body, err := json.Marshal(Request{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  time.Second,
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var res Results
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Equal(t, StatusFailed, res.Status)
		require.Equal(t, "http://127.0.0.1:1", res.Endpoint)
	})

	t.Run("bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestWebsocketURL(t *testing.T) {
	require.Equal(t, "ws://localhost:4000", websocketURL("http://localhost:4000"))
	require.Equal(t, "wss://rooms.example.com", websocketURL("https://rooms.example.com"))
	require.Equal(t, "ws://localhost:4000", websocketURL("ws://localhost:4000"))
}
