package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// HeaderClientID is the header where editor clients put their id.
const HeaderClientID = "X-Roomlayout-Client-Id"

const ErrTypeInvalidClientID = "invalid_client_id"

// VerifyClientID returns a WebSocket handshake that rejects clients without
// a UUID client id. The handshake sets the header when generate is true and
// the client did not send one.
func VerifyClientID(generate bool) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		clientID := r.Header.Get(HeaderClientID)
		if clientID == "" && generate {
			r.Header.Set(HeaderClientID, uuid.NewString())
			return nil
		}

		if _, err := uuid.Parse(clientID); err != nil {
			err = errors.New("invalid client id").
				WithType(ErrTypeInvalidClientID).
				WithTag("client_id", clientID).
				Wrap(err)
			logs.WithTag(logs.ClientIDTag, clientID).Error(err)
			return err
		}
		return nil
	}
}
