package websocket

import (
	"errors"
	"io"
	"net"
)

// isConnClosed reports whether err comes from a connection closed by either
// side.
func isConnClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
