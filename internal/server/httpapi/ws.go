package httpapi

import (
	"net/http"

	"github.com/coder/websocket"
)

func websocketAccept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		// The client authenticates with a Bearer header, not an Origin; the
		// check adds nothing for non-browser peers.
		InsecureSkipVerify: true,
	})
}
