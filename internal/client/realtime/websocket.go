package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/spotterapp/spotter-go/internal/client/models"
)

// WebsocketTransport dials event-stream endpoints over websocket. Frames are
// JSON-encoded events.
type WebsocketTransport struct {
	dialer *websocket.Dialer
}

func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{dialer: websocket.DefaultDialer}
}

// Dial opens the websocket, passing the token as a bearer credential at
// connection time.
func (t *WebsocketTransport) Dial(ctx context.Context, url string, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, resp, err := t.dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &websocketConn{ws: ws}, nil
}

type websocketConn struct {
	ws *websocket.Conn

	// gorilla/websocket permits at most one concurrent writer per
	// connection; writeMu serializes WriteEvent callers.
	writeMu sync.Mutex
}

func (c *websocketConn) ReadEvent() (models.Event, error) {
	var ev models.Event
	if err := c.ws.ReadJSON(&ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

func (c *websocketConn) WriteEvent(ev models.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(ev)
}

func (c *websocketConn) Close() error {
	return c.ws.Close()
}
