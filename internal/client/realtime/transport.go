package realtime

import (
	"context"

	"github.com/spotterapp/spotter-go/internal/client/models"
)

// Transport dials event-stream connections. The live implementation is
// WebsocketTransport; tests use an in-memory fake.
type Transport interface {
	// Dial opens a connection to url, authenticating with the bearer token
	// as connection-time credentials.
	Dial(ctx context.Context, url string, token string) (Conn, error)
}

// Conn is one open bidirectional event stream.
type Conn interface {
	// ReadEvent blocks until the next event or a transport error.
	ReadEvent() (models.Event, error)

	// WriteEvent sends one event. Implementations must be safe for
	// concurrent writers; the manager writes from multiple goroutines.
	WriteEvent(ev models.Event) error

	Close() error
}
