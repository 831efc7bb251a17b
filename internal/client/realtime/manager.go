package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/logging"
)

// Status is the connection state machine.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config holds per-connection settings. Zero values fall back to defaults.
type Config struct {
	// Name tags log lines ("social", "community").
	Name string
	// URL of the event-stream endpoint.
	URL string

	MinBackoff  time.Duration // default 1s
	MaxBackoff  time.Duration // default 5s
	MaxAttempts int           // default 5
	DialTimeout time.Duration // default 5s
}

func (c Config) withDefaults() Config {
	if c.MinBackoff <= 0 {
		c.MinBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

type listener struct {
	fn func(models.Event)
}

// channelPayload is the body of channel join/leave requests.
type channelPayload struct {
	ChannelID string `json:"channelId"`
}

// Manager maintains one authenticated, auto-reconnecting event-stream
// connection.
//
// Listener registration is decoupled from connection timing: On may be called
// before Connect, and recorded listeners receive events as soon as the
// connection is live. Transport errors never surface to callers; they drive
// the internal reconnection backoff.
type Manager struct {
	cfg       Config
	transport Transport
	token     func() string
	log       logging.Logger

	mu            sync.Mutex
	status        Status
	conn          Conn
	attempts      int
	activeChannel string
	listeners     map[string][]*listener
	// gen invalidates read pumps and dial loops that belong to a previous
	// connection lifetime.
	gen int
}

// NewManager builds a Manager. token is consulted at every dial: the manager
// is gated on the session without holding a copy of the credential.
func NewManager(cfg Config, transport Transport, token func() string, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		transport: transport,
		token:     token,
		log:       log.With("conn", cfg.Name),
		listeners: make(map[string][]*listener),
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ActiveChannel returns the channel currently joined, or "".
func (m *Manager) ActiveChannel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeChannel
}

// Connect starts the connection. Idempotent: a no-op while already connected
// or connecting. Without a token it logs and returns; callers may retry once
// authenticated. A manual Connect resets the attempt counter.
func (m *Manager) Connect(ctx context.Context) {
	token := m.token()
	if token == "" {
		m.log.Info(ctx, "connect skipped, no auth token")
		return
	}

	m.mu.Lock()
	if m.status != StatusDisconnected {
		m.mu.Unlock()
		return
	}
	m.status = StatusConnecting
	m.attempts = 0
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.dialLoop(gen, token)
}

// dialLoop attempts to establish the connection with bounded exponential
// backoff. Runs until success, exhaustion, or supersession.
func (m *Manager) dialLoop(gen int, token string) {
	ctx := context.Background()
	backoff := m.cfg.MinBackoff

	for {
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
		conn, err := m.transport.Dial(dialCtx, m.cfg.URL, token)
		cancel()

		if err == nil {
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				_ = conn.Close()
				return
			}
			m.conn = conn
			m.status = StatusConnected
			m.attempts = 0
			m.mu.Unlock()
			m.log.Info(ctx, "connected")
			go m.readPump(gen, conn)
			return
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.attempts++
		attempts := m.attempts
		exhausted := attempts >= m.cfg.MaxAttempts
		if exhausted {
			m.status = StatusDisconnected
		}
		m.mu.Unlock()

		if exhausted {
			m.log.Warn(ctx, "giving up after max reconnect attempts", "attempts", attempts, "error", err)
			return
		}
		m.log.Warn(ctx, "connect failed, retrying", "attempt", attempts, "backoff", backoff, "error", err)

		time.Sleep(backoff)
		backoff *= 2
		if backoff > m.cfg.MaxBackoff {
			backoff = m.cfg.MaxBackoff
		}
	}
}

// readPump delivers incoming events to listeners until the connection drops,
// then re-enters the dial loop.
func (m *Manager) readPump(gen int, conn Conn) {
	ctx := context.Background()
	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			m.mu.Lock()
			if m.gen != gen {
				m.mu.Unlock()
				return
			}
			m.conn = nil
			m.activeChannel = ""
			m.status = StatusConnecting
			token := m.token()
			m.mu.Unlock()

			_ = conn.Close()
			if token == "" {
				// Token vanished (logout raced the drop): stop here.
				m.mu.Lock()
				if m.gen == gen {
					m.status = StatusDisconnected
				}
				m.mu.Unlock()
				return
			}
			m.log.Warn(ctx, "connection dropped, reconnecting", "error", err)
			m.dialLoop(gen, token)
			return
		}
		m.dispatch(ev)
	}
}

func (m *Manager) dispatch(ev models.Event) {
	m.mu.Lock()
	regs := m.listeners[ev.Name]
	fns := make([]func(models.Event), 0, len(regs))
	for _, l := range regs {
		fns = append(fns, l.fn)
	}
	m.mu.Unlock()

	// Registration order.
	for _, fn := range fns {
		fn(ev)
	}
}

// On registers a listener for the named event and returns an idempotent
// unsubscribe. Registration works regardless of connection state; a listener
// recorded before Connect receives events once the connection completes.
func (m *Manager) On(event string, fn func(models.Event)) (unsubscribe func()) {
	l := &listener{fn: fn}
	m.mu.Lock()
	m.listeners[event] = append(m.listeners[event], l)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			regs := m.listeners[event]
			for i, r := range regs {
				if r == l {
					m.listeners[event] = append(regs[:i:i], regs[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
		})
	}
}

// Emit sends an event on the live connection. Best-effort: when disconnected
// or on write failure it logs and returns; realtime sends carry no delivery
// guarantee.
func (m *Manager) Emit(ctx context.Context, name string, payload any) {
	ev, err := models.NewEvent(name, payload)
	if err != nil {
		m.log.Error(ctx, "emit: bad payload", "event", name, "error", err)
		return
	}

	m.mu.Lock()
	conn := m.conn
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		m.log.Debug(ctx, "emit dropped", "event", name, "error", common.ErrNotConnected)
		return
	}
	if err := conn.WriteEvent(ev); err != nil {
		m.log.Warn(ctx, "emit failed", "event", name, "error", err)
	}
}

// JoinChannel joins a channel, leaving the previously active one first; at
// most one channel is active per connection. A no-op when disconnected or
// when already joined to the same channel.
func (m *Manager) JoinChannel(ctx context.Context, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusConnected || m.conn == nil {
		m.log.Debug(ctx, "join dropped", "channel", channelID, "error", common.ErrNotConnected)
		return
	}
	if m.activeChannel == channelID {
		return
	}

	// The leave for the previous channel is written before the join so the
	// server never sees both memberships at once.
	if m.activeChannel != "" {
		m.writeChannelEvent(ctx, common.EventChannelLeave, m.activeChannel)
		m.activeChannel = ""
	}
	if m.writeChannelEvent(ctx, common.EventChannelJoin, channelID) {
		m.activeChannel = channelID
	}
}

// LeaveChannel leaves the given channel if it is the active one. A no-op when
// disconnected.
func (m *Manager) LeaveChannel(ctx context.Context, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusConnected || m.conn == nil {
		return
	}
	if m.activeChannel != channelID {
		return
	}
	m.writeChannelEvent(ctx, common.EventChannelLeave, channelID)
	m.activeChannel = ""
}

// writeChannelEvent writes a join/leave request. Caller holds m.mu.
func (m *Manager) writeChannelEvent(ctx context.Context, name, channelID string) bool {
	ev, err := models.NewEvent(name, channelPayload{ChannelID: channelID})
	if err != nil {
		m.log.Error(ctx, "channel event: bad payload", "event", name, "error", err)
		return false
	}
	if err := m.conn.WriteEvent(ev); err != nil {
		m.log.Warn(ctx, "channel event failed", "event", name, "channel", channelID, "error", err)
		return false
	}
	return true
}

// Disconnect tears down the transport, clears channel membership, and removes
// all listeners bound to this connection instance.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	conn := m.conn
	m.conn = nil
	m.status = StatusDisconnected
	m.activeChannel = ""
	m.attempts = 0
	m.listeners = make(map[string][]*listener)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}
