package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spotterapp/spotter-go/internal/client/api"
	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/client/repositories/snapshots"
	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/logging"
)

// LoadState is the bootstrap state machine. Transitions are guarded by the
// service mutex; there are no out-of-band flags to get stuck.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionSource is the slice of the session service the synchronizer needs.
type SessionSource interface {
	Current() Session
}

// BootstrapService produces the consolidated application-state snapshot,
// one network call per session rather than one per screen.
//
// Contract:
//   - Load: at most one network fetch is in flight at any time; concurrent
//     callers either receive the held snapshot immediately or join the
//     in-flight fetch.
//   - Refresh: Load with force=true.
//   - Resume: cache-then-network on session restore.
//   - Clear: drops the held snapshot and the persistent cache entry.
type BootstrapService interface {
	Load(ctx context.Context, opts models.LoadOptions, force, background bool) (models.Snapshot, error)
	Refresh(ctx context.Context, opts models.LoadOptions) (models.Snapshot, error)
	Resume(ctx context.Context, opts models.LoadOptions) (models.Snapshot, bool)
	Clear(ctx context.Context) error
	UpdateUser(user *models.UserSummary)
	Current() (models.Snapshot, bool)
	State() LoadState
	OnLoadingChanged(fn func(bool)) (unsubscribe func())
}

type bootstrapService struct {
	api     api.Client
	cache   snapshots.Cache
	session SessionSource
	log     logging.Logger

	// freshFor is how long a held snapshot is served without revalidation.
	freshFor time.Duration

	mu         sync.Mutex
	state      LoadState
	snap       *models.Snapshot
	snapUserID string

	group singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(bool)
	nextSub int
}

// NewBootstrapService constructs the synchronizer.
func NewBootstrapService(apiClient api.Client, cache snapshots.Cache, session SessionSource, log logging.Logger) BootstrapService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &bootstrapService{
		api:      apiClient,
		cache:    cache,
		session:  session,
		log:      log,
		freshFor: common.SnapshotCacheTTL,
		subs:     make(map[int]func(bool)),
	}
}

func (b *bootstrapService) State() LoadState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// UpdateUser replaces the identity embedded in the held snapshot after a
// profile refresh. A no-op when no snapshot is held or the identity belongs
// to a different account.
func (b *bootstrapService) UpdateUser(user *models.UserSummary) {
	if user == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snap == nil || b.snapUserID != user.ID {
		return
	}
	b.snap.User = user
}

func (b *bootstrapService) Current() (models.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snap == nil {
		return models.Snapshot{}, false
	}
	return *b.snap, true
}

func (b *bootstrapService) OnLoadingChanged(fn func(bool)) func() {
	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
		})
	}
}

func (b *bootstrapService) notifyLoading(loading bool) {
	b.subMu.Lock()
	fns := make([]func(bool), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()
	for _, fn := range fns {
		fn(loading)
	}
}

// Load returns the consolidated snapshot.
//
// Decision table, in order:
//   - no session token: fail with common.ErrUnauthorized.
//   - authenticated user differs from the held snapshot's owner: the held
//     snapshot is dropped and a fetch is forced.
//   - not forced, snapshot held, fetch in flight: held snapshot, immediately.
//   - not forced, snapshot held and still fresh: held snapshot, immediately.
//   - otherwise: fetch (deduplicated via singleflight), merge over the held
//     snapshot, write through to the cache.
//
// background=true follows identical fetch semantics but does not emit
// loading-state notifications.
func (b *bootstrapService) Load(ctx context.Context, opts models.LoadOptions, force, background bool) (models.Snapshot, error) {
	sess := b.session.Current()
	if !sess.LoggedIn() {
		return models.Snapshot{}, fmt.Errorf("bootstrap load: %w", common.ErrUnauthorized)
	}

	b.mu.Lock()
	if b.snapUserID != "" && sess.UserID != "" && b.snapUserID != sess.UserID {
		// A different user logged in: the previous user's snapshot must
		// never be served, TTL or not.
		b.snap = nil
		b.snapUserID = ""
		b.state = StateIdle
		force = true
	}
	if !force && b.snap != nil {
		if b.state == StateLoading || time.Since(b.snap.FetchedAt) < b.freshFor {
			held := *b.snap
			b.mu.Unlock()
			return held, nil
		}
	}
	alreadyLoading := b.state == StateLoading
	b.state = StateLoading
	b.mu.Unlock()

	if !background && !alreadyLoading {
		b.notifyLoading(true)
		defer b.notifyLoading(false)
	}

	v, err, _ := b.group.Do("bootstrap", func() (any, error) {
		return b.fetch(ctx, opts, sess)
	})
	if err != nil {
		b.mu.Lock()
		if b.snap != nil {
			// Stale-but-available beats empty: keep serving the held
			// snapshot and recover the state machine.
			held := *b.snap
			b.state = StateLoaded
			b.mu.Unlock()
			b.log.Warn(ctx, "bootstrap fetch failed, serving held snapshot", "error", err)
			return held, nil
		}
		b.state = StateFailed
		b.mu.Unlock()
		return models.Snapshot{}, fmt.Errorf("bootstrap load: %w", err)
	}

	return v.(models.Snapshot), nil
}

// fetch performs the single network round trip and folds the result into the
// held snapshot. Runs inside the singleflight group.
func (b *bootstrapService) fetch(ctx context.Context, opts models.LoadOptions, sess Session) (models.Snapshot, error) {
	fresh, err := b.api.Bootstrap(ctx, opts)
	if err != nil {
		return models.Snapshot{}, err
	}

	b.mu.Lock()
	merged := mergeSnapshots(b.snap, *fresh)
	b.snap = &merged
	switch {
	case fresh.User != nil:
		b.snapUserID = fresh.User.ID
	default:
		b.snapUserID = sess.UserID
	}
	b.state = StateLoaded
	b.mu.Unlock()

	if err := b.cache.Set(ctx, merged); err != nil {
		b.log.Warn(ctx, "snapshot cache write failed", "error", err)
	}
	return merged, nil
}

func (b *bootstrapService) Refresh(ctx context.Context, opts models.LoadOptions) (models.Snapshot, error) {
	return b.Load(ctx, opts, true, false)
}

// Resume implements the cache-then-network protocol used on session restore:
// a synchronous cache read makes the last-known snapshot available before any
// network round trip, then a background fetch revalidates it. Returns the
// adopted cached snapshot, if any.
func (b *bootstrapService) Resume(ctx context.Context, opts models.LoadOptions) (models.Snapshot, bool) {
	sess := b.session.Current()
	if !sess.LoggedIn() {
		return models.Snapshot{}, false
	}

	var adopted models.Snapshot
	var ok bool
	entry, err := b.cache.Get(ctx)
	if err != nil {
		b.log.Warn(ctx, "snapshot cache read failed", "error", err)
	}
	if entry != nil {
		owner := ""
		if entry.Payload.User != nil {
			owner = entry.Payload.User.ID
		}
		if sess.UserID != "" && owner != "" && owner != sess.UserID {
			// Cached snapshot belongs to a previous user.
			if err := b.cache.Clear(ctx); err != nil {
				b.log.Warn(ctx, "snapshot cache clear failed", "error", err)
			}
		} else {
			b.mu.Lock()
			snap := entry.Payload
			b.snap = &snap
			b.snapUserID = owner
			b.state = StateLoaded
			b.mu.Unlock()
			adopted, ok = snap, true
		}
	}

	// Revalidate from the network regardless of the cache outcome. The
	// cached snapshot stays in place if the fetch fails.
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), api.DefaultRequestTimeout)
		defer cancel()
		if _, err := b.Load(bg, opts, true, true); err != nil {
			b.log.Warn(bg, "background snapshot revalidation failed", "error", err)
		}
	}()

	return adopted, ok
}

// Clear drops the held snapshot and the persistent cache entry. Called on
// logout.
func (b *bootstrapService) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.snap = nil
	b.snapUserID = ""
	b.state = StateIdle
	b.mu.Unlock()

	if err := b.cache.Clear(ctx); err != nil {
		return fmt.Errorf("bootstrap clear: %w", err)
	}
	return nil
}
