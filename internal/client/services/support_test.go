package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/spotterapp/spotter-go/internal/client/api"
	"github.com/spotterapp/spotter-go/internal/client/models"
)

// fakeAPI is a hand-rolled api.Client double.
type fakeAPI struct {
	mu    sync.Mutex
	token string

	loginRes    *api.AuthResult
	loginErr    error
	registerRes *api.AuthResult
	registerErr error
	meRes       *models.UserSummary
	meErr       error
	meCalls     int32

	bootstrapFn    func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error)
	bootstrapCalls int32
}

func (f *fakeAPI) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, payload api.RegisterPayload) (*api.AuthResult, error) {
	return f.registerRes, f.registerErr
}

func (f *fakeAPI) Me(ctx context.Context) (*models.UserSummary, error) {
	atomic.AddInt32(&f.meCalls, 1)
	return f.meRes, f.meErr
}

func (f *fakeAPI) Bootstrap(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
	atomic.AddInt32(&f.bootstrapCalls, 1)
	if f.bootstrapFn != nil {
		return f.bootstrapFn(ctx, opts)
	}
	return &models.Snapshot{}, nil
}

func (f *fakeAPI) calls() int {
	return int(atomic.LoadInt32(&f.bootstrapCalls))
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) Close() error { return nil }

// failStore is a tokens.Store whose every operation fails.
type failStore struct{}

var errStoreBroken = errors.New("store broken")

func (failStore) Get(ctx context.Context, key string) ([]byte, error) { return nil, errStoreBroken }
func (failStore) Set(ctx context.Context, key string, v []byte) error { return errStoreBroken }
func (failStore) Delete(ctx context.Context, key string) error        { return errStoreBroken }
func (failStore) Clear(ctx context.Context) error                     { return errStoreBroken }

// fakeCache is an in-memory snapshots.Cache.
type fakeCache struct {
	mu     sync.Mutex
	entry  *models.CacheEntry
	getErr error
	setErr error
	sets   int
	clears int
}

func (c *fakeCache) Get(ctx context.Context) (*models.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entry, nil
}

func (c *fakeCache) Set(ctx context.Context, snap models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.entry = &models.CacheEntry{Payload: snap, Timestamp: snap.FetchedAt.UnixMilli()}
	return nil
}

func (c *fakeCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	c.entry = nil
	return nil
}

// fixedSession is a static SessionSource.
type fixedSession struct {
	mu   sync.Mutex
	sess Session
}

func (s *fixedSession) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *fixedSession) set(sess Session) {
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
}
