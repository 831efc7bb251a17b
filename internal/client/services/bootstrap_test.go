package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/common"
)

func snapshotFor(userID string) *models.Snapshot {
	return &models.Snapshot{
		User:      &models.UserSummary{ID: userID},
		FetchedAt: time.Now(),
	}
}

func newBootstrap(f *fakeAPI, c *fakeCache, userID string) (BootstrapService, *fixedSession) {
	sess := &fixedSession{}
	if userID != "" {
		sess.set(Session{Token: "tok", UserID: userID})
	}
	return NewBootstrapService(f, c, sess, nil), sess
}

func TestLoad_Unauthenticated_Fails(t *testing.T) {
	svc, _ := newBootstrap(&fakeAPI{}, &fakeCache{}, "")

	_, err := svc.Load(context.Background(), models.LoadOptions{}, false, false)
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLoad_FetchesOnceThenServesHeld(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}}
	cache := &fakeCache{}
	svc, _ := newBootstrap(f, cache, "u1")
	ctx := context.Background()

	first, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	require.Equal(t, "u1", first.User.ID)
	require.Equal(t, 1, f.calls())
	require.Equal(t, StateLoaded, svc.State())

	// A fresh held snapshot short-circuits the network entirely.
	_, err = svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls())

	// Write-through to the persistent cache happened exactly once.
	assert.Equal(t, 1, cache.sets)
}

func TestLoad_ForceAlwaysFetches(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, models.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls())
}

func TestLoad_ConcurrentCallersShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		<-release
		return snapshotFor("u1"), nil
	}}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	results := make([]models.Snapshot, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Load(ctx, models.LoadOptions{}, false, false)
		}(i)
	}

	// Give all callers time to reach the in-flight fetch, then let it finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, f.calls(), "exactly one network request for N concurrent loads")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].User)
		assert.Equal(t, "u1", results[i].User.ID)
	}
}

func TestLoad_WhileInFlight_ReturnsHeldImmediately(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	call := 0
	f := &fakeAPI{}
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		call++
		if call > 1 {
			close(started)
			<-release
		}
		return snapshotFor("u1"), nil
	}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	// Seed a held snapshot, then start a slow forced refresh.
	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Refresh(ctx, models.LoadOptions{})
	}()
	<-started

	// A non-forced load during the in-flight refresh returns the held
	// snapshot without queueing another request.
	snap, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, 2, f.calls())

	close(release)
	<-done
}

func TestLoad_ErrorWithHeldSnapshot_ServesStale(t *testing.T) {
	healthy := true
	f := &fakeAPI{}
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		if !healthy {
			return nil, errors.New("gateway timeout")
		}
		return snapshotFor("u1"), nil
	}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)

	healthy = false
	snap, err := svc.Refresh(ctx, models.LoadOptions{})
	require.NoError(t, err, "stale-but-available beats empty")
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, StateLoaded, svc.State())
}

func TestLoad_ErrorWithoutSnapshot_Propagates(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return nil, errors.New("network down")
	}}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")

	_, err := svc.Load(context.Background(), models.LoadOptions{}, false, false)
	require.Error(t, err)
	assert.Equal(t, StateFailed, svc.State())

	// The state machine recovers on the next successful load.
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}
	_, err = svc.Load(context.Background(), models.LoadOptions{}, false, false)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, svc.State())
}

func TestLoad_UserChange_ForcesFreshFetch(t *testing.T) {
	current := "u1"
	f := &fakeAPI{}
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor(current), nil
	}
	svc, sess := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)

	// User B logs in; the held (still fresh) snapshot belongs to A and
	// must not be reused.
	current = "u2"
	sess.set(Session{Token: "tok2", UserID: "u2"})

	snap, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "u2", snap.User.ID)
	assert.Equal(t, 2, f.calls())
}

func TestResume_AdoptsCacheThenRevalidates(t *testing.T) {
	fetched := make(chan struct{})
	f := &fakeAPI{}
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		defer close(fetched)
		s := snapshotFor("u1")
		s.Notifications.UnreadCount = 9
		return s, nil
	}
	cached := models.Snapshot{
		User:          &models.UserSummary{ID: "u1"},
		Notifications: models.Notifications{UnreadCount: 2},
	}
	cache := &fakeCache{entry: &models.CacheEntry{Payload: cached, Timestamp: time.Now().UnixMilli()}}
	svc, _ := newBootstrap(f, cache, "u1")

	snap, ok := svc.Resume(context.Background(), models.LoadOptions{})
	require.True(t, ok, "cached snapshot adopted synchronously")
	assert.Equal(t, 2, snap.Notifications.UnreadCount)

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never fired")
	}

	require.Eventually(t, func() bool {
		cur, ok := svc.Current()
		return ok && cur.Notifications.UnreadCount == 9
	}, 2*time.Second, 10*time.Millisecond, "network result replaces the cached snapshot")
}

func TestResume_NetworkFailureKeepsCachedSnapshot(t *testing.T) {
	fetched := make(chan struct{})
	f := &fakeAPI{}
	f.bootstrapFn = func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		defer close(fetched)
		return nil, errors.New("offline")
	}
	cache := &fakeCache{entry: &models.CacheEntry{
		Payload:   models.Snapshot{User: &models.UserSummary{ID: "u1"}},
		Timestamp: time.Now().UnixMilli(),
	}}
	svc, _ := newBootstrap(f, cache, "u1")

	_, ok := svc.Resume(context.Background(), models.LoadOptions{})
	require.True(t, ok)

	<-fetched
	require.Eventually(t, func() bool {
		cur, ok := svc.Current()
		return ok && cur.User.ID == "u1"
	}, 2*time.Second, 10*time.Millisecond, "cached snapshot stays when revalidation fails")
}

func TestResume_CachedSnapshotOfOtherUser_NotAdopted(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u2"), nil
	}}
	cache := &fakeCache{entry: &models.CacheEntry{
		Payload:   models.Snapshot{User: &models.UserSummary{ID: "u1"}},
		Timestamp: time.Now().UnixMilli(),
	}}
	svc, _ := newBootstrap(f, cache, "u2")

	_, ok := svc.Resume(context.Background(), models.LoadOptions{})
	assert.False(t, ok, "user B must never see user A's cache")
	assert.Equal(t, 1, cache.clears)
}

func TestResume_LoggedOut_NoOp(t *testing.T) {
	f := &fakeAPI{}
	svc, _ := newBootstrap(f, &fakeCache{}, "")

	_, ok := svc.Resume(context.Background(), models.LoadOptions{})
	assert.False(t, ok)
	assert.Equal(t, 0, f.calls())
}

func TestUpdateUser_ReplacesEmbeddedIdentity(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)

	svc.UpdateUser(&models.UserSummary{ID: "u1", Username: "alice", DisplayName: "Alice B"})

	snap, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Alice B", snap.User.DisplayName)

	// Identities from a different account are ignored.
	svc.UpdateUser(&models.UserSummary{ID: "u2", Username: "mallory"})
	snap, _ = svc.Current()
	assert.Equal(t, "alice", snap.User.Username)

	svc.UpdateUser(nil)
	snap, _ = svc.Current()
	assert.NotNil(t, snap.User)
}

func TestClear_DropsHeldAndPersistentState(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}}
	cache := &fakeCache{}
	svc, _ := newBootstrap(f, cache, "u1")
	ctx := context.Background()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))

	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, svc.State())
	assert.Equal(t, 1, cache.clears)
}

func TestOnLoadingChanged_BackgroundLoadIsSilent(t *testing.T) {
	f := &fakeAPI{bootstrapFn: func(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
		return snapshotFor("u1"), nil
	}}
	svc, _ := newBootstrap(f, &fakeCache{}, "u1")
	ctx := context.Background()

	var mu sync.Mutex
	var events []bool
	unsub := svc.OnLoadingChanged(func(loading bool) {
		mu.Lock()
		events = append(events, loading)
		mu.Unlock()
	})
	defer unsub()

	_, err := svc.Load(ctx, models.LoadOptions{}, false, false)
	require.NoError(t, err)
	mu.Lock()
	require.Equal(t, []bool{true, false}, events)
	mu.Unlock()

	// Background refresh follows identical fetch semantics but stays quiet.
	_, err = svc.Load(ctx, models.LoadOptions{}, true, true)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []bool{true, false}, events)
	mu.Unlock()
}
