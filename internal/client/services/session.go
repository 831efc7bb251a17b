// Package services contains the application services of the Spotter client
// core: the session service (token lifecycle and identity) and the bootstrap
// service (consolidated snapshot synchronization).
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/spotterapp/spotter-go/internal/client/api"
	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/client/repositories/tokens"
	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/logging"
)

// Session is a read-only view of the current session state. A zero Session
// means logged out. Token implies identity: when Token is empty, User is nil.
type Session struct {
	Token        string
	UserID       string
	User         *models.UserSummary
	Initializing bool
}

// LoggedIn reports whether a token is held.
func (s Session) LoggedIn() bool { return s.Token != "" }

// SessionService owns the auth token and current user identity.
//
// Contract:
//   - Login/Register: authenticate, fail with common.ErrNoToken when the
//     backend envelope omits a token.
//   - Logout: always succeeds locally; clears the store, the in-memory value,
//     and the API client token, then notifies subscribers.
//   - RefreshUser: re-reads identity; a no-op without a token.
//   - Restore: startup-only; adopts a persisted token without re-authenticating.
type SessionService interface {
	Login(ctx context.Context, creds api.Credentials) (*models.UserSummary, error)
	Register(ctx context.Context, payload api.RegisterPayload) (*models.UserSummary, error)
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) (*models.UserSummary, error)
	Restore(ctx context.Context)
	Current() Session
	OnChange(fn func(Session)) (unsubscribe func())
}

type sessionService struct {
	api   api.Client
	store tokens.Store
	log   logging.Logger

	mu      sync.Mutex
	session Session
	subs    map[int]func(Session)
	nextSub int

	// persistTimeout bounds the fire-and-forget store writes.
	persistTimeout time.Duration
	// wg tracks in-flight background persists so tests can drain them.
	wg sync.WaitGroup
}

// NewSessionService constructs a SessionService bound to the given API client
// and secure token store.
func NewSessionService(apiClient api.Client, store tokens.Store, log logging.Logger) SessionService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &sessionService{
		api:            apiClient,
		store:          store,
		log:            log,
		session:        Session{Initializing: true},
		subs:           make(map[int]func(Session)),
		persistTimeout: 5 * time.Second,
	}
}

func (s *sessionService) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *sessionService) OnChange(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// setSession installs the new session state and notifies subscribers outside
// the lock. The API client token is updated in the same step so outgoing
// requests never observe a half-applied change.
func (s *sessionService) setSession(next Session) {
	s.mu.Lock()
	s.session = next
	s.api.SetToken(next.Token)
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// persistToken writes the token to the secure store without blocking the
// caller. A failed write is logged; the in-memory token stays authoritative
// for the rest of the process lifetime.
func (s *sessionService) persistToken(token string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		var err error
		if token == "" {
			err = s.store.Delete(ctx, common.TokenKeyUser)
		} else {
			err = s.store.Set(ctx, common.TokenKeyUser, []byte(token))
		}
		if err != nil {
			s.log.Warn(ctx, "token store write failed, keeping in-memory token", "error", err)
		}
	}()
}

func (s *sessionService) adopt(res *api.AuthResult) (*models.UserSummary, error) {
	if res.Token == "" {
		return nil, fmt.Errorf("auth response: %w", common.ErrNoToken)
	}

	userID := ""
	if res.User != nil {
		userID = res.User.ID
	}
	s.setSession(Session{Token: res.Token, UserID: userID, User: res.User})
	s.persistToken(res.Token)
	return res.User, nil
}

func (s *sessionService) Login(ctx context.Context, creds api.Credentials) (*models.UserSummary, error) {
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.adopt(res)
}

func (s *sessionService) Register(ctx context.Context, payload api.RegisterPayload) (*models.UserSummary, error) {
	res, err := s.api.Register(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.adopt(res)
}

func (s *sessionService) Logout(ctx context.Context) {
	if err := s.store.Delete(ctx, common.TokenKeyUser); err != nil {
		// Logout never fails: the in-memory clear below is what matters
		// for the current process.
		s.log.Warn(ctx, "token store delete failed on logout", "error", err)
	}
	s.setSession(Session{})
}

func (s *sessionService) RefreshUser(ctx context.Context) (*models.UserSummary, error) {
	cur := s.Current()
	if !cur.LoggedIn() {
		return nil, nil
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh user: %w", err)
	}

	cur = s.Current()
	s.setSession(Session{Token: cur.Token, UserID: user.ID, User: user})
	return user, nil
}

// Restore reads the persisted token at startup. A store read failure is
// treated as logged-out (fail safe). The token is adopted without calling the
// backend; the bootstrap service loads the user data afterwards, which avoids
// a duplicate who-am-I round trip. The user ID is recovered from the token's
// JWT claims when they parse; verification is the server's job.
func (s *sessionService) Restore(ctx context.Context) {
	raw, err := s.store.Get(ctx, common.TokenKeyUser)
	if err != nil {
		s.log.Warn(ctx, "token store read failed, starting logged out", "error", err)
		s.setSession(Session{})
		return
	}
	if len(raw) == 0 {
		s.setSession(Session{})
		return
	}

	token := string(raw)
	userID, expired := claimsFromToken(token)
	if expired {
		s.log.Info(ctx, "persisted token expired, starting logged out")
		s.persistToken("")
		s.setSession(Session{})
		return
	}

	s.setSession(Session{Token: token, UserID: userID})
}

// claimsFromToken extracts the subject and expiry from a JWT without
// verifying the signature. Opaque (non-JWT) tokens yield no user ID and are
// adopted as-is.
func claimsFromToken(token string) (userID string, expired bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	if sub, err := claims.GetSubject(); err == nil {
		userID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expired = exp.Before(time.Now())
	}
	return userID, expired
}
