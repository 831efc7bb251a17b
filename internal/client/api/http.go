package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/common"
)

// DefaultRequestTimeout bounds interactive calls. Uploads go through a
// different path and are out of scope here.
const DefaultRequestTimeout = 12 * time.Second

// HTTPClient talks JSON over HTTP to the Spotter backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// authEnvelope is the backend's auth response. The token key has varied
// between backend versions, so both spellings are accepted; the user may be
// nested or spread at the top level.
type authEnvelope struct {
	Token       string              `json:"token"`
	AccessToken string              `json:"accessToken"`
	User        *models.UserSummary `json:"user"`

	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (e *authEnvelope) bearer() string {
	if e.Token != "" {
		return e.Token
	}
	return e.AccessToken
}

func (e *authEnvelope) userSummary() *models.UserSummary {
	if e.User != nil {
		return e.User
	}
	if e.ID == "" {
		return nil
	}
	return &models.UserSummary{ID: e.ID, Username: e.Username, DisplayName: e.DisplayName}
}

func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, "/login", creds, &env); err != nil {
		return nil, err
	}
	return &AuthResult{Token: env.bearer(), User: env.userSummary()}, nil
}

func (c *HTTPClient) Register(ctx context.Context, payload RegisterPayload) (*AuthResult, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodPost, "/register", payload, &env); err != nil {
		return nil, err
	}
	return &AuthResult{Token: env.bearer(), User: env.userSummary()}, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.UserSummary, error) {
	var env authEnvelope
	if err := c.do(ctx, http.MethodGet, "/me", nil, &env); err != nil {
		return nil, err
	}
	user := env.userSummary()
	if user == nil {
		return nil, fmt.Errorf("me: empty identity in response: %w", common.ErrInternal)
	}
	return user, nil
}

func (c *HTTPClient) Bootstrap(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error) {
	opts = opts.Normalize()

	q := url.Values{}
	q.Set("feedLimit", strconv.Itoa(opts.FeedLimit))
	q.Set("feedOffset", strconv.Itoa(opts.FeedOffset))
	q.Set("conversationsLimit", strconv.Itoa(opts.ConversationsLimit))
	q.Set("notificationsLimit", strconv.Itoa(opts.NotificationsLimit))

	var snap models.Snapshot
	if err := c.do(ctx, http.MethodGet, "/bootstrap?"+q.Encode(), nil, &snap); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return &snap, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorBody is the backend's error payload shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *HTTPClient) mapError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, common.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		// Some backend versions hide auth failures behind 404.
		if looksLikeAuthProblem(eb) {
			return fmt.Errorf("%s %s: %w", method, path, common.ErrUnauthorized)
		}
		return fmt.Errorf("%s %s: %w", method, path, common.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, common.ErrUnavailable)
	default:
		return fmt.Errorf("%s %s: status %d %s: %w", method, path, resp.StatusCode, eb.Error, common.ErrInternal)
	}
}

func looksLikeAuthProblem(eb errorBody) bool {
	for _, s := range []string{eb.Error, eb.Code} {
		s = strings.ToLower(s)
		if strings.Contains(s, "token") || strings.Contains(s, "unauthorized") || strings.Contains(s, "auth") {
			return true
		}
	}
	return false
}
