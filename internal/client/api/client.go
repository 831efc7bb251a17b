package api

import (
	"context"

	"github.com/spotterapp/spotter-go/internal/client/models"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload is the registration request body.
type RegisterPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is the unwrapped auth envelope: the bearer token (possibly empty
// when the backend misbehaves) and the user identity.
type AuthResult struct {
	Token string
	User  *models.UserSummary
}

// Client is the backend API surface the client core depends on. The live
// implementation is HTTPClient; tests substitute fakes.
type Client interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, payload RegisterPayload) (*AuthResult, error)
	Me(ctx context.Context) (*models.UserSummary, error)
	Bootstrap(ctx context.Context, opts models.LoadOptions) (*models.Snapshot, error)

	// SetToken installs the bearer token attached to all subsequent
	// authenticated requests. An empty string clears it.
	SetToken(token string)
	Token() string

	Close() error
}
