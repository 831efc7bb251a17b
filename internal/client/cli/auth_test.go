package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/spotterapp/spotter-go/internal/client/api"
	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/client/realtime"
	"github.com/spotterapp/spotter-go/internal/client/services"
	"github.com/spotterapp/spotter-go/internal/logging"
)

func stubInputs(t *testing.T, text string, password string) func() {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return text, nil }
	getPassword = func(_ io.Writer) (string, error) { return password, nil }
	return func() {
		getSimpleText = origST
		getPassword = origGP
	}
}

type fakeSessions struct {
	session services.Session

	loginCreds   api.Credentials
	loginUser    *models.UserSummary
	loginErr     error
	regPayload   api.RegisterPayload
	logoutCalled bool
}

func (f *fakeSessions) Login(_ context.Context, creds api.Credentials) (*models.UserSummary, error) {
	f.loginCreds = creds
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.session = services.Session{Token: "tok", User: f.loginUser}
	if f.loginUser != nil {
		f.session.UserID = f.loginUser.ID
	}
	return f.loginUser, nil
}

func (f *fakeSessions) Register(_ context.Context, payload api.RegisterPayload) (*models.UserSummary, error) {
	f.regPayload = payload
	f.session = services.Session{Token: "tok", User: f.loginUser}
	return f.loginUser, nil
}

func (f *fakeSessions) Logout(context.Context) {
	f.logoutCalled = true
	f.session = services.Session{}
}

func (f *fakeSessions) RefreshUser(context.Context) (*models.UserSummary, error) {
	return f.session.User, nil
}
func (f *fakeSessions) Restore(context.Context)                {}
func (f *fakeSessions) Current() services.Session              { return f.session }
func (f *fakeSessions) OnChange(func(services.Session)) func() { return func() {} }

type fakeBootstrap struct {
	snap        models.Snapshot
	loadErr     error
	clearCalled bool
}

func (f *fakeBootstrap) Load(context.Context, models.LoadOptions, bool, bool) (models.Snapshot, error) {
	return f.snap, f.loadErr
}
func (f *fakeBootstrap) Refresh(context.Context, models.LoadOptions) (models.Snapshot, error) {
	return f.snap, f.loadErr
}
func (f *fakeBootstrap) Resume(context.Context, models.LoadOptions) (models.Snapshot, bool) {
	return f.snap, false
}
func (f *fakeBootstrap) Clear(context.Context) error {
	f.clearCalled = true
	return nil
}
func (f *fakeBootstrap) UpdateUser(user *models.UserSummary) { f.snap.User = user }
func (f *fakeBootstrap) Current() (models.Snapshot, bool)    { return f.snap, false }
func (f *fakeBootstrap) State() services.LoadState           { return services.StateIdle }
func (f *fakeBootstrap) OnLoadingChanged(func(bool)) func()  { return func() {} }

type noTransport struct{}

func (noTransport) Dial(context.Context, string, string) (realtime.Conn, error) {
	return nil, errors.New("no transport in tests")
}

func testApp(sessions *fakeSessions, bootstrap *fakeBootstrap) *App {
	cfg := realtime.Config{Name: "test", URL: "ws://invalid"}
	// Token func returns "" so Connect is a no-op in tests.
	noToken := func() string { return "" }
	return &App{
		sessions:  sessions,
		bootstrap: bootstrap,
		social:    realtime.NewManager(cfg, noTransport{}, noToken, logging.NewNopLogger()),
		community: realtime.NewManager(cfg, noTransport{}, noToken, logging.NewNopLogger()),
	}
}

func TestLogin_Success(t *testing.T) {
	f := &fakeSessions{loginUser: &models.UserSummary{ID: "u1", Username: "alice"}}
	b := &fakeBootstrap{}
	a := testApp(f, b)

	restore := stubInputs(t, "alice@example.org", "secret")
	defer restore()

	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if f.loginCreds.Email != "alice@example.org" || f.loginCreds.Password != "secret" {
		t.Fatalf("credentials mismatch: %+v", f.loginCreds)
	}
	if !a.isLoggedIn() {
		t.Fatal("expected logged-in state")
	}
}

func TestLogin_ErrorPropagates(t *testing.T) {
	f := &fakeSessions{loginErr: errors.New("bad credentials")}
	a := testApp(f, &fakeBootstrap{})

	restore := stubInputs(t, "alice@example.org", "wrong")
	defer restore()

	if err := a.Login(context.Background()); err == nil {
		t.Fatal("want error from Login")
	}
	if a.isLoggedIn() {
		t.Fatal("must stay logged out after failed login")
	}
}

func TestRegister_PassesPayload(t *testing.T) {
	f := &fakeSessions{loginUser: &models.UserSummary{ID: "u1", Username: "alice"}}
	a := testApp(f, &fakeBootstrap{})

	restore := stubInputs(t, "alice", "secret")
	defer restore()

	if err := a.Register(context.Background()); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if f.regPayload.Password != "secret" {
		t.Fatalf("payload mismatch: %+v", f.regPayload)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := &fakeSessions{session: services.Session{Token: "tok"}}
	b := &fakeBootstrap{}
	a := testApp(f, b)

	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if !f.logoutCalled {
		t.Fatal("session Logout not called")
	}
	if !b.clearCalled {
		t.Fatal("bootstrap Clear not called")
	}
	if a.isLoggedIn() {
		t.Fatal("must be logged out")
	}
}
