package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spotterapp/spotter-go/internal/client/api"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, username and password and creates a new
// account. On success the session is live and the snapshot is loaded.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.sessions.Register(ctx, api.RegisterPayload{Email: email, Username: username, Password: password})
	if err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	fmt.Printf("Welcome, %s!\n", user.Username)
	a.afterLogin(ctx)
	return nil
}

// Login prompts for credentials and authenticates. On success it loads the
// snapshot and connects the event streams.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.sessions.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Logged in as %s", user.Username)
	a.afterLogin(ctx)
	return nil
}

// afterLogin warms the snapshot and brings the sockets up.
func (a *App) afterLogin(ctx context.Context) {
	if _, err := a.bootstrap.Load(ctx, a.loadOptions(), false, false); err != nil {
		log.Printf("Initial load failed: %s", err.Error())
	}
	a.social.Connect(ctx)
	a.community.Connect(ctx)
}

// Logout drops the sockets, clears the cached snapshot, and forgets the
// session. Always succeeds from the user's point of view.
func (a *App) Logout(ctx context.Context) error {
	a.social.Disconnect()
	a.community.Disconnect()
	if err := a.bootstrap.Clear(ctx); err != nil {
		log.Printf("Cache clear failed: %s", err.Error())
	}
	a.sessions.Logout(ctx)
	fmt.Println("Logged out")
	return nil
}

// Whoami re-reads the profile from the backend and prints it, falling back to
// the cached identity when the backend is unreachable.
func (a *App) Whoami(ctx context.Context) error {
	sess := a.sessions.Current()
	if !sess.LoggedIn() {
		fmt.Println("Not logged in")
		return nil
	}

	user, err := a.sessions.RefreshUser(ctx)
	if err != nil {
		log.Printf("Profile refresh failed: %s", err.Error())
		user = sess.User
	} else {
		a.bootstrap.UpdateUser(user)
	}

	if user == nil {
		fmt.Printf("Logged in (user %s, profile not loaded)\n", sess.UserID)
		return nil
	}
	fmt.Printf("%s (%s)\n", user.Username, user.DisplayName)
	return nil
}
