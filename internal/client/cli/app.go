package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spotterapp/spotter-go/internal/client/api"
	"github.com/spotterapp/spotter-go/internal/client/config"
	"github.com/spotterapp/spotter-go/internal/client/models"
	"github.com/spotterapp/spotter-go/internal/client/realtime"
	"github.com/spotterapp/spotter-go/internal/client/services"
	"github.com/spotterapp/spotter-go/internal/client/storage"
	"github.com/spotterapp/spotter-go/internal/logging"
)

type App struct {
	config    *config.Config
	sessions  services.SessionService
	bootstrap services.BootstrapService
	social    *realtime.Manager
	community *realtime.Manager
	repos     *storage.Repositories
	reader    *bufio.Reader
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {

	ctx := context.Background()

	deviceKey, err := storage.DeviceKey(c.DBPath)
	if err != nil {
		log.Printf("error preparing device key: %s", err.Error())
		return nil, err
	}

	repos, err := storage.InitDatabase(ctx, c.DBPath, deviceKey)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient := api.NewHTTPClient(c.APIBaseURL, c.RequestTimeout)

	ss := services.NewSessionService(apiClient, repos.Tokens, logger)
	bs := services.NewBootstrapService(apiClient, repos.Snapshots, ss, logger)

	token := func() string { return ss.Current().Token }
	transport := realtime.NewWebsocketTransport()
	social := realtime.NewManager(realtime.Config{Name: "social", URL: c.SocialSocketURL}, transport, token, logger)
	community := realtime.NewManager(realtime.Config{Name: "community", URL: c.CommunitySocketURL}, transport, token, logger)

	return &App{
		config:    c,
		sessions:  ss,
		bootstrap: bs,
		social:    social,
		community: community,
		repos:     repos,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Current().LoggedIn()
}

func (a *App) getStatus() string {
	s := ""
	sess := a.sessions.Current()
	if sess.User != nil {
		s = sess.User.Username
	} else if sess.LoggedIn() {
		s = "restoring"
	}
	if snap, ok := a.bootstrap.Current(); ok && snap.UnreadTotal() > 0 {
		s = fmt.Sprintf("%s *%d", s, snap.UnreadTotal())
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run restores the previous session, warms the snapshot, and enters the REPL.
// Blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.sessions.Restore(ctx)
	if a.isLoggedIn() {
		if _, ok := a.bootstrap.Resume(ctx, a.loadOptions()); ok {
			log.Println("Resumed from cached snapshot")
		}
		a.social.Connect(ctx)
		a.community.Connect(ctx)
	}

	log.Println("Welcome to Spotter CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// Close tears down the sockets and the database handle.
func (a *App) Close() {
	a.social.Disconnect()
	a.community.Disconnect()
	if a.repos != nil {
		_ = a.repos.Close()
	}
}

// loadOptions returns the pagination sizes used by the terminal views.
// Zero values fall back to the service defaults.
func (a *App) loadOptions() models.LoadOptions {
	return models.LoadOptions{}
}
