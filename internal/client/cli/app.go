package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/client/api"
	"github.com/dmitrijs2005/usermanager/internal/client/config"
)

// apiClient is the subset of api.Client the commands use.
type apiClient interface {
	Register(ctx context.Context, username, email, password, role string) (*api.Envelope, error)
	ConfirmEmail(ctx context.Context, token, email string) (*api.Envelope, error)
	Login(ctx context.Context, email, password string) (*api.Session, error)
	Me(ctx context.Context, token string) (*api.Profile, error)
}

type App struct {
	config    *config.Config
	client    apiClient
	reader    *bufio.Reader
	out       io.Writer
	email     string
	token     string
	expiresAt time.Time
}

func NewApp(c *config.Config) (*App, error) {
	client, err := api.NewClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return &App{config: c, client: client, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	return a.token != "" && time.Now().Before(a.expiresAt)
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(" + a.email + ")"
	}
	return ""
}

// Run starts the REPL on stdin and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to usermanager CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
