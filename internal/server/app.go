// Package server wires the usermanager components together and runs them:
// credential store, token issuer, notification dispatcher and HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/config"
	"github.com/dmitrijs2005/usermanager/internal/server/identity"
	"github.com/dmitrijs2005/usermanager/internal/server/notify"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usermanager/internal/server/rest"
	"github.com/dmitrijs2005/usermanager/internal/server/services"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	dispatcher *notify.Dispatcher
	httpServer *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(c.LogBackend)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	store, err := app.initStore(ctx)
	if err != nil {
		return nil, err
	}

	app.dispatcher = notify.NewDispatcher(app.newSender(), logger, c.NotificationQueueSize, c.NotificationWorkers)

	key := []byte(c.SecretKey)
	issuer := auth.NewIssuer(key, c.TokenIssuer, c.TokenAudience, c.SessionTokenValidityDuration)
	parser := auth.NewParser(key, c.TokenIssuer, c.TokenAudience)

	svc := services.NewAuthenticationService(store, issuer, app.dispatcher, logger)
	app.httpServer = rest.NewServer(c.EndpointAddrHTTP, c.PublicBaseURL, logger, svc, parser, rest.NewMetrics())

	return app, nil
}

func (app *App) initStore(ctx context.Context) (identity.Store, error) {
	c := app.config
	hasher := identity.NewBcryptHasher(bcrypt.DefaultCost)

	var store identity.Store
	switch c.Storage {
	case config.StorageMemory:
		app.logger.Warn(ctx, "using in-memory storage, accounts are lost on restart")
		store = identity.NewMemoryStore(hasher, c.ConfirmationTokenValidityDuration)
	default:
		db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		app.db = db
		store = identity.NewPostgresStore(db, rm, hasher, c.ConfirmationTokenValidityDuration)
	}

	if c.RoleCacheTTL > 0 {
		store = identity.NewRoleCache(store, c.RoleCacheTTL)
	}
	return store, nil
}

func (app *App) newSender() notify.Sender {
	c := app.config
	if c.SMTPHost == "" {
		return notify.NewLogSender(app.logger.With("module", "notify"))
	}
	return notify.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a termination signal arrives, ctx is cancelled or a
// component fails. Pending notifications are flushed before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return app.httpServer.Run(gctx)
	})

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "closing database", "error", cerr)
		}
	}
	app.logger.Info(ctx, "App stopped")

	if z, ok := app.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}

	return err
}
