// Package server wires the docsync server: PostgreSQL storage with embedded
// migrations, the application services, and the HTTP/websocket endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/server/config"
	"github.com/mihailsb/docsync/internal/server/httpapi"
	"github.com/mihailsb/docsync/internal/server/repositories/repomanager"
	"github.com/mihailsb/docsync/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	hub := httpapi.NewHub(logger)
	us := services.NewUserService(db, rm, c)
	ds := services.NewDocumentService(db, rm, hub)

	srv := httpapi.NewServer(c.EndpointAddr, c.SecretKey, us, ds, hub, logger)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
