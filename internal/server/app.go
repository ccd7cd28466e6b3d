// Package server initializes and runs the application: it wires config,
// logging, the database with migrations, blob storage, the services, and the
// HTTP server, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/willtrail/willtrail/internal/cryptox"
	"github.com/willtrail/willtrail/internal/logging"
	"github.com/willtrail/willtrail/internal/server/blobstore"
	"github.com/willtrail/willtrail/internal/server/config"
	"github.com/willtrail/willtrail/internal/server/httpapi"
	"github.com/willtrail/willtrail/internal/server/repositories/repomanager"
	"github.com/willtrail/willtrail/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var blobs blobstore.Store
	if cfg.BlobStoreKind == "s3" {
		s3store, err := blobstore.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("blob store init error: %w", err)
		}
		blobs = s3store
	}

	envelope := cryptox.NewEnvelope(cfg.EncryptionSecret)

	us := services.NewUserService(db, rm, cfg)
	ds := services.NewDirectiveService(db, rm, cfg)
	docs := services.NewDocumentService(db, rm, envelope, blobs, logger)

	api := httpapi.NewServer(cfg, logger, us, ds, docs)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
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

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting app")

	if err := app.api.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "app stopped")
}
