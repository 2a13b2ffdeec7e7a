// Package server initializes and runs the filevault application server.
// It opens the database, applies migrations, selects the blob backend,
// wires the services and serves the HTTP API until shutdown.
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

	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/blob"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/mail"
	"github.com/apetrenko/filevault/internal/server/repositories/repomanager"
	"github.com/apetrenko/filevault/internal/server/rest"
	"github.com/apetrenko/filevault/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
	})

	userSvc := services.NewUserService(db, m, mailer, logger, cfg)
	fileSvc := services.NewFileService(db, m, store, cfg)
	capSvc := services.NewCapabilityService(db, m, cfg)

	handlers := rest.NewHandlers(userSvc, fileSvc, capSvc, logger, cfg.PublicBaseURL)
	authmw := rest.NewAuthMiddleware(userSvc, []byte(cfg.SecretKey), logger)
	srv := rest.NewServer(cfg.EndpointAddr, handlers, authmw, logger, dbPinger{db}, store)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

type dbPinger struct{ db *sql.DB }

func (p dbPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	case "disk":
		return blob.NewDiskStore(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
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

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr, "blob_backend", app.config.BlobBackend)

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
