package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/db"
	fghttp "github.com/yungbote/fraudguard-backend/internal/http"
	"github.com/yungbote/fraudguard-backend/internal/jobs/worker"
	"github.com/yungbote/fraudguard-backend/internal/observability"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
	"github.com/yungbote/fraudguard-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Router   *gin.Engine
	Relay    *worker.Worker
	Temporal *temporalworker.Runner

	dbService    *db.DatabaseService
	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects using cfg.DB and migrates when cfg.AutoMigrate is set.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.DatabaseService, error) {
	svc, err := db.NewDatabaseService(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := svc.AutoMigrateAll(); err != nil {
			_ = svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	dbService, err := OpenDatabase(log, cfg)
	if err != nil {
		return nil, err
	}
	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbService.Close()
		return nil, err
	}

	a, err := build(log, cfg, dbService.DB(), clients)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		return nil, err
	}
	a.dbService = dbService
	a.otelShutdown = shutdown
	return a, nil
}

func build(log *logger.Logger, cfg Config, theDB *gorm.DB, clients Clients) (*App, error) {
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	relay, runner, err := wireRelay(theDB, log, cfg, reposet, serviceset, clients)
	if err != nil {
		return nil, err
	}
	sqlDB, err := theDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	handlerset := wireHandlers(log, sqlDB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		Router:   router,
		Relay:    relay,
		Temporal: runner,
	}, nil
}

// Run serves HTTP and drains the dispatch outbox until ctx is cancelled or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	server := &fghttp.Server{Engine: a.Router}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
		return server.Run(gctx, a.Cfg.Addr())
	})

	a.Relay.Start(gctx)
	g.Go(func() error {
		a.Relay.Wait()
		return nil
	})

	if a.Temporal != nil {
		g.Go(func() error { return a.Temporal.Start(gctx) })
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil && a.Log != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
