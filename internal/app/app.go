package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/novaplay/spinboard/internal/config"
	"github.com/novaplay/spinboard/internal/domain/leaderboard"
	"github.com/novaplay/spinboard/internal/domain/player"
	"github.com/novaplay/spinboard/internal/domain/spin"
	"github.com/novaplay/spinboard/internal/infrastructure/notifier"
	"github.com/novaplay/spinboard/internal/infrastructure/repository/memory"
	"github.com/novaplay/spinboard/internal/infrastructure/repository/postgres"
	"github.com/novaplay/spinboard/internal/interfaces/httpapi"
	"github.com/novaplay/spinboard/internal/platform/cache"
	idgen "github.com/novaplay/spinboard/internal/platform/id"
	"github.com/novaplay/spinboard/internal/platform/logging"
	"github.com/novaplay/spinboard/internal/platform/resilience"
	"github.com/novaplay/spinboard/internal/usecase"
)

// App owns the wired service graph and its background workers.
type App struct {
	Server *http.Server

	logger *logging.Logger
	db     *sqlx.DB
	engine *usecase.Engine
	hub    *usecase.Broadcaster
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		metaRepo   leaderboard.Repository
		playerRepo player.Repository
		ledger     spin.Ledger
		db         *sqlx.DB
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		var err error
		db, err = otelsqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		metaRepo = postgres.NewLeaderboardRepository(db)
		playerRepo = postgres.NewPlayerRepository(db)
		ledger = postgres.NewSpinLedger(db)
	default:
		metaRepo = memory.NewLeaderboardRepository(nil)
		playerRepo = memory.NewPlayerRepository()
		ledger = memory.NewSpinLedger()
	}

	hub := usecase.NewBroadcaster(usecase.BroadcasterConfig{
		QueueSize:   cfg.BroadcastQueueSize,
		MinInterval: cfg.BroadcastMinInterval,
	}, logger)
	engine := usecase.NewEngine(usecase.EngineConfig{
		QueueSize:      cfg.EngineQueueSize,
		BatchMax:       cfg.EngineBatchMax,
		RestoreWorkers: cfg.EngineRestoreWorkers,
	}, ledger, hub, logger)

	idGen := idgen.NewRandomGenerator()
	leaderboardSvc := usecase.NewLeaderboardService(metaRepo, playerRepo, engine, idGen)
	spinSvc := usecase.NewSpinService(ledger, metaRepo, playerRepo, engine, idGen, cfg.RequireRegistration)

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}
	snapshotSvc := usecase.NewSnapshotService(engine, store)

	var webhook *notifier.Webhook
	if cfg.WebhookEnabled {
		var err error
		webhook, err = notifier.NewWebhook(notifier.WebhookConfig{
			TargetURL: cfg.WebhookTargetURL,
			AuthToken: cfg.WebhookAuthToken,
			Timeout:   cfg.WebhookTimeout,
			TopRows:   cfg.WebhookTopRows,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMax,
			},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("build webhook notifier: %w", err)
		}
		leaderboardSvc.NotifySnapshots(hub, webhook)
	}

	// Cold start: register every stored leaderboard and replay its
	// ledger into a fresh ranking index.
	metas, err := metaRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leaderboards for restore: %w", err)
	}
	if err := engine.Restore(ctx, metas); err != nil {
		return nil, fmt.Errorf("restore ranking state: %w", err)
	}
	if webhook != nil {
		for _, meta := range metas {
			if _, err := hub.Subscribe(meta.ID, webhook); err != nil {
				return nil, fmt.Errorf("subscribe webhook for leaderboard %s: %w", meta.ID, err)
			}
		}
	}
	if len(metas) > 0 {
		logger.InfoContext(ctx, "ranking state restored", "leaderboards", len(metas))
	}

	handler := httpapi.NewHandler(leaderboardSvc, spinSvc, snapshotSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server: server,
		logger: logger,
		db:     db,
		engine: engine,
		hub:    hub,
	}, nil
}

// Shutdown drains the HTTP server, stops the board workers and closes
// the broadcaster before releasing the database.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			firstErr = fmt.Errorf("shutdown http server: %w", err)
		}
	}

	a.engine.Close()
	a.hub.Close()

	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close database: %w", err)
		}
	}

	return firstErr
}
