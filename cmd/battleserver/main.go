// Package main provides the battle server binary: the HTTP battle API with
// graceful shutdown and an optional PostgreSQL journal.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/turnbattle/internal/api"
	"github.com/cory-johannsen/turnbattle/internal/config"
	"github.com/cory-johannsen/turnbattle/internal/game/combat"
	"github.com/cory-johannsen/turnbattle/internal/game/content"
	"github.com/cory-johannsen/turnbattle/internal/observability"
	"github.com/cory-johannsen/turnbattle/internal/server"
	"github.com/cory-johannsen/turnbattle/internal/storage/postgres"
)

func main() {
	start := time.Now()
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reg, err := content.Load(cfg.Battle.ContentDir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded", zap.Strings("encounters", reg.EncounterIDs()))

	opts := api.Options{
		DefaultEncounter: cfg.Battle.Encounter,
		EnemyTargeting:   cfg.Battle.EnemyTargeting,
		MaxActions:       cfg.Battle.MaxActions,
		Logger:           logger,
	}
	if cfg.Journal.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		if err := pool.CheckSchema(ctx); err != nil {
			logger.Fatal("journal unavailable", zap.Error(err))
		}
		opts.Ping = func(ctx context.Context) error { return pool.Health(ctx, 2*time.Second) }
		journal := postgres.NewJournalRepository(pool.DB())
		opts.Journal = journal
		opts.History = journal
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(reg, combat.NewEngine(), opts)
	httpSrv := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	lc := server.NewLifecycle(logger)
	lc.Add("http", server.NewHTTPService(httpSrv, 5*time.Second, logger))

	logger.Info("battle server starting",
		zap.String("addr", cfg.API.Addr()),
		zap.Bool("journal", cfg.Journal.Enabled),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lc.Run(ctx); err != nil {
		logger.Fatal("battle server stopped", zap.Error(err))
	}
}
