package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/handlers"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/services/assistant"
	"github.com/ternarybob/docbro/internal/services/batch"
	"github.com/ternarybob/docbro/internal/services/crawler"
	"github.com/ternarybob/docbro/internal/services/embedding"
	"github.com/ternarybob/docbro/internal/services/scheduler"
	"github.com/ternarybob/docbro/internal/storage/badger"
)

// App wires the storage, services and handlers together. Everything is
// constructed explicitly here; nothing reaches for globals.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Store interfaces.StorageManager

	Engine       *crawler.Engine
	Embedding    *embedding.Service
	Assistant    *assistant.Service
	Scheduler    *scheduler.Service
	Orchestrator *batch.Orchestrator

	Hub        *handlers.WebSocketHub
	APIHandler *handlers.APIHandler

	server *http.Server
}

// New opens the store and builds every service. The embedding and assistant
// services tolerate missing API keys; crawl-only usage never needs one.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	dataDir, err := common.ResolveDataDir(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	config.DataDir = dataDir
	if config.Storage.Badger.Path == "" {
		config.Storage.Badger.Path = filepath.Join(dataDir, "db")
	}

	store, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	embeddingService, err := embedding.NewService(ctx, store, &config.Embedding, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	app := &App{
		Config:    config,
		Logger:    logger,
		Store:     store,
		Engine:    crawler.NewEngine(store, config.Crawler, logger),
		Embedding: embeddingService,
		Assistant: assistant.NewService(store, embeddingService, &config.Assistant, logger),
		Hub:       handlers.NewWebSocketHub(logger, &config.WebSocket),
	}

	var indexer batch.ProjectIndexer
	if embeddingService.Enabled() {
		indexer = embeddingService
	}
	app.Orchestrator = batch.NewOrchestrator(store, config, logger, indexer)
	app.Scheduler = scheduler.NewService(store, config, logger, indexer)
	app.APIHandler = handlers.NewAPIHandler(store, app.Engine, embeddingService, app.Hub, logger)
	return app, nil
}

// Serve runs the HTTP API until the context is cancelled. The scheduler
// starts alongside it when enabled.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	a.APIHandler.Register(mux)

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	a.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errs <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("HTTP server shutdown failed")
		}
		return nil
	case err := <-errs:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close stops background services and the store.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Engine != nil && a.Engine.Running() {
		a.Logger.Warn().Msg("Waiting for running crawl to stop")
		<-a.Engine.Done()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
