package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"

	"github.com/mindwell-ai/mindwell/config"
	"github.com/mindwell-ai/mindwell/distill"
	"github.com/mindwell-ai/mindwell/engine"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/memory/embedder/mock"
	chromemindex "github.com/mindwell-ai/mindwell/memory/index/chromem"
	"github.com/mindwell-ai/mindwell/server"
	"github.com/mindwell-ai/mindwell/store"
	"github.com/mindwell-ai/mindwell/store/memstore"
	"github.com/mindwell-ai/mindwell/store/sqlite"
	"github.com/mindwell-ai/mindwell/tools"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Store: SQLite when a path is configured, in-memory otherwise.
	var st store.ArtifactStore
	if cfg.DBPath != "" {
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		st = db
		logger.Info("using sqlite store", "path", cfg.DBPath)
	} else {
		st = memstore.New()
		logger.Info("using in-memory store")
	}
	defer st.Close()

	// Embedding pipeline: hash embedder behind a cache, chromem shortlist
	// index.
	embedder, err := memory.NewCachedEmbedder(mock.New(), int64(cfg.EmbedCacheSize))
	if err != nil {
		log.Fatalf("init embedder cache: %v", err)
	}
	index := chromemindex.New()

	scorer := memory.NewHybridScorer()
	gateCfg := *memory.DefaultGateConfig
	gateCfg.ContextBudget = cfg.ContextBudget
	gateCfg.HistoryWindow = cfg.HistoryWindow
	gate := memory.NewGate(st, embedder, scorer,
		memory.WithIndex(index),
		memory.WithGateConfig(&gateCfg),
	)
	refresher := memory.NewRefresher(st, embedder, index)

	// Tools available to the agent.
	registry := tools.NewRegistry()
	registry.MustRegister(tools.MemoryTools(st, refresher)...)
	registry.MustRegister(tools.UtilityTools()...)

	// Runtime: real model when a key is configured, stub otherwise.
	var runtime engine.Runtime
	if cfg.UseStubs() {
		logger.Info("ANTHROPIC_API_KEY not set, using stub runtime")
		runtime = engine.NewStubRuntime(registry)
	} else {
		client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicKey))
		runtime = engine.NewAnthropicRuntime(&client, registry,
			engine.WithModel(cfg.AnthropicModel),
			engine.WithMaxTokens(int64(cfg.MaxTokens)),
		)
	}

	scheduler := distill.NewScheduler(st, distill.NewHeuristicDistiller(),
		distill.WithRefresher(refresher),
		distill.WithConcurrency(cfg.DistillConcurrency),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background distillation loop.
	if cfg.DistillInterval > 0 {
		go runDistillLoop(ctx, scheduler, cfg.DistillInterval, logger)
	}

	srv := server.New(st, gate, refresher, runtime, scheduler, server.Options{
		CORSOrigin: cfg.CORSOrigin,
		Logger:     logger,
	})
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("mindwell server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// runDistillLoop runs scheduled distillation until ctx is cancelled.
func runDistillLoop(ctx context.Context, scheduler *distill.Scheduler, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := scheduler.RunForAllUsers(ctx)
			if err != nil {
				logger.Error("distillation run failed", "err", err)
				continue
			}
			logger.Info("distillation run complete",
				"users", run.UsersProcessed,
				"insights", run.TotalInsights,
				"errors", len(run.Errors),
			)
		}
	}
}
