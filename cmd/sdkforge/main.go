package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conexa/sdkforge/internal/adapters/llm"
	"github.com/conexa/sdkforge/internal/adapters/pdftext"
	"github.com/conexa/sdkforge/internal/adapters/swagger"
	appconfig "github.com/conexa/sdkforge/internal/config"
	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/conexa/sdkforge/internal/core/services"
	"github.com/conexa/sdkforge/pkg/kernel"
	"github.com/rs/cors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting sdkforge")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// LLM analysis runs only when a key is configured; otherwise every job
	// takes the heuristic path.
	var provider ports.CompletionProvider
	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return fmt.Errorf("init llm provider: %w", err)
		}
		provider = p
		logger.Info("llm analysis enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Info("no api key configured, using heuristic analysis only")
	}

	broadcaster := services.NewBroadcaster(logger)
	engine := services.NewEngine(logger, provider, services.EngineConfig{
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		CallTimeout: cfg.AnalysisCallTimeout,
	})

	orchestrator := services.NewOrchestrator(
		logger,
		pdftext.NewAnalyzer(logger),
		swagger.NewAnalyzer(logger),
		swagger.NewFetcher(logger),
		engine,
		services.NewGenerator(logger),
		broadcaster,
		services.OrchestratorConfig{
			MaxConcurrentJobs: cfg.MaxConcurrentJobs,
			RetentionTTL:      cfg.RetentionTTL,
			SweepInterval:     cfg.SweepInterval,
		},
	)

	apiServer := kernel.NewServer(logger, orchestrator, broadcaster, cfg.MaxUploadBytes)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orchestrator.RunRetention(gCtx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting api server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
