// Package main provides the TelaMentis server daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ProdFact/telamentis/pkg/audit"
	"github.com/ProdFact/telamentis/pkg/config"
	"github.com/ProdFact/telamentis/pkg/llm"
	"github.com/ProdFact/telamentis/pkg/llm/anyllm"
	"github.com/ProdFact/telamentis/pkg/pipeline"
	"github.com/ProdFact/telamentis/pkg/server"
	"github.com/ProdFact/telamentis/pkg/service"
	"github.com/ProdFact/telamentis/pkg/storage"
	"github.com/ProdFact/telamentis/pkg/tenant"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telamentis",
		Short: "TelaMentis - Multi-tenant bitemporal knowledge graph service",
		Long: `TelaMentis is a multi-tenant bitemporal knowledge-graph service:
a storage-abstracted engine that records labeled entities and typed
relationships where every edge carries two independent time axes.

Features:
  • Bitemporal edges (valid time + transaction time)
  • Tenant isolation on every read and write path
  • Closed query algebra with as-of temporal rewriting
  • LLM-powered knowledge extraction (OpenAI, Anthropic, Gemini, Ollama)
  • Pluggable storage backends (in-memory, BadgerDB)`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TelaMentis v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the TelaMentis server",
		Long:  "Start the HTTP API server with the configured storage backend and LLM connector",
		RunE:  runServe,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("telamentis starting",
		"version", version,
		"store", cfg.Store.Backend,
		"llm_provider", cfg.LLM.Provider)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	connector, err := buildConnector(cfg)
	if err != nil {
		return err
	}

	runner, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	svc := service.New(store, service.Options{
		Connector: connector,
		Runner:    runner,
		Logger:    logger,
	})
	defer svc.Shutdown()

	tenants := tenant.NewMemoryManager()

	srv := server.New(svc, tenants, server.Config{
		Addr:   cfg.Server.HTTPAddr,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(srv.Start)
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
		return err
	}
	logger.Info("telamentis stopped")
	return nil
}

func buildStore(cfg config.Config, logger *slog.Logger) (storage.GraphStore, error) {
	switch cfg.Store.Backend {
	case "badger":
		store, err := storage.NewBadgerStoreWithOptions(storage.BadgerOptions{
			DataDir: cfg.Store.DataDir,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemoryStoreWithConfig(storage.MemoryConfig{
			MaxNodes: cfg.Store.MaxNodes,
			MaxEdges: cfg.Store.MaxEdges,
			Logger:   logger,
		}), nil
	}
}

func buildConnector(cfg config.Config) (llm.Connector, error) {
	if cfg.LLM.Provider == "" {
		return nil, nil
	}

	var rates *llm.RateTable
	if cfg.LLM.RateTable != "" {
		table, err := llm.LoadRateTable(cfg.LLM.RateTable)
		if err != nil {
			return nil, fmt.Errorf("loading rate table: %w", err)
		}
		rates = table
	}

	conn, err := anyllm.New(anyllm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  uint64(cfg.LLM.MaxRetries),
		Rates:       rates,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm connector: %w", err)
	}
	return conn, nil
}

func buildPipeline(cfg config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	runner := pipeline.NewRunnerWithLogger(logger)

	plugins := []struct {
		stage  pipeline.Stage
		plugin pipeline.Plugin
	}{
		{pipeline.StagePre, pipeline.NewRequestLoggingPlugin(logger)},
		{pipeline.StagePre, pipeline.NewTenantValidationPlugin()},
		{pipeline.StagePost, pipeline.NewAuditTrailPlugin(logger)},
	}

	if cfg.Audit.Path != "" {
		auditLogger, err := audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		plugins = append(plugins, struct {
			stage  pipeline.Stage
			plugin pipeline.Plugin
		}{pipeline.StagePost, audit.NewPlugin(auditLogger)})
	}

	for _, p := range plugins {
		if err := runner.Register(p.stage, p.plugin, pipeline.DefaultPluginConfig()); err != nil {
			return nil, err
		}
	}
	return runner, nil
}
