package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion workers, chat service, and admin control plane",
		Long: "serve wires every collaborator (vector store, LLM/embedding providers, " +
			"source collectors, the agent graph, the admin control plane) and blocks " +
			"until terminated. It does not open an HTTP listener; embedding this " +
			"process behind a transport is left to the caller.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	a, err := buildApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := startCollectors(ctx, a.cfg, a.channels, a.coordinator, a.notifier, logger); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.channels.StopAll(shutdownCtx)
	}()

	stopWatch := watchConfigFile(configPath, logger)
	defer stopWatch()

	logger.Info("ragqa serving", "environment", a.cfg.Environment)

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight ingestion")
	return nil
}
