// Package main provides the CLI entry point for the finance/payment
// operations RAG Q&A agent: a process that ingests source documents into
// the Vector Store Gateway, runs the Agent Graph over incoming chat
// queries, and exposes the Admin Control Plane to operators. Transport
// (HTTP routing, webhook signature plumbing into net/http handlers,
// auth middleware wiring) is out of scope here and left to whatever
// embeds this module; serve wires every internal collaborator up to the
// point a handler would call chat.Service or controlplane.Service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ragqa",
		Short:        "Finance operations RAG Q&A agent",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "ragqa.yaml", "path to the YAML config file")

	root.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildConfigCmd(),
		buildMCPCmd(),
		buildToolsCmd(),
	)
	return root
}
