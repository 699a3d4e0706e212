package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finqa/ragqa/internal/config"
	"github.com/finqa/ragqa/internal/vectorstore/pgvector"
)

func buildMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the relational and pgvector schema migrations and exit",
		Long: "migrate connects to the configured Postgres database, applies any " +
			"pending schema migrations (documents, chunks, sessions, configs, " +
			"prompts, and the pgvector extension), and exits. serve runs the same " +
			"migrations on startup; this command exists for deploy pipelines that " +
			"migrate before rolling the service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := sql.Open("postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			store, err := pgvector.New(pgvector.Config{
				DB:            db,
				Dimension:     cfg.LLM.EmbeddingDimension,
				RunMigrations: true,
			})
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			defer store.Close()

			slog.Default().Info("migrations applied", "environment", cfg.Environment)
			return nil
		},
	}
}
