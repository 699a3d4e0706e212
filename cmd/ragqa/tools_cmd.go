package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
)

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the agent's tool registry",
	}
	cmd.AddCommand(buildToolsListCmd(), buildToolsSetCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools and whether they're enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			tools, err := a.controlPlane.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s enabled=%v\n", t.Name, t.Enabled)
			}
			return nil
		},
	}
}

func buildToolsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <tool-name> <true|false> <actor-id>",
		Short: "Enable or disable a tool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("second argument must be true or false: %w", err)
			}

			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.controlPlane.SetToolEnabled(cmd.Context(), args[2], args[0], enabled)
		},
	}
}
