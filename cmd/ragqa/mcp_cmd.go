package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func buildMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage Model Context Protocol server connections",
	}
	cmd.AddCommand(buildMCPListCmd(), buildMCPEnableCmd(), buildMCPDisableCmd(), buildMCPRefreshCmd())
	return cmd
}

func buildMCPListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers and their connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			servers, err := a.controlPlane.ListMCPServers(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range servers {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s connected=%-5v tools=%d resources=%d prompts=%d\n",
					s.ID, s.Connected, s.Tools, s.Resources, s.Prompts)
			}
			return nil
		},
	}
}

func buildMCPEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <server-id> <actor-id>",
		Short: "Connect an MCP server and merge its tools into the tool registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.controlPlane.EnableMCPServer(cmd.Context(), args[1], args[0])
		},
	}
}

func buildMCPDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <server-id> <actor-id>",
		Short: "Disconnect an MCP server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.controlPlane.DisableMCPServer(cmd.Context(), args[1], args[0])
		},
	}
}

func buildMCPRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-tools <actor-id>",
		Short: "Re-sync the tool registry from currently connected MCP servers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.controlPlane.RefreshMCPTools(cmd.Context(), args[0])
		},
	}
}
