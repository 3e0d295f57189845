package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/api"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the normalization tools over MCP stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.loadRegistry()
			if err != nil {
				return err
			}

			srv := server.NewMCPServer("yurenorm", version, server.WithToolCapabilities(false))
			api.RegisterMCPTools(srv, reg, cfg.Normalize, ctx.logger)
			ctx.logger.Info("serving MCP on stdio", "tools", len(srv.ListTools()))
			return server.ServeStdio(srv)
		},
	}
}
