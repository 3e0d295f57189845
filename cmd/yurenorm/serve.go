package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/api"
	"github.com/hazyhaar/yurenorm/pkg/chassis"
	"github.com/hazyhaar/yurenorm/pkg/importer"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var checkSources bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP normalization server",
		Long: "Start the HTTP normalization server. With server.quic.enabled the API is\n" +
			"served over TLS and HTTP/3, and MCP tools are reachable over QUIC.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger

			reg, err := ctx.loadRegistry()
			if err != nil {
				return err
			}
			router := api.NewRouter(reg, cfg.Normalize, logger)

			// SIGHUP: hot reload dictionaries.
			// SIGINT/SIGTERM: graceful shutdown.
			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sighup := make(chan os.Signal, 1)
			signal.Notify(sighup, syscall.SIGHUP)
			defer signal.Stop(sighup)
			go func() {
				for range sighup {
					logger.Info("SIGHUP received, reloading dictionaries")
					if err := reg.Reload(); err != nil {
						logger.Error("reload failed", "error", err)
					}
				}
			}()

			if checkSources {
				sdb, err := openSources(cfg.Sources.DB)
				if err != nil {
					return err
				}
				defer sdb.Close()
				go importer.NewChecker(sdb, logger, cfg.Sources.CheckInterval).Start(sigCtx)
			}

			if cfg.Server.QUIC.Enabled {
				mcpSrv := server.NewMCPServer("yurenorm", version, server.WithToolCapabilities(false))
				api.RegisterMCPTools(mcpSrv, reg, cfg.Normalize, logger)

				srv, err := chassis.New(chassis.Config{
					Addr:      cfg.Server.Addr,
					CertFile:  cfg.Server.QUIC.CertFile,
					KeyFile:   cfg.Server.QUIC.KeyFile,
					Handler:   router,
					MCPServer: mcpSrv,
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				if err := srv.Serve(sigCtx); err != nil {
					return err
				}
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Stop(shutdownCtx)
			}

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("yurenorm listening", "addr", cfg.Server.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&checkSources, "check-sources", false, "Periodically check synonym source availability")
	return cmd
}
