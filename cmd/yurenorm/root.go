package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/config"
	"github.com/hazyhaar/yurenorm/pkg/registry"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "yurenorm",
		Short:         "Japanese lexical-variation normalizer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Configuration file path (default $"+config.PathEnv+" or "+config.DefaultPath+")")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMCPCommand(ctx))
	rootCmd.AddCommand(newNormalizeCommand(ctx))
	rootCmd.AddCommand(newExplainCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newSourcesCommand(ctx))
	return rootCmd
}

// commandContext lazily builds the shared configuration, logger and registry.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error

	// registryOpts is extended by tests to inject a tokenizer.
	registryOpts []registry.Option
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = cfg.NewLogger()
	})
	return c.config, c.configErr
}

// loadRegistry builds and loads the registry from the configured sources.
func (c *commandContext) loadRegistry() (*registry.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := append([]registry.Option{registry.WithCacheSize(cfg.Cache.Size)}, c.registryOpts...)
	reg := registry.New(cfg.RegistrySources(), c.logger, opts...)
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("load dictionaries: %w", err)
	}
	return reg, nil
}
