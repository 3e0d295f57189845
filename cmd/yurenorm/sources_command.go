package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/importer"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and manage synonym sources",
	}
	cmd.AddCommand(newSourcesListCommand(ctx), newSourcesSetURLCommand(ctx), newSourcesCheckCommand(ctx))
	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources with their last check and import",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sdb, err := openSources(cfg.Sources.DB)
			if err != nil {
				return err
			}
			defer sdb.Close()

			sources, err := sdb.ListSources()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				status := "-"
				if src.LastStatus != nil {
					status = strconv.Itoa(*src.LastStatus)
				}
				imported := "never"
				if src.LastImport != nil {
					imported = humanize.Time(time.Unix(*src.LastImport, 0))
				}
				rows = append(rows, []string{
					src.AdapterID, src.DictID, src.License, status, imported,
					humanize.Comma(int64(src.Groups)), src.SourceURL,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "Dict", "License", "Status", "Imported", "Groups", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSourcesSetURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <source> <url>",
		Short: "Override the download URL of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sdb, err := openSources(cfg.Sources.DB)
			if err != nil {
				return err
			}
			defer sdb.Close()

			if err := sdb.SetURL(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] url set to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newSourcesCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe every source URL once and record its availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sdb, err := openSources(cfg.Sources.DB)
			if err != nil {
				return err
			}
			defer sdb.Close()

			report := importer.NewChecker(sdb, ctx.logger, cfg.Sources.CheckInterval).CheckAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d ok, %d failed\n", report.OK, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d sources unavailable", report.Failed)
			}
			return nil
		},
	}
}
