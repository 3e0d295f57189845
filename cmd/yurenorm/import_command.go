package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		all       bool
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "import [source...]",
		Short: "Download and build synonym dictionaries from registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Sources.OutputDir
			}

			sdb, err := openSources(cfg.Sources.DB)
			if err != nil {
				return err
			}
			defer sdb.Close()

			var adapters []importer.Adapter
			switch {
			case all:
				adapters = importer.All()
			case len(args) == 0:
				return fmt.Errorf("name a source or pass --all (see `yurenorm sources list`)")
			default:
				for _, id := range args {
					a, err := importer.Get(id)
					if err != nil {
						return err
					}
					adapters = append(adapters, a)
				}
			}

			runCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			out := cmd.OutOrStdout()
			var failed int
			for _, a := range adapters {
				url, err := sdb.GetURL(a.ID())
				if err != nil {
					return err
				}
				res, err := a.Import(runCtx, url, outputDir, ctx.logger)
				if err != nil {
					failed++
					ctx.logger.Error("import failed", "adapter", a.ID(), "error", err)
					continue
				}
				if err := sdb.RecordImport(a.ID(), res); err != nil {
					ctx.logger.Warn("record import", "adapter", a.ID(), "error", err)
				}
				fmt.Fprintf(out, "[%s] OK -> %s (%d groups, %d entries)\n", a.ID(), res.Dir, res.Groups, res.Entries)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(adapters))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Import every registered source")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory for dictionaries (default sources.output_dir)")
	return cmd
}

// openSources opens the source database and seeds the registered adapters.
func openSources(path string) (*importer.SourceDB, error) {
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	sdb, err := importer.OpenSourceDB(path)
	if err != nil {
		return nil, err
	}
	if err := sdb.Seed(importer.All()); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("seed sources: %w", err)
	}
	return sdb, nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
