package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/normalize"
)

func newExplainCommand(ctx *commandContext) *cobra.Command {
	var (
		opts     optionFlags
		jsonFlag bool
	)
	cmd := &cobra.Command{
		Use:   "explain <text>",
		Short: "Show the decision taken for every token of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.loadRegistry()
			if err != nil {
				return err
			}
			results, err := reg.Explain(strings.Join(args, " "), opts.apply(cmd, cfg.Normalize))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonFlag || !isTerminal(out) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			fmt.Fprintln(out, renderExplain(results))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Always print JSON")
	return cmd
}

func renderExplain(results []normalize.TokenResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		group := ""
		if r.GroupID != 0 {
			group = strconv.Itoa(r.GroupID)
		}
		pos := ""
		if len(r.POS) > 0 {
			pos = r.POS[0]
		}
		rows = append(rows, []string{r.Surface, pos, group, string(r.Stage), r.Output})
	}
	return renderTable(
		[]string{"Surface", "POS", "Group", "Stage", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
