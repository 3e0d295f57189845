package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/mcpquic"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
)

// textNormalizer is satisfied by the local registry and the remote client.
type textNormalizer interface {
	Normalize(text string, cfg normalize.Config) (string, error)
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var (
		opts     optionFlags
		csvIn    string
		csvOut   string
		remote   string
		insecure bool
	)
	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Normalize texts given as arguments, stdin lines or a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			options := opts.apply(cmd, cfg.Normalize)
			if _, err := normalize.Resolve(options); err != nil {
				return err
			}

			var n textNormalizer
			if remote != "" {
				rn, err := dialRemote(cmd.Context(), remote, insecure)
				if err != nil {
					return err
				}
				defer rn.Close()
				n = rn
			} else {
				reg, err := ctx.loadRegistry()
				if err != nil {
					return err
				}
				n = reg
			}

			out := cmd.OutOrStdout()
			if csvIn != "" {
				return normalizeCSV(n, options, csvIn, csvOut, out)
			}

			if len(args) > 0 {
				for _, text := range args {
					normalized, err := n.Normalize(text, options)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, normalized)
				}
				return nil
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for sc.Scan() {
				line := sc.Text()
				if line == "" {
					fmt.Fprintln(out)
					continue
				}
				normalized, err := n.Normalize(line, options)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, normalized)
			}
			return sc.Err()
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&csvIn, "csv", "", "Normalize the first column of each row of this CSV file")
	cmd.Flags().StringVar(&csvOut, "out", "", "Output CSV path for --csv (default stdout)")
	cmd.Flags().StringVar(&remote, "remote", "", "Normalize on a yurenorm server over MCP/QUIC (host:port)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip certificate verification with --remote")
	return cmd
}

// normalizeCSV writes a raw,normalized header followed by one row per
// input row. Empty cells are copied unchanged.
func normalizeCSV(n textNormalizer, options normalize.Config, inPath, outPath string, stdout io.Writer) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer in.Close()

	out := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		out = f
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	w := csv.NewWriter(out)
	if err := w.Write([]string{"raw", "normalized"}); err != nil {
		return err
	}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		raw := record[0]
		normalized := raw
		if strings.TrimSpace(raw) != "" {
			if normalized, err = n.Normalize(raw, options); err != nil {
				return err
			}
		}
		if err := w.Write([]string{raw, normalized}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// remoteNormalizer calls the normalize_text tool of a QUIC server.
type remoteNormalizer struct {
	ctx    context.Context
	client *mcpquic.Client
}

func dialRemote(ctx context.Context, addr string, insecure bool) (*remoteNormalizer, error) {
	client := mcpquic.NewClient(addr, mcpquic.ClientTLSConfig(insecure))
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &remoteNormalizer{ctx: ctx, client: client}, nil
}

func (r *remoteNormalizer) Normalize(text string, cfg normalize.Config) (string, error) {
	args, err := toolArgs(cfg)
	if err != nil {
		return "", err
	}
	args["text"] = text

	body, err := r.client.CallText(r.ctx, "normalize_text", args)
	if err != nil {
		return "", err
	}
	var resp struct {
		Normalized string `json:"normalized"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("decode normalize_text result: %w", err)
	}
	return resp.Normalized, nil
}

func (r *remoteNormalizer) Close() error { return r.client.Close() }

// toolArgs turns cfg into MCP tool arguments; the JSON names match.
func toolArgs(cfg normalize.Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	args := make(map[string]any)
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
