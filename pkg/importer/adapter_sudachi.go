package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

// ErrEmptySource is returned when a downloaded synonym file holds no groups.
var ErrEmptySource = errors.New("source contains no synonym groups")

func init() {
	Register(&sudachiAdapter{})
}

type sudachiAdapter struct{}

func (a *sudachiAdapter) ID() string     { return "sudachi-synonyms" }
func (a *sudachiAdapter) DictID() string { return "sudachi" }
func (a *sudachiAdapter) Description() string {
	return "SudachiDict synonym dictionary (synonyms.txt)"
}
func (a *sudachiAdapter) DefaultURL() string {
	return "https://raw.githubusercontent.com/WorksApplications/SudachiDict/develop/src/main/text/synonyms.txt"
}
func (a *sudachiAdapter) License() string { return "Apache-2.0" }

func (a *sudachiAdapter) Import(ctx context.Context, sourceURL, outputDir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dictDir := filepath.Join(outputDir, a.DictID())
	if err := ensureDir(dictDir); err != nil {
		return nil, err
	}

	unlock, err := lockDir(ctx, outputDir, a.DictID())
	if err != nil {
		return nil, err
	}
	defer unlock()

	tmpPath := filepath.Join(dictDir, "data.csv.part")
	defer os.Remove(tmpPath)

	logger.Info("downloading", "adapter", a.ID(), "url", sourceURL)
	n, err := downloadFile(ctx, sourceURL, tmpPath)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	logger.Info("downloaded", "adapter", a.ID(), "size", humanize.Bytes(uint64(n)))

	d, err := synonym.Load(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if d.GroupCount() == 0 {
		return nil, fmt.Errorf("validate %s: %w", sourceURL, ErrEmptySource)
	}

	if err := os.Rename(tmpPath, filepath.Join(dictDir, "data.csv")); err != nil {
		return nil, fmt.Errorf("install data file: %w", err)
	}
	if err := synonym.SaveGob(d, filepath.Join(dictDir, "data.gob")); err != nil {
		return nil, fmt.Errorf("save gob: %w", err)
	}
	err = writeManifest(dictDir, &synonym.Manifest{
		ID:        a.DictID(),
		Version:   time.Now().UTC().Format("2006-01-02"),
		Source:    "SudachiDict",
		SourceURL: sourceURL,
		License:   a.License(),
		DataFile:  "data.csv",
		Format:    synonym.FormatSpec{Delimiter: ",", Encoding: "utf-8"},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("synonym dictionary written", "adapter", a.ID(), "dir", dictDir,
		"groups", humanize.Comma(int64(d.GroupCount())), "entries", humanize.Comma(int64(d.EntryCount())))
	return &Result{Dir: dictDir, Groups: d.GroupCount(), Entries: d.EntryCount(), Bytes: n}, nil
}
