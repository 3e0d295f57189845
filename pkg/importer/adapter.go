package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Adapter defines a synonym source importer that downloads, validates and
// serializes a synonym dictionary into a loadable directory.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "sudachi-synonyms").
	ID() string
	// DictID returns the target dictionary directory name (e.g. "sudachi").
	DictID() string
	// Description returns a human-readable description.
	Description() string
	// DefaultURL returns the default source URL used for seeding the database.
	DefaultURL() string
	// License returns the license identifier for this source (e.g. "Apache-2.0").
	License() string
	// Import downloads the source from sourceURL, validates it, and writes
	// data.csv, data.gob and manifest.yaml into outputDir/DictID().
	Import(ctx context.Context, sourceURL, outputDir string, logger *slog.Logger) (*Result, error)
}

// Result summarizes a completed import.
type Result struct {
	Dir     string
	Groups  int
	Entries int
	Bytes   int64
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID, or an error if not found.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
