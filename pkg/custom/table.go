// Package custom holds user-defined synonym overrides: exact surface forms
// mapped to a canonical term, independent of the synonym dictionary.
package custom

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrMissingSource is returned when the custom synonym file does not exist.
	ErrMissingSource = errors.New("custom synonym source not found")
	// ErrInvalidFormat is returned for unsupported extensions and unparsable content.
	ErrInvalidFormat = errors.New("invalid custom synonym format")
)

// Entry is one canonical term and the surface forms that map to it.
type Entry struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants"`
}

type override struct {
	canonical string
	variants  []string
	set       map[string]struct{}
}

// Table resolves variant surface forms to canonical terms.
// When a variant appears under several canonicals the first inserted one wins.
type Table struct {
	entries []override
}

// New builds a table from entries in order.
func New(entries ...Entry) *Table {
	t := &Table{}
	for _, e := range entries {
		t.Add(e.Canonical, e.Variants...)
	}
	return t
}

// Add appends a canonical term with its variants. Empty variants are ignored.
func (t *Table) Add(canonical string, variants ...string) {
	t.entries = append(t.entries, newOverride(canonical, variants))
}

// Put sets the variants of canonical, replacing those of an existing entry
// in place, or appends a new entry.
func (t *Table) Put(canonical string, variants ...string) {
	for i := range t.entries {
		if t.entries[i].canonical == canonical {
			t.entries[i] = newOverride(canonical, variants)
			return
		}
	}
	t.Add(canonical, variants...)
}

func newOverride(canonical string, variants []string) override {
	o := override{canonical: canonical, set: make(map[string]struct{}, len(variants))}
	for _, v := range variants {
		if v == "" {
			continue
		}
		if _, dup := o.set[v]; dup {
			continue
		}
		o.set[v] = struct{}{}
		o.variants = append(o.variants, v)
	}
	return o
}

// Load reads a JSON (.json) or delimited (.csv, .tsv) custom synonym file.
func Load(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".csv", ".tsv":
	default:
		return nil, fmt.Errorf("load custom synonyms %s: %w: unsupported extension %q (use .json, .csv or .tsv)", path, ErrInvalidFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load custom synonyms %s: %w", path, ErrMissingSource)
		}
		return nil, fmt.Errorf("load custom synonyms %s: %w", path, err)
	}
	defer f.Close()

	var t *Table
	switch ext {
	case ".json":
		t, err = readJSON(f)
	case ".csv":
		t, err = readDelimited(f, ',')
	case ".tsv":
		t, err = readDelimited(f, '\t')
	}
	if err != nil {
		return nil, fmt.Errorf("load custom synonyms %s: %w: %w", path, ErrInvalidFormat, err)
	}
	return t, nil
}

// readJSON parses an object of canonical -> [variants], keeping key order.
// Canonicals without variants are dropped.
func readJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	om := orderedmap.New[string, []string]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, err
	}

	t := &Table{}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Value) == 0 {
			continue
		}
		t.Add(pair.Key, pair.Value...)
	}
	return t, nil
}

// readDelimited parses rows of canonical followed by its variants. A
// canonical repeated on a later row keeps its first position and takes
// the later row's variants.
func readDelimited(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		canonical := strings.TrimSpace(record[0])
		if canonical == "" {
			continue
		}
		variants := make([]string, 0, len(record)-1)
		for _, v := range record[1:] {
			variants = append(variants, strings.TrimSpace(v))
		}
		t.Put(canonical, variants...)
	}
	return t, nil
}

// Resolve returns the canonical term for surface, if any entry lists it as a variant.
func (t *Table) Resolve(surface string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, o := range t.entries {
		if _, ok := o.set[surface]; ok {
			return o.canonical, true
		}
	}
	return "", false
}

// Len returns the number of canonical entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the table content in insertion order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.entries))
	for _, o := range t.entries {
		out = append(out, Entry{Canonical: o.canonical, Variants: append([]string(nil), o.variants...)})
	}
	return out
}
