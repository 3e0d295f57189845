// Package synonym loads the SudachiDict synonym dictionary into an
// immutable, read-only index of synonym groups.
package synonym

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// minFields is the number of meaningful columns in a synonym row.
// SudachiDict appends two reserved columns which are ignored.
const minFields = 9

// Dictionary maps group ids to their ordered entries.
// It is never mutated after construction and is safe for concurrent reads.
type Dictionary struct {
	Manifest *Manifest
	groups   map[int]Group
	byLemma  map[string][]int
	entries  int
}

// New builds a dictionary from already parsed groups.
func New(groups map[int]Group) *Dictionary {
	d := &Dictionary{
		groups:  groups,
		byLemma: make(map[string][]int),
	}
	if d.groups == nil {
		d.groups = make(map[int]Group)
	}

	// Sorted iteration keeps the reverse index deterministic.
	ids := make([]int, 0, len(d.groups))
	for id := range d.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		for _, e := range d.groups[id] {
			d.entries++
			known := d.byLemma[e.Lemma]
			if len(known) > 0 && known[len(known)-1] == id {
				continue
			}
			d.byLemma[e.Lemma] = append(known, id)
		}
	}
	return d
}

// Load reads a comma separated synonym file.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load synonyms %s: %w", path, ErrMissingSource)
		}
		return nil, fmt.Errorf("load synonyms %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses a comma separated synonym source from r. name is used in
// error messages.
func Read(r io.Reader, name string) (*Dictionary, error) {
	groups, err := parseCSV(r, name, ',')
	if err != nil {
		return nil, err
	}
	return New(groups), nil
}

// LoadDir reads manifest.yaml in dir and loads the groups from data.gob or
// from the manifest's data file.
func LoadDir(dir string) (*Dictionary, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}

	// Gob takes priority over CSV.
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		groups, err := loadGob(gobPath)
		if err != nil {
			return nil, fmt.Errorf("dict %s: %w", manifest.ID, err)
		}
		d := New(groups)
		d.Manifest = manifest
		return d, nil
	}

	dataPath := filepath.Join(dir, manifest.DataFile)
	f, err := os.Open(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dict %s: open %s: %w", manifest.ID, dataPath, ErrMissingSource)
		}
		return nil, fmt.Errorf("dict %s: open data file: %w", manifest.ID, err)
	}
	defer f.Close()

	// Transcode non-UTF-8 encodings declared in the manifest.
	var reader io.Reader = f
	if enc := manifest.Format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("dict %s: unsupported encoding %q: %w", manifest.ID, enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	comma := ','
	if delim := manifest.Format.Delimiter; delim != "" {
		comma = []rune(delim)[0]
	}

	groups, err := parseCSV(reader, dataPath, comma)
	if err != nil {
		return nil, fmt.Errorf("dict %s: %w", manifest.ID, err)
	}
	d := New(groups)
	d.Manifest = manifest
	return d, nil
}

func parseCSV(src io.Reader, path string, comma rune) (map[int]Group, error) {
	r := csv.NewReader(src)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	groups := make(map[int]Group)
	var duplicates int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedEntryError{Path: path, Err: err}
		}
		line, _ := r.FieldPos(0)
		if isBlank(record) {
			continue
		}

		id, entry, perr := parseRecord(record)
		if perr != nil {
			perr.Path, perr.Line = path, line
			return nil, perr
		}
		if _, dup := groups[id].ForClass(entry.Class).Find(entry.Lemma); dup {
			duplicates++
		}
		groups[id] = append(groups[id], entry)
	}

	if duplicates > 0 {
		slog.Warn("duplicate lemmas inside synonym groups", "path", path, "duplicates", duplicates)
	}
	return groups, nil
}

func parseRecord(record []string) (int, Entry, *MalformedEntryError) {
	if len(record) < minFields {
		return 0, Entry{}, &MalformedEntryError{
			Err: fmt.Errorf("expected %d fields, got %d", minFields, len(record)),
		}
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	groupID, err := strconv.Atoi(record[0])
	if err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: "group", Err: err}
	}

	codes := make([]int, 6)
	names := [...]string{"class", "expansion", "lexeme_id", "word_form", "abbreviation", "spelling"}
	for i := range codes {
		raw := record[i+1]
		if i == 2 {
			// Lexeme ids may carry a "/n" suffix.
			raw, _, _ = strings.Cut(raw, "/")
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, Entry{}, &MalformedEntryError{Field: names[i], Err: err}
		}
		codes[i] = n
	}

	var e Entry
	if e.Class, err = parseClass(codes[0]); err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: names[0], Err: err}
	}
	if e.Expansion, err = parseExpansion(codes[1]); err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: names[1], Err: err}
	}
	e.LexemeID = codes[2]
	if e.WordForm, err = parseWordForm(codes[3]); err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: names[3], Err: err}
	}
	if e.Abbreviation, err = parseAbbreviation(codes[4]); err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: names[4], Err: err}
	}
	if e.Spelling, err = parseSpelling(codes[5]); err != nil {
		return 0, Entry{}, &MalformedEntryError{Field: names[5], Err: err}
	}
	e.Field = record[7]
	e.Lemma = record[8]
	if e.Lemma == "" {
		return 0, Entry{}, &MalformedEntryError{Field: "lemma", Err: errors.New("empty lemma")}
	}
	return groupID, e, nil
}

// Lookup returns the group with the given id.
func (d *Dictionary) Lookup(id int) (Group, bool) {
	g, ok := d.groups[id]
	return g, ok
}

// GroupIDs returns the ids of every group containing surface as a lemma,
// in ascending order.
func (d *Dictionary) GroupIDs(surface string) []int {
	return d.byLemma[surface]
}

// Lemmas returns every distinct lemma of class c, sorted.
func (d *Dictionary) Lemmas(c Class) []string {
	seen := make(map[string]struct{})
	for _, g := range d.groups {
		for _, e := range g {
			if e.Class == c {
				seen[e.Lemma] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// GroupCount returns the number of synonym groups.
func (d *Dictionary) GroupCount() int {
	return len(d.groups)
}

// EntryCount returns the total number of entries across all groups.
func (d *Dictionary) EntryCount() int {
	return d.entries
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
