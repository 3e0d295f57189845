// Package registry holds the loaded synonym sources and the normalizer
// built over them, and swaps them atomically on reload.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazyhaar/yurenorm/pkg/custom"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/synonym"
	"github.com/hazyhaar/yurenorm/pkg/tokenize"
)

// ErrNotLoaded is returned by queries issued before the first successful Load.
var ErrNotLoaded = errors.New("registry not loaded")

// Sources locates the files a snapshot is built from.
// DictDir takes precedence over SynonymFile.
type Sources struct {
	DictDir      string
	SynonymFile  string
	CustomFile   string
	UserDictFile string
	LemmaDict    bool
}

// TokenizerFactory builds the tokenizer for a freshly loaded dictionary and
// override table. overrides may be nil.
type TokenizerFactory func(d *synonym.Dictionary, overrides *custom.Table, src Sources) (normalize.Tokenizer, error)

// KagomeTokenizer is the default TokenizerFactory.
func KagomeTokenizer(d *synonym.Dictionary, overrides *custom.Table, src Sources) (normalize.Tokenizer, error) {
	opts := []tokenize.Option{
		tokenize.WithLemmaDict(src.LemmaDict),
		tokenize.WithOverrides(overrides),
	}
	if src.UserDictFile != "" {
		opts = append(opts, tokenize.WithUserDictFile(src.UserDictFile))
	}
	return tokenize.New(d, opts...)
}

type snapshot struct {
	dict       *synonym.Dictionary
	overrides  *custom.Table
	normalizer *normalize.Normalizer
	loadedAt   time.Time
}

type cacheKey struct {
	text string
	rc   normalize.Resolved
}

// Registry serves normalization over the current snapshot.
type Registry struct {
	loadMu       sync.Mutex
	mu           sync.RWMutex
	snap         *snapshot
	src          Sources
	newTokenizer TokenizerFactory
	cache        *lru.Cache[cacheKey, string]
	logger       *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTokenizerFactory replaces the kagome tokenizer.
func WithTokenizerFactory(f TokenizerFactory) Option {
	return func(r *Registry) { r.newTokenizer = f }
}

// WithCacheSize enables an LRU cache of normalized texts. Zero disables it.
func WithCacheSize(n int) Option {
	return func(r *Registry) {
		if n <= 0 {
			r.cache = nil
			return
		}
		r.cache, _ = lru.New[cacheKey, string](n)
	}
}

// New creates an empty registry. Call Load before serving queries.
func New(src Sources, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{src: src, newTokenizer: KagomeTokenizer, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads every source and replaces the current snapshot. On error the
// previous snapshot stays in place.
func (r *Registry) Load() error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	start := time.Now()

	var (
		d   *synonym.Dictionary
		err error
	)
	switch {
	case r.src.DictDir != "":
		d, err = synonym.LoadDir(r.src.DictDir)
	case r.src.SynonymFile != "":
		d, err = synonym.Load(r.src.SynonymFile)
	default:
		err = fmt.Errorf("no synonym source configured: %w", synonym.ErrMissingSource)
	}
	if err != nil {
		return err
	}

	var table *custom.Table
	if r.src.CustomFile != "" {
		if table, err = custom.Load(r.src.CustomFile); err != nil {
			return err
		}
	}

	tk, err := r.newTokenizer(d, table, r.src)
	if err != nil {
		return fmt.Errorf("build tokenizer: %w", err)
	}

	snap := &snapshot{
		dict:       d,
		overrides:  table,
		normalizer: normalize.New(tk, normalize.NewEngine(d, table, normalize.POSClassifier{})),
		loadedAt:   time.Now(),
	}

	r.mu.Lock()
	r.snap = snap
	if r.cache != nil {
		r.cache.Purge()
	}
	r.mu.Unlock()

	r.logger.Info("synonym sources loaded",
		"groups", d.GroupCount(),
		"entries", d.EntryCount(),
		"overrides", table.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Reload reloads every source from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Normalize normalizes text with cfg on the current snapshot.
func (r *Registry) Normalize(text string, cfg normalize.Config) (string, error) {
	if text == "" {
		return "", normalize.ErrEmptyInput
	}
	rc, err := normalize.Resolve(cfg)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return "", ErrNotLoaded
	}

	key := cacheKey{text: text, rc: rc}
	if r.cache != nil {
		if out, ok := r.cache.Get(key); ok {
			return out, nil
		}
	}
	out := r.snap.normalizer.NormalizeResolved(text, rc)
	if r.cache != nil {
		r.cache.Add(key, out)
	}
	return out, nil
}

// Explain returns the per-token decisions for text.
func (r *Registry) Explain(text string, cfg normalize.Config) ([]normalize.TokenResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return nil, ErrNotLoaded
	}
	return r.snap.normalizer.Explain(text, cfg)
}

// GroupView is one synonym group as exposed to clients.
type GroupView struct {
	ID      int         `json:"id"`
	Entries []EntryView `json:"entries"`
}

// EntryView renders an entry with named codes.
type EntryView struct {
	Lemma        string `json:"lemma"`
	Class        string `json:"class"`
	Expansion    string `json:"expansion"`
	LexemeID     int    `json:"lexeme_id"`
	WordForm     string `json:"word_form"`
	Abbreviation string `json:"abbreviation"`
	Spelling     string `json:"spelling"`
	Field        string `json:"field,omitempty"`
}

func newGroupView(id int, g synonym.Group) GroupView {
	v := GroupView{ID: id, Entries: make([]EntryView, 0, len(g))}
	for _, e := range g {
		v.Entries = append(v.Entries, EntryView{
			Lemma:        e.Lemma,
			Class:        e.Class.String(),
			Expansion:    e.Expansion.String(),
			LexemeID:     e.LexemeID,
			WordForm:     e.WordForm.String(),
			Abbreviation: e.Abbreviation.String(),
			Spelling:     e.Spelling.String(),
			Field:        e.Field,
		})
	}
	return v
}

// LookupResult lists the groups a term belongs to.
type LookupResult struct {
	Term     string      `json:"term"`
	Override string      `json:"override,omitempty"`
	Groups   []GroupView `json:"groups"`
}

// Lookup returns every group containing term as a lemma, and the custom
// canonical for term if one exists.
func (r *Registry) Lookup(term string) (*LookupResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return nil, ErrNotLoaded
	}

	res := &LookupResult{Term: term, Groups: []GroupView{}}
	if canonical, ok := r.snap.overrides.Resolve(term); ok {
		res.Override = canonical
	}
	for _, id := range r.snap.dict.GroupIDs(term) {
		g, _ := r.snap.dict.Lookup(id)
		res.Groups = append(res.Groups, newGroupView(id, g))
	}
	return res, nil
}

// Group returns one synonym group by id.
func (r *Registry) Group(id int) (GroupView, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return GroupView{}, false, ErrNotLoaded
	}
	g, ok := r.snap.dict.Lookup(id)
	if !ok {
		return GroupView{}, false, nil
	}
	return newGroupView(id, g), true, nil
}

// Stats describes the current snapshot.
type Stats struct {
	Loaded     bool      `json:"loaded"`
	Source     string    `json:"source,omitempty"`
	Version    string    `json:"version,omitempty"`
	Groups     int       `json:"groups"`
	Entries    int       `json:"entries"`
	Overrides  int       `json:"overrides"`
	CachedKeys int       `json:"cached_keys"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// Stats returns counters for the current snapshot.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	if r.cache != nil {
		s.CachedKeys = r.cache.Len()
	}
	if r.snap == nil {
		return s
	}
	s.Loaded = true
	s.Groups = r.snap.dict.GroupCount()
	s.Entries = r.snap.dict.EntryCount()
	s.Overrides = r.snap.overrides.Len()
	s.LoadedAt = r.snap.loadedAt
	if m := r.snap.dict.Manifest; m != nil {
		s.Source = m.ID
		s.Version = m.Version
	}
	return s
}
