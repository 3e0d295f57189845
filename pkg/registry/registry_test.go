package registry

import (
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/yurenorm/pkg/custom"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

const testSynonyms = `000001,1,0,1,0,0,0,(地名),アメリカ合衆国,,
000001,1,1,1,0,1,0,(地名),USA,,
000002,1,0,1,0,0,0,(IT),パーソナルコンピューター,,
000002,1,0,1,0,2,0,(IT),パソコン,,
000002,1,0,1,0,1,0,(IT),PC,,
000003,1,0,1,0,0,0,,ポリティカル・コレクトネス,,
000003,1,0,1,0,1,0,,PC,,
`

// wholeText yields the text as a single noun token.
type wholeText struct {
	dict  *synonym.Dictionary
	mu    sync.Mutex
	calls int
}

func (w *wholeText) Tokenize(text string) iter.Seq[normalize.Token] {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	return func(yield func(normalize.Token) bool) {
		yield(normalize.Token{Surface: text, POS: []string{"名詞"}, GroupIDs: w.dict.GroupIDs(text)})
	}
}

type testEnv struct {
	reg      *Registry
	dir      string
	synonyms string
	tok      *wholeText
}

func setupRegistry(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{dir: t.TempDir()}
	env.synonyms = filepath.Join(env.dir, "synonyms.txt")
	require.NoError(t, os.WriteFile(env.synonyms, []byte(testSynonyms), 0o644))

	factory := func(d *synonym.Dictionary, _ *custom.Table, _ Sources) (normalize.Tokenizer, error) {
		env.tok = &wholeText{dict: d}
		return env.tok, nil
	}
	opts = append([]Option{WithTokenizerFactory(factory)}, opts...)
	env.reg = New(Sources{SynonymFile: env.synonyms}, nil, opts...)
	require.NoError(t, env.reg.Load())
	return env
}

func TestRegistry_Load(t *testing.T) {
	env := setupRegistry(t)

	s := env.reg.Stats()
	assert.True(t, s.Loaded)
	assert.Equal(t, 3, s.Groups)
	assert.Equal(t, 7, s.Entries)
	assert.Zero(t, s.Overrides)
}

func TestRegistry_NotLoaded(t *testing.T) {
	reg := New(Sources{}, nil)
	_, err := reg.Normalize("USA", normalize.DefaultConfig())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, reg.Stats().Loaded)
}

func TestRegistry_MissingSource(t *testing.T) {
	reg := New(Sources{SynonymFile: filepath.Join(t.TempDir(), "nonexistent")}, nil)
	assert.ErrorIs(t, reg.Load(), synonym.ErrMissingSource)

	reg = New(Sources{}, nil)
	assert.ErrorIs(t, reg.Load(), synonym.ErrMissingSource)
}

func TestRegistry_Normalize(t *testing.T) {
	env := setupRegistry(t)

	cfg := normalize.DefaultConfig()
	cfg.Expansion = normalize.ExpansionAny

	got, err := env.reg.Normalize("USA", cfg)
	require.NoError(t, err)
	assert.Equal(t, "アメリカ合衆国", got)

	got, err = env.reg.Normalize("PC", cfg)
	require.NoError(t, err)
	assert.Equal(t, "PC", got)

	_, err = env.reg.Normalize("", cfg)
	assert.ErrorIs(t, err, normalize.ErrEmptyInput)
}

func TestRegistry_Cache(t *testing.T) {
	env := setupRegistry(t, WithCacheSize(16))

	cfg := normalize.DefaultConfig()
	for range 3 {
		got, err := env.reg.Normalize("パソコン", cfg)
		require.NoError(t, err)
		assert.Equal(t, "パーソナルコンピューター", got)
	}
	assert.Equal(t, 1, env.tok.calls)
	assert.Equal(t, 1, env.reg.Stats().CachedKeys)

	// A different config is a different key.
	cfg.UnifyLevel = normalize.UnifyAbbreviation
	_, err := env.reg.Normalize("パソコン", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, env.reg.Stats().CachedKeys)
}

func TestRegistry_ReloadPurgesCache(t *testing.T) {
	env := setupRegistry(t, WithCacheSize(16))

	cfg := normalize.DefaultConfig()
	got, err := env.reg.Normalize("パソコン", cfg)
	require.NoError(t, err)
	assert.Equal(t, "パーソナルコンピューター", got)

	// Rewrite the source so パソコン becomes the representative.
	updated := "000002,1,0,1,0,0,0,(IT),パソコン,,\n000002,1,0,1,0,0,0,(IT),パーソナルコンピューター,,\n"
	require.NoError(t, os.WriteFile(env.synonyms, []byte(updated), 0o644))
	require.NoError(t, env.reg.Reload())

	assert.Zero(t, env.reg.Stats().CachedKeys)
	got, err = env.reg.Normalize("パーソナルコンピューター", cfg)
	require.NoError(t, err)
	assert.Equal(t, "パソコン", got)
}

func TestRegistry_ReloadKeepsSnapshotOnError(t *testing.T) {
	env := setupRegistry(t)

	require.NoError(t, os.WriteFile(env.synonyms, []byte("bad,row\n"), 0o644))
	err := env.reg.Reload()
	assert.ErrorIs(t, err, synonym.ErrMalformedEntry)

	assert.Equal(t, 3, env.reg.Stats().Groups, "previous snapshot kept")
}

func TestRegistry_CustomOverrides(t *testing.T) {
	dir := t.TempDir()
	syn := filepath.Join(dir, "synonyms.txt")
	require.NoError(t, os.WriteFile(syn, []byte(testSynonyms), 0o644))
	cust := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(cust, []byte(`{"幽遊白書": ["幽☆遊☆白書"]}`), 0o644))

	var seen *custom.Table
	factory := func(d *synonym.Dictionary, overrides *custom.Table, _ Sources) (normalize.Tokenizer, error) {
		seen = overrides
		return &wholeText{dict: d}, nil
	}
	reg := New(Sources{SynonymFile: syn, CustomFile: cust}, nil, WithTokenizerFactory(factory))
	require.NoError(t, reg.Load())
	require.NotNil(t, seen, "tokenizer factory receives the override table")
	assert.Equal(t, 1, seen.Len())

	got, err := reg.Normalize("幽☆遊☆白書", normalize.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "幽遊白書", got)
	assert.Equal(t, 1, reg.Stats().Overrides)

	res, err := reg.Lookup("幽☆遊☆白書")
	require.NoError(t, err)
	assert.Equal(t, "幽遊白書", res.Override)
	assert.Empty(t, res.Groups)
}

func TestRegistry_CustomMissing(t *testing.T) {
	env := setupRegistry(t)
	reg := New(Sources{SynonymFile: env.synonyms, CustomFile: filepath.Join(env.dir, "absent.csv")}, nil,
		WithTokenizerFactory(func(d *synonym.Dictionary, _ *custom.Table, _ Sources) (normalize.Tokenizer, error) {
			return &wholeText{dict: d}, nil
		}))
	assert.ErrorIs(t, reg.Load(), custom.ErrMissingSource)
}

func TestRegistry_LookupAndGroup(t *testing.T) {
	env := setupRegistry(t)

	res, err := env.reg.Lookup("PC")
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, 2, res.Groups[0].ID)
	assert.Equal(t, 3, res.Groups[1].ID)

	g, ok, err := env.reg.Group(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, g.Entries, 3)
	assert.Equal(t, "パソコン", g.Entries[1].Lemma)
	assert.Equal(t, "non_alphabetic", g.Entries[1].Abbreviation)
	assert.Equal(t, "taigen", g.Entries[1].Class)

	_, ok, err = env.reg.Group(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_Explain(t *testing.T) {
	env := setupRegistry(t)

	results, err := env.reg.Explain("パソコン", normalize.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, normalize.StageSelected, results[0].Stage)
	assert.Equal(t, "パーソナルコンピューター", results[0].Output)
}

func TestRegistry_ConcurrentReload(t *testing.T) {
	env := setupRegistry(t, WithCacheSize(8))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				assert.NoError(t, env.reg.Reload())
				return
			}
			got, err := env.reg.Normalize("パソコン", normalize.DefaultConfig())
			assert.NoError(t, err)
			assert.Equal(t, "パーソナルコンピューター", got)
		}()
	}
	wg.Wait()
}
