package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter implements Adapter for test seeding.
type fakeAdapter struct {
	id, dictID, desc, url, license string
}

func (f *fakeAdapter) ID() string          { return f.id }
func (f *fakeAdapter) DictID() string      { return f.dictID }
func (f *fakeAdapter) Description() string { return f.desc }
func (f *fakeAdapter) DefaultURL() string  { return f.url }
func (f *fakeAdapter) License() string     { return f.license }
func (f *fakeAdapter) Import(context.Context, string, string, *slog.Logger) (*Result, error) {
	return &Result{}, nil
}

func tempSourceDB(t *testing.T) *SourceDB {
	t.Helper()
	sdb, err := OpenSourceDB(filepath.Join(t.TempDir(), "sources.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

func TestOpenSourceDB_CreatesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	sdb, err := OpenSourceDB(path)
	require.NoError(t, err)
	defer sdb.Close()

	_, err = os.Stat(path)
	require.NoError(t, err, "db file not created")

	sources, err := sdb.ListSources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestSeedAndGetURL(t *testing.T) {
	sdb := tempSourceDB(t)

	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"a1", "d1", "desc1", "https://example.com/a1", "Apache-2.0"},
		&fakeAdapter{"a2", "d2", "desc2", "https://example.com/a2", "MIT"},
	}))

	url, err := sdb.GetURL("a1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a1", url)

	// Seeding again keeps the stored URL.
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"a1", "d1", "desc1", "https://changed.example.com/a1", "Apache-2.0"},
	}))
	url, err = sdb.GetURL("a1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a1", url)

	_, err = sdb.GetURL("missing")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSetURL(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"a1", "d1", "desc1", "https://example.com/original", "Apache-2.0"},
	}))

	require.NoError(t, sdb.SetURL("a1", "https://mirror.example.com/synonyms.txt"))
	url, err := sdb.GetURL("a1")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/synonyms.txt", url)

	assert.ErrorIs(t, sdb.SetURL("nonexistent", "https://example.com"), ErrUnknownSource)
}

func TestUpdateCheck(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"a1", "d1", "desc1", "https://example.com/a1", "Apache-2.0"},
	}))

	require.NoError(t, sdb.UpdateCheck("a1", 200, ""))
	sources, err := sdb.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	src := sources[0]
	require.NotNil(t, src.LastStatus)
	assert.Equal(t, 200, *src.LastStatus)
	require.NotNil(t, src.LastCheck)
	assert.NotZero(t, *src.LastCheck)
	assert.Nil(t, src.LastError)

	require.NoError(t, sdb.UpdateCheck("a1", 404, "not found"))
	sources, err = sdb.ListSources()
	require.NoError(t, err)
	src = sources[0]
	assert.Equal(t, 404, *src.LastStatus)
	require.NotNil(t, src.LastError)
	assert.Equal(t, "not found", *src.LastError)
}

func TestRecordImport(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"a1", "d1", "desc1", "https://example.com/a1", "Apache-2.0"},
	}))

	require.NoError(t, sdb.RecordImport("a1", &Result{Groups: 3, Entries: 7}))
	sources, err := sdb.ListSources()
	require.NoError(t, err)
	src := sources[0]
	require.NotNil(t, src.LastImport)
	assert.Equal(t, 3, src.Groups)
	assert.Equal(t, 7, src.Entries)

	assert.ErrorIs(t, sdb.RecordImport("nope", &Result{}), ErrUnknownSource)
}

func TestListSources_Order(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"z-last", "d1", "desc1", "https://example.com/z", "Apache-2.0"},
		&fakeAdapter{"a-first", "d2", "desc2", "https://example.com/a", "MIT"},
	}))

	sources, err := sdb.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "a-first", sources[0].AdapterID)
}

func TestRegisteredAdapters(t *testing.T) {
	a, err := Get("sudachi-synonyms")
	require.NoError(t, err)
	assert.Equal(t, "sudachi", a.DictID())
	assert.Contains(t, a.DefaultURL(), "synonyms.txt")

	_, err = Get("nope")
	assert.Error(t, err)

	ids := make([]string, 0)
	for _, a := range All() {
		ids = append(ids, a.ID())
	}
	assert.Contains(t, ids, "sudachi-synonyms")
}
