package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

const testSynonyms = `000001,1,0,1,0,0,0,(地名),アメリカ合衆国,,
000001,1,1,1,0,1,0,(地名),USA,,
000002,1,0,1,0,0,0,(IT),パーソナルコンピューター,,
000002,1,0,1,0,2,0,(IT),パソコン,,
000002,1,0,1,0,1,0,(IT),PC,,
`

func serveText(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSudachiImport(t *testing.T) {
	srv := serveText(t, testSynonyms)
	out := t.TempDir()

	res, err := (&sudachiAdapter{}).Import(context.Background(), srv.URL, out, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "sudachi"), res.Dir)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, 5, res.Entries)
	assert.EqualValues(t, len(testSynonyms), res.Bytes)

	for _, name := range []string{"data.csv", "data.gob", "manifest.yaml"} {
		_, err := os.Stat(filepath.Join(res.Dir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(res.Dir, "data.csv.part"))
	assert.True(t, os.IsNotExist(err))

	d, err := synonym.LoadDir(res.Dir)
	require.NoError(t, err)
	assert.Equal(t, 2, d.GroupCount())
	assert.Equal(t, srv.URL, d.Manifest.SourceURL)
	assert.Equal(t, []int{2}, d.GroupIDs("パソコン"))
}

func TestSudachiImport_Malformed(t *testing.T) {
	srv := serveText(t, "000001,1,0\n")
	out := t.TempDir()

	_, err := (&sudachiAdapter{}).Import(context.Background(), srv.URL, out, quietLogger())
	assert.ErrorIs(t, err, synonym.ErrMalformedEntry)

	_, err = os.Stat(filepath.Join(out, "sudachi", "data.gob"))
	assert.True(t, os.IsNotExist(err), "nothing installed on validation failure")
}

func TestSudachiImport_Empty(t *testing.T) {
	srv := serveText(t, "")
	_, err := (&sudachiAdapter{}).Import(context.Background(), srv.URL, t.TempDir(), quietLogger())
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestSudachiImport_ReplacesPrevious(t *testing.T) {
	out := t.TempDir()
	a := &sudachiAdapter{}

	_, err := a.Import(context.Background(), serveText(t, testSynonyms).URL, out, quietLogger())
	require.NoError(t, err)

	updated := "000009,1,0,1,0,0,0,,東京,,\n000009,1,0,1,3,0,0,,江戸,,\n"
	res, err := a.Import(context.Background(), serveText(t, updated).URL, out, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)

	d, err := synonym.LoadDir(res.Dir)
	require.NoError(t, err)
	assert.Empty(t, d.GroupIDs("パソコン"))
	assert.Equal(t, []int{9}, d.GroupIDs("江戸"))
}
