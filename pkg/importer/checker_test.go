package importer

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func lastStatuses(t *testing.T, sdb *SourceDB) map[string]int {
	t.Helper()
	sources, err := sdb.ListSources()
	require.NoError(t, err)
	statuses := make(map[string]int)
	for _, src := range sources {
		if src.LastStatus != nil {
			statuses[src.AdapterID] = *src.LastStatus
		}
	}
	return statuses
}

func TestCheckAll_Mixed(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"ok-source", "d1", "OK source", statusServer(t, http.StatusOK).URL, "Apache-2.0"},
		&fakeAdapter{"redirect-source", "d2", "moved", statusServer(t, http.StatusMovedPermanently).URL, "Apache-2.0"},
		&fakeAdapter{"notfound-source", "d3", "404 source", statusServer(t, http.StatusNotFound).URL, "Apache-2.0"},
		&fakeAdapter{"error-source", "d4", "500 source", statusServer(t, http.StatusInternalServerError).URL, "Apache-2.0"},
	}))

	report := NewChecker(sdb, quietLogger(), time.Hour).CheckAll(context.Background())
	assert.Equal(t, CheckReport{OK: 2, Failed: 2}, report)

	assert.Equal(t, map[string]int{
		"ok-source":       200,
		"redirect-source": 301,
		"notfound-source": 404,
		"error-source":    500,
	}, lastStatuses(t, sdb))
}

func TestCheckAll_HeadNotAllowed(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{&fakeAdapter{"get-only", "d1", "get only", srv.URL, "MIT"}}))

	NewChecker(sdb, quietLogger(), time.Hour).CheckAll(context.Background())
	assert.Equal(t, 206, lastStatuses(t, sdb)["get-only"])
	assert.Equal(t, "bytes=0-0", gotRange)
}

func TestCheckAll_NetworkError(t *testing.T) {
	sdb := tempSourceDB(t)
	require.NoError(t, sdb.Seed([]Adapter{
		&fakeAdapter{"dead-source", "d1", "dead", "http://127.0.0.1:1", "Apache-2.0"},
	}))

	report := NewChecker(sdb, quietLogger(), time.Hour).CheckAll(context.Background())
	assert.Equal(t, 1, report.Failed)

	sources, err := sdb.ListSources()
	require.NoError(t, err)
	src := sources[0]
	require.NotNil(t, src.LastStatus)
	assert.Zero(t, *src.LastStatus)
	require.NotNil(t, src.LastError)
	assert.NotEmpty(t, *src.LastError)
}

func TestCheckAll_EmptyDB(t *testing.T) {
	report := NewChecker(tempSourceDB(t), quietLogger(), time.Hour).CheckAll(context.Background())
	assert.Zero(t, report)
}
