package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/yurenorm/pkg/custom"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/registry"
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

// spaceTokenizer splits on ASCII spaces, keeping them as symbol tokens.
type spaceTokenizer struct {
	dict *synonym.Dictionary
}

func (s spaceTokenizer) Tokenize(text string) iter.Seq[normalize.Token] {
	return func(yield func(normalize.Token) bool) {
		for i, word := range strings.Split(text, " ") {
			if i > 0 && !yield(normalize.Token{Surface: " ", POS: []string{"記号"}}) {
				return
			}
			if word == "" {
				continue
			}
			if !yield(normalize.Token{Surface: word, POS: []string{"名詞"}, GroupIDs: s.dict.GroupIDs(word)}) {
				return
			}
		}
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synonyms.txt")
	require.NoError(t, os.WriteFile(path, []byte(testSynonyms), 0o644))

	reg := registry.New(registry.Sources{SynonymFile: path}, nil,
		registry.WithTokenizerFactory(func(d *synonym.Dictionary, _ *custom.Table, _ registry.Sources) (normalize.Tokenizer, error) {
			return spaceTokenizer{dict: d}, nil
		}))
	require.NoError(t, reg.Load())
	return reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNormalizeRoute(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	rec := do(t, h, http.MethodPost, "/v1/normalize", `{"text": "パソコン と USA"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[normalizeResponse](t, rec)
	assert.Equal(t, "パーソナルコンピューター と USA", resp.Normalized)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	// Request config overlays the defaults.
	rec = do(t, h, http.MethodPost, "/v1/normalize", `{"text": "USA", "config": {"expansion": "any"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "アメリカ合衆国", decode[normalizeResponse](t, rec).Normalized)
}

func TestNormalizeRoute_Errors(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty text", `{"text": ""}`, http.StatusBadRequest},
		{"invalid expansion", `{"text": "USA", "config": {"expansion": "always"}}`, http.StatusBadRequest},
		{"invalid json", `{"text":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/normalize", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestBatchRoute(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	rec := do(t, h, http.MethodPost, "/v1/normalize/batch", `{"texts": ["パソコン", "PC"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[batchResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "パーソナルコンピューター", resp.Results[0].Normalized)
	assert.Equal(t, "PC", resp.Results[1].Normalized)

	rec = do(t, h, http.MethodPost, "/v1/normalize/batch", `{"texts": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	texts := make([]string, maxBatch+1)
	for i := range texts {
		texts[i] = "PC"
	}
	body, _ := json.Marshal(map[string]any{"texts": texts})
	rec = do(t, h, http.MethodPost, "/v1/normalize/batch", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/normalize/batch", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExplainRoute(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	rec := do(t, h, http.MethodPost, "/v1/explain", `{"text": "PC パソコン"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Normalized string `json:"normalized"`
		Tokens     []struct {
			Surface string `json:"surface"`
			Output  string `json:"output"`
			Stage   string `json:"stage"`
			GroupID int    `json:"group_id"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PC パーソナルコンピューター", resp.Normalized)
	require.Len(t, resp.Tokens, 3)
	assert.Equal(t, "ambiguous", resp.Tokens[0].Stage)
	assert.Equal(t, "selected", resp.Tokens[2].Stage)
	assert.Equal(t, 2, resp.Tokens[2].GroupID)
}

func TestLookupRoutes(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	rec := do(t, h, http.MethodGet, "/v1/synonyms/PC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lookup := decode[registry.LookupResult](t, rec)
	require.Len(t, lookup.Groups, 2)
	assert.Equal(t, "ポリティカル・コレクトネス", lookup.Groups[1].Entries[0].Lemma)

	rec = do(t, h, http.MethodGet, "/v1/groups/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	group := decode[registry.GroupView](t, rec)
	assert.Equal(t, "from_group_only", group.Entries[1].Expansion)

	rec = do(t, h, http.MethodGet, "/v1/groups/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/groups/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReload(t *testing.T) {
	reg := testRegistry(t)
	h := NewRouter(reg, normalize.DefaultConfig(), nil)

	rec := do(t, h, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Stats.Groups)

	rec = do(t, h, http.MethodPost, "/v1/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reloaded", decode[reloadResponse](t, rec).Status)

	unloaded := NewRouter(registry.New(registry.Sources{}, nil), normalize.DefaultConfig(), nil)
	rec = do(t, unloaded, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, unloaded, http.MethodPost, "/v1/normalize", `{"text": "PC"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(testRegistry(t), normalize.DefaultConfig(), nil)
	rec := do(t, h, http.MethodOptions, "/v1/normalize", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := srv.GetTool(name)
	require.NotNil(t, tool, "tool %s not registered", name)
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPTools(t *testing.T) {
	srv := server.NewMCPServer("yurenorm-test", "0.0.0")
	RegisterMCPTools(srv, testRegistry(t), normalize.DefaultConfig(), nil)

	res := callTool(t, srv, "normalize_text", map[string]any{"text": "USA", "expansion": "any"})
	require.False(t, res.IsError, toolText(t, res))
	var resp normalizeResponse
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &resp))
	assert.Equal(t, "アメリカ合衆国", resp.Normalized)

	// Booleans are coerced from strings.
	res = callTool(t, srv, "normalize_text", map[string]any{"text": "パソコン", "taigen": "false"})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &resp))
	assert.Equal(t, "パソコン", resp.Normalized)

	res = callTool(t, srv, "normalize_text", map[string]any{"text": ""})
	assert.True(t, res.IsError)

	res = callTool(t, srv, "normalize_text", map[string]any{"text": "PC", "alias": "maybe"})
	assert.True(t, res.IsError)
	assert.Contains(t, toolText(t, res), "invalid arguments")

	res = callTool(t, srv, "lookup_synonyms", map[string]any{"term": "PC"})
	require.False(t, res.IsError)
	var lookup registry.LookupResult
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &lookup))
	assert.Len(t, lookup.Groups, 2)

	res = callTool(t, srv, "explain_text", map[string]any{"text": "パソコン"})
	require.False(t, res.IsError)
	assert.Contains(t, toolText(t, res), `"stage":"selected"`)
}

func TestDecodeTextArgs(t *testing.T) {
	text, cfg, err := decodeTextArgs(map[string]any{
		"text":        "テスト",
		"unify_level": "word_form",
		"yougen":      1,
		"misspelling": false,
	}, normalize.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "テスト", text)
	assert.Equal(t, normalize.UnifyWordForm, cfg.UnifyLevel)
	assert.True(t, cfg.Yougen)
	assert.False(t, cfg.Misspelling)
	assert.True(t, cfg.Alias, "unspecified options keep defaults")
}
