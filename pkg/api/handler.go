package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hazyhaar/yurenorm/pkg/kit"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/registry"
)

// maxBody caps request bodies.
const maxBody = 256 * 1024

// NewRouter returns an http.Handler with all normalization API routes.
// defaults are the options applied to fields a request leaves out.
func NewRouter(reg *registry.Registry, defaults normalize.Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{
		ep:       newEndpoints(reg, logger),
		reg:      reg,
		defaults: defaults,
	}

	mux.HandleFunc("GET /v1/normalize/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/normalize/batch", h.handleBatch)
	mux.HandleFunc("POST /v1/normalize", h.handleNormalize)
	mux.HandleFunc("POST /v1/explain", h.handleExplain)
	mux.HandleFunc("GET /v1/synonyms/{term}", h.handleLookup)
	mux.HandleFunc("GET /v1/groups/{id}", h.handleGroup)
	mux.HandleFunc("POST /v1/reload", h.handleReload)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	ep       *endpoints
	reg      *registry.Registry
	defaults normalize.Config
}

// --- normalize ---

type httpNormalizeRequest struct {
	Text   string           `json:"text"`
	Config normalize.Config `json:"config"`
}

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	req := httpNormalizeRequest{Config: h.defaults}
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.ep.normalize(r.Context(), &normalizeReq{Text: req.Text, Config: req.Config})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- batch ---

type httpBatchRequest struct {
	Texts  []string         `json:"texts"`
	Config normalize.Config `json:"config"`
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	req := httpBatchRequest{Config: h.defaults}
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.ep.batch(r.Context(), &batchReq{Texts: req.Texts, Config: req.Config})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- explain ---

func (h *handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	req := httpNormalizeRequest{Config: h.defaults}
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.ep.explain(r.Context(), &normalizeReq{Text: req.Text, Config: req.Config})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- lookup ---

func (h *handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ep.lookup(r.Context(), &lookupReq{Term: r.PathValue("term")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "group id must be an integer")
		return
	}
	resp, err := h.ep.group(r.Context(), &groupReq{ID: id})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- reload ---

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ep.reload(r.Context(), nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status string         `json:"status"`
	Stats  registry.Stats `json:"stats"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s := h.reg.Stats()
	if !s.Loaded {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading", Stats: s})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Stats: s})
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates or assigns X-Request-ID and tags the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
