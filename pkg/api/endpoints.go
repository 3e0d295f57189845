package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazyhaar/yurenorm/pkg/kit"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/registry"
)

// maxBatch is the largest number of texts accepted by one batch call.
const maxBatch = 100

var (
	errInvalidRequest = errors.New("invalid request")
	errNotFound       = errors.New("not found")
)

// Shared request/response types used by both HTTP and MCP transports.

type normalizeReq struct {
	Text   string
	Config normalize.Config
}

type batchReq struct {
	Texts  []string
	Config normalize.Config
}

type lookupReq struct {
	Term string
}

type groupReq struct {
	ID int
}

type normalizeResponse struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
}

type batchResponse struct {
	Results []normalizeResponse `json:"results"`
}

type explainResponse struct {
	Text       string                  `json:"text"`
	Normalized string                  `json:"normalized"`
	Tokens     []normalize.TokenResult `json:"tokens"`
}

type reloadResponse struct {
	Status string         `json:"status"`
	Stats  registry.Stats `json:"stats"`
}

// endpoints groups the kit.Endpoints backed by the registry.
type endpoints struct {
	normalize kit.Endpoint
	batch     kit.Endpoint
	explain   kit.Endpoint
	lookup    kit.Endpoint
	group     kit.Endpoint
	reload    kit.Endpoint
}

func newEndpoints(reg *registry.Registry, logger *slog.Logger) *endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))(ep)
	}
	return &endpoints{
		normalize: wrap("normalize", normalizeEndpoint(reg)),
		batch:     wrap("normalize_batch", batchEndpoint(reg)),
		explain:   wrap("explain", explainEndpoint(reg)),
		lookup:    wrap("lookup", lookupEndpoint(reg)),
		group:     wrap("group", groupEndpoint(reg)),
		reload:    wrap("reload", reloadEndpoint(reg)),
	}
}

func normalizeEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		out, err := reg.Normalize(req.Text, req.Config)
		if err != nil {
			return nil, err
		}
		return normalizeResponse{Text: req.Text, Normalized: out}, nil
	}
}

func batchEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*batchReq)
		if len(req.Texts) == 0 {
			return nil, fmt.Errorf("%w: texts array is empty", errInvalidRequest)
		}
		if len(req.Texts) > maxBatch {
			return nil, fmt.Errorf("%w: too many texts (max %d, got %d)", errInvalidRequest, maxBatch, len(req.Texts))
		}
		results := make([]normalizeResponse, len(req.Texts))
		for i, text := range req.Texts {
			out, err := reg.Normalize(text, req.Config)
			if err != nil {
				return nil, fmt.Errorf("texts[%d]: %w", i, err)
			}
			results[i] = normalizeResponse{Text: text, Normalized: out}
		}
		return batchResponse{Results: results}, nil
	}
}

func explainEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		tokens, err := reg.Explain(req.Text, req.Config)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, t := range tokens {
			b.WriteString(t.Output)
		}
		return explainResponse{Text: req.Text, Normalized: b.String(), Tokens: tokens}, nil
	}
}

func lookupEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*lookupReq)
		if req.Term == "" {
			return nil, fmt.Errorf("%w: missing term", errInvalidRequest)
		}
		return reg.Lookup(req.Term)
	}
}

func groupEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*groupReq)
		g, ok, err := reg.Group(req.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("group %d: %w", req.ID, errNotFound)
		}
		return g, nil
	}
}

func reloadEndpoint(reg *registry.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		if err := reg.Reload(); err != nil {
			return nil, fmt.Errorf("reload: %w", err)
		}
		return reloadResponse{Status: "reloaded", Stats: reg.Stats()}, nil
	}
}

// statusFor maps endpoint errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, normalize.ErrEmptyInput),
		errors.Is(err, normalize.ErrInvalidConfig),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNotLoaded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
