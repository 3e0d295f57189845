package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/hazyhaar/yurenorm/pkg/kit"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/registry"
)

// RegisterMCPTools registers the normalization MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *registry.Registry, defaults normalize.Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ep := newEndpoints(reg, logger)

	kit.RegisterMCPTool(srv, configTool("normalize_text",
		"Normalize Japanese lexical variation (synonyms, abbreviations, spelling variants) in a text to canonical forms.",
	), ep.normalize, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		text, cfg, err := decodeTextArgs(req.GetArguments(), defaults)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &normalizeReq{Text: text, Config: cfg}}, nil
	})

	kit.RegisterMCPTool(srv, configTool("explain_text",
		"Normalize a text and report, for every token, the synonym group and the decision stage that produced its output.",
	), ep.explain, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		text, cfg, err := decodeTextArgs(req.GetArguments(), defaults)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &normalizeReq{Text: text, Config: cfg}}, nil
	})

	lookup := mcp.NewTool("lookup_synonyms",
		mcp.WithDescription("List the synonym groups a term belongs to, with every entry and its variant kind."),
		mcp.WithString("term", mcp.Required(), mcp.Description("The exact surface form to look up")),
	)
	kit.RegisterMCPTool(srv, lookup, ep.lookup, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		term, err := cast.ToStringE(req.GetArguments()["term"])
		if err != nil {
			return nil, fmt.Errorf("term: %w", err)
		}
		return &kit.MCPDecodeResult{Request: &lookupReq{Term: strings.TrimSpace(term)}}, nil
	})
}

// boolOptions lists the boolean option names accepted by the text tools.
var boolOptions = []struct {
	name string
	desc string
	set  func(*normalize.Config, bool)
}{
	{"taigen", "Normalize nouns", func(c *normalize.Config, v bool) { c.Taigen = v }},
	{"yougen", "Normalize verbs and adjectives", func(c *normalize.Config, v bool) { c.Yougen = v }},
	{"other_language", "Unify foreign-language equivalents", func(c *normalize.Config, v bool) { c.OtherLanguage = v }},
	{"alias", "Unify aliases", func(c *normalize.Config, v bool) { c.Alias = v }},
	{"old_name", "Unify old names", func(c *normalize.Config, v bool) { c.OldName = v }},
	{"misuse", "Unify misused forms", func(c *normalize.Config, v bool) { c.Misuse = v }},
	{"alphabetic_abbreviation", "Unify alphabetic abbreviations", func(c *normalize.Config, v bool) { c.AlphabeticAbbreviation = v }},
	{"non_alphabetic_abbreviation", "Unify non-alphabetic abbreviations", func(c *normalize.Config, v bool) { c.NonAlphabeticAbbreviation = v }},
	{"alphabet", "Unify alphabetic notations", func(c *normalize.Config, v bool) { c.Alphabet = v }},
	{"orthographic_variation", "Unify orthographic variants", func(c *normalize.Config, v bool) { c.OrthographicVariation = v }},
	{"misspelling", "Unify misspellings", func(c *normalize.Config, v bool) { c.Misspelling = v }},
	{"custom_synonym", "Apply custom synonym overrides", func(c *normalize.Config, v bool) { c.CustomSynonym = v }},
}

func configTool(name, desc string) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithString("text", mcp.Required(), mcp.Description("The Japanese text to normalize")),
		mcp.WithString("unify_level", mcp.Description("lexeme, word_form or abbreviation"),
			mcp.Enum(string(normalize.UnifyLexeme), string(normalize.UnifyWordForm), string(normalize.UnifyAbbreviation))),
		mcp.WithString("expansion", mcp.Description("any or from_another"),
			mcp.Enum(string(normalize.ExpansionAny), string(normalize.ExpansionFromAnother))),
	}
	for _, o := range boolOptions {
		opts = append(opts, mcp.WithBoolean(o.name, mcp.Description(o.desc)))
	}
	return mcp.NewTool(name, opts...)
}

// decodeTextArgs reads text and overlays the given options on defaults.
// Values are coerced, so "true", 1 and true are all accepted for booleans.
func decodeTextArgs(args map[string]any, defaults normalize.Config) (string, normalize.Config, error) {
	cfg := defaults
	text, err := cast.ToStringE(args["text"])
	if err != nil {
		return "", cfg, fmt.Errorf("text: %w", err)
	}
	if v, ok := args["unify_level"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return "", cfg, fmt.Errorf("unify_level: %w", err)
		}
		cfg.UnifyLevel = normalize.UnifyLevel(s)
	}
	if v, ok := args["expansion"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return "", cfg, fmt.Errorf("expansion: %w", err)
		}
		cfg.Expansion = normalize.ExpansionPolicy(s)
	}
	for _, o := range boolOptions {
		v, ok := args[o.name]
		if !ok {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return "", cfg, fmt.Errorf("%s: %w", o.name, err)
		}
		o.set(&cfg, b)
	}
	return text, cfg, nil
}
