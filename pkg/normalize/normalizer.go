// Package normalize unifies Japanese lexical variation in text: each token
// is mapped to the representative lemma of its synonym group according to
// a resolved set of category options.
package normalize

import (
	"errors"
	"strings"
)

// ErrEmptyInput is returned when the text to normalize is empty.
var ErrEmptyInput = errors.New("input text is empty")

// TokenResult is the explained decision for one token.
type TokenResult struct {
	Token
	Decision
}

// Normalizer applies an Engine to every token of a text.
type Normalizer struct {
	tokenizer Tokenizer
	engine    *Engine
}

// New returns a normalizer reading tokens from tokenizer.
func New(tokenizer Tokenizer, engine *Engine) *Normalizer {
	return &Normalizer{tokenizer: tokenizer, engine: engine}
}

// Engine returns the decision engine.
func (n *Normalizer) Engine() *Engine {
	return n.engine
}

// Normalize resolves cfg and returns the normalized text.
func (n *Normalizer) Normalize(text string, cfg Config) (string, error) {
	if text == "" {
		return "", ErrEmptyInput
	}
	rc, err := Resolve(cfg)
	if err != nil {
		return "", err
	}
	return n.NormalizeResolved(text, rc), nil
}

// NormalizeResolved normalizes text with an already resolved config. When
// rc cannot change any token the text is returned without tokenizing.
func (n *Normalizer) NormalizeResolved(text string, rc Resolved) string {
	if rc.Noop() {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for tok := range n.tokenizer.Tokenize(text) {
		b.WriteString(n.engine.NormalizeToken(tok, rc))
	}
	return b.String()
}

// Explain returns the decision taken for every token of text. Unlike
// Normalize it always tokenizes.
func (n *Normalizer) Explain(text string, cfg Config) ([]TokenResult, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	rc, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	var out []TokenResult
	for tok := range n.tokenizer.Tokenize(text) {
		out = append(out, TokenResult{Token: tok, Decision: n.engine.Decide(tok, rc)})
	}
	return out, nil
}
