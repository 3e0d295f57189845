// Package tokenize adapts the kagome morphological analyzer to the
// normalize.Tokenizer interface and annotates tokens with synonym group ids.
package tokenize

import (
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/hazyhaar/yurenorm/pkg/custom"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

// Tokenizer splits text with kagome and the IPA dictionary.
// It is safe for concurrent use.
type Tokenizer struct {
	kagome *tokenizer.Tokenizer
	dict   *synonym.Dictionary
	mode   tokenizer.TokenizeMode
}

type options struct {
	lemmaDict    bool
	userDictPath string
	overrides    *custom.Table
	mode         tokenizer.TokenizeMode
}

// Option configures New.
type Option func(*options)

// WithLemmaDict controls whether synonym lemmas are registered as kagome
// user dictionary words. Enabled by default.
func WithLemmaDict(enabled bool) Option {
	return func(o *options) { o.lemmaDict = enabled }
}

// WithUserDictFile adds the records of a kagome user dictionary file.
// Its records win over generated lemma records with the same text.
func WithUserDictFile(path string) Option {
	return func(o *options) { o.userDictPath = path }
}

// WithOverrides registers the surface forms of a custom override table as
// user dictionary nouns, so a variant such as 幽☆遊☆白書 reaches the engine
// as one token. Variants win over synonym lemmas with the same text;
// canonicals only fill gaps.
func WithOverrides(t *custom.Table) Option {
	return func(o *options) { o.overrides = t }
}

// WithMode sets the kagome tokenize mode. Default is tokenizer.Normal.
func WithMode(m tokenizer.TokenizeMode) Option {
	return func(o *options) { o.mode = m }
}

// New builds a tokenizer over d.
func New(d *synonym.Dictionary, opts ...Option) (*Tokenizer, error) {
	o := options{lemmaDict: true, mode: tokenizer.Normal}
	for _, opt := range opts {
		opt(&o)
	}

	var records dict.UserDictRecords
	if o.userDictPath != "" {
		f, err := os.Open(o.userDictPath)
		if err != nil {
			return nil, fmt.Errorf("open user dictionary: %w", err)
		}
		records, err = dict.NewUserDicRecords(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse user dictionary %s: %w", o.userDictPath, err)
		}
	}
	var canonicals dict.UserDictRecords
	if o.overrides != nil {
		variants, err := OverrideRecords(o.overrides)
		if err != nil {
			return nil, err
		}
		records = mergeRecords(records, variants)
		if canonicals, err = canonicalRecords(o.overrides); err != nil {
			return nil, err
		}
	}
	if o.lemmaDict && d != nil {
		generated, err := LemmaRecords(d)
		if err != nil {
			return nil, err
		}
		records = mergeRecords(records, generated)
	}
	records = mergeRecords(records, canonicals)

	kopts := []tokenizer.Option{tokenizer.OmitBosEos()}
	if len(records) > 0 {
		udict, err := records.NewUserDict()
		if err != nil {
			return nil, fmt.Errorf("build user dictionary: %w", err)
		}
		kopts = append(kopts, tokenizer.UserDict(udict))
	}

	k, err := tokenizer.New(ipa.Dict(), kopts...)
	if err != nil {
		return nil, fmt.Errorf("init kagome: %w", err)
	}
	return &Tokenizer{kagome: k, dict: d, mode: o.mode}, nil
}

// LemmaRecords returns user dictionary records for every synonym lemma
// that kagome can hold as one word. Taigen lemmas get POS 名詞, yougen
// lemmas 動詞; a lemma of both classes is registered as 名詞.
func LemmaRecords(d *synonym.Dictionary) (dict.UserDictRecords, error) {
	var b strings.Builder
	seen := make(map[string]struct{})
	write := func(lemmas []string, pos string) {
		for _, l := range lemmas {
			if !userDictSafe(l) {
				continue
			}
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			fmt.Fprintf(&b, "%s,%s,%s,%s\n", l, l, l, pos)
		}
	}
	write(d.Lemmas(synonym.Taigen), "名詞")
	write(d.Lemmas(synonym.Yougen), "動詞")

	records, err := dict.NewUserDicRecords(strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("generate lemma records: %w", err)
	}
	return records, nil
}

// OverrideRecords returns 名詞 user dictionary records for every variant
// of t that kagome can hold as one word.
func OverrideRecords(t *custom.Table) (dict.UserDictRecords, error) {
	var words []string
	for _, e := range t.Entries() {
		words = append(words, e.Variants...)
	}
	return nounRecords(words)
}

func canonicalRecords(t *custom.Table) (dict.UserDictRecords, error) {
	var words []string
	for _, e := range t.Entries() {
		words = append(words, e.Canonical)
	}
	return nounRecords(words)
}

func nounRecords(words []string) (dict.UserDictRecords, error) {
	var b strings.Builder
	seen := make(map[string]struct{})
	for _, w := range words {
		if !userDictSafe(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		fmt.Fprintf(&b, "%s,%s,%s,名詞\n", w, w, w)
	}
	if b.Len() == 0 {
		return nil, nil
	}
	records, err := dict.NewUserDicRecords(strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("generate override records: %w", err)
	}
	return records, nil
}

// userDictSafe reports whether s fits in one user dictionary row.
func userDictSafe(s string) bool {
	if s == "" || strings.HasPrefix(s, "#") {
		return false
	}
	return !strings.ContainsAny(s, ", \t\r\n　\"")
}

func mergeRecords(primary, extra dict.UserDictRecords) dict.UserDictRecords {
	seen := make(map[string]struct{}, len(primary))
	for _, r := range primary {
		seen[r.Text] = struct{}{}
	}
	out := primary
	for _, r := range extra {
		if _, ok := seen[r.Text]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Tokenize returns the tokens of text in order. Text between kagome tokens
// is emitted as plain tokens so surfaces concatenate back to text.
func (t *Tokenizer) Tokenize(text string) iter.Seq[normalize.Token] {
	return func(yield func(normalize.Token) bool) {
		pos := 0
		for _, k := range t.kagome.Analyze(text, t.mode) {
			if k.Position > pos {
				gap := text[pos:k.Position]
				if !yield(normalize.Token{Surface: gap, Normalized: gap}) {
					return
				}
			}
			if !yield(t.convert(k)) {
				return
			}
			pos = k.Position + len(k.Surface)
		}
		if pos < len(text) {
			yield(normalize.Token{Surface: text[pos:], Normalized: text[pos:]})
		}
	}
}

func (t *Tokenizer) convert(k tokenizer.Token) normalize.Token {
	tok := normalize.Token{
		Surface:    k.Surface,
		Normalized: k.Surface,
		POS:        k.POS(),
	}
	if base, ok := k.BaseForm(); ok && base != "" && base != "*" {
		tok.Normalized = base
	}
	if t.dict != nil {
		tok.GroupIDs = t.dict.GroupIDs(k.Surface)
	}
	return tok
}
