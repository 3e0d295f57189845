package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when an enum field of Config holds an unknown value.
var ErrInvalidConfig = errors.New("invalid normalization config")

// UnifyLevel is the granularity at which group narrowing stops.
type UnifyLevel string

const (
	UnifyLexeme       UnifyLevel = "lexeme"
	UnifyWordForm     UnifyLevel = "word_form"
	UnifyAbbreviation UnifyLevel = "abbreviation"
)

// ExpansionPolicy decides which entries may trigger expansion.
type ExpansionPolicy string

const (
	// ExpansionAny lets entries flagged always or from-group-only trigger.
	ExpansionAny ExpansionPolicy = "any"
	// ExpansionFromAnother lets only entries flagged always trigger.
	ExpansionFromAnother ExpansionPolicy = "from_another"
)

// Config is the user-facing set of normalization options.
// Empty UnifyLevel and Expansion take their defaults on Resolve.
type Config struct {
	UnifyLevel UnifyLevel      `json:"unify_level" yaml:"unify_level"`
	Taigen     bool            `json:"taigen" yaml:"taigen"`
	Yougen     bool            `json:"yougen" yaml:"yougen"`
	Expansion  ExpansionPolicy `json:"expansion" yaml:"expansion"`

	OtherLanguage             bool `json:"other_language" yaml:"other_language"`
	Alias                     bool `json:"alias" yaml:"alias"`
	OldName                   bool `json:"old_name" yaml:"old_name"`
	Misuse                    bool `json:"misuse" yaml:"misuse"`
	AlphabeticAbbreviation    bool `json:"alphabetic_abbreviation" yaml:"alphabetic_abbreviation"`
	NonAlphabeticAbbreviation bool `json:"non_alphabetic_abbreviation" yaml:"non_alphabetic_abbreviation"`
	Alphabet                  bool `json:"alphabet" yaml:"alphabet"`
	OrthographicVariation     bool `json:"orthographic_variation" yaml:"orthographic_variation"`
	Misspelling               bool `json:"misspelling" yaml:"misspelling"`
	CustomSynonym             bool `json:"custom_synonym" yaml:"custom_synonym"`
}

// DefaultConfig returns the default options: taigen only, from_another
// expansion, lexeme unify level, every category enabled.
func DefaultConfig() Config {
	return Config{
		UnifyLevel:                UnifyLexeme,
		Taigen:                    true,
		Yougen:                    false,
		Expansion:                 ExpansionFromAnother,
		OtherLanguage:             true,
		Alias:                     true,
		OldName:                   true,
		Misuse:                    true,
		AlphabeticAbbreviation:    true,
		NonAlphabeticAbbreviation: true,
		Alphabet:                  true,
		OrthographicVariation:     true,
		Misspelling:               true,
		CustomSynonym:             true,
	}
}

// Resolved is a Config after validation and implication. It is the only
// form the engine consumes; build it with Resolve.
type Resolved struct {
	UnifyLevel UnifyLevel      `json:"unify_level"`
	Taigen     bool            `json:"taigen"`
	Yougen     bool            `json:"yougen"`
	Expansion  ExpansionPolicy `json:"expansion"`

	OtherLanguage             bool `json:"other_language"`
	Alias                     bool `json:"alias"`
	OldName                   bool `json:"old_name"`
	Misuse                    bool `json:"misuse"`
	AlphabeticAbbreviation    bool `json:"alphabetic_abbreviation"`
	NonAlphabeticAbbreviation bool `json:"non_alphabetic_abbreviation"`
	Alphabet                  bool `json:"alphabet"`
	OrthographicVariation     bool `json:"orthographic_variation"`
	Misspelling               bool `json:"misspelling"`
	CustomSynonym             bool `json:"custom_synonym"`
}

// Resolve validates cfg and applies the category implications in order:
//  1. alphabet, orthographic_variation or misspelling enables both
//     abbreviation categories;
//  2. either abbreviation category enables other_language, alias,
//     old_name and misuse.
//
// cfg is taken by value and never modified.
func Resolve(cfg Config) (Resolved, error) {
	switch cfg.UnifyLevel {
	case "":
		cfg.UnifyLevel = UnifyLexeme
	case UnifyLexeme, UnifyWordForm, UnifyAbbreviation:
	default:
		return Resolved{}, fmt.Errorf("%w: unify_level %q (want lexeme, word_form or abbreviation)", ErrInvalidConfig, cfg.UnifyLevel)
	}
	switch cfg.Expansion {
	case "":
		cfg.Expansion = ExpansionFromAnother
	case ExpansionAny, ExpansionFromAnother:
	default:
		return Resolved{}, fmt.Errorf("%w: expansion %q (want any or from_another)", ErrInvalidConfig, cfg.Expansion)
	}

	r := Resolved(cfg)
	if r.Alphabet || r.OrthographicVariation || r.Misspelling {
		r.AlphabeticAbbreviation = true
		r.NonAlphabeticAbbreviation = true
	}
	if r.AlphabeticAbbreviation || r.NonAlphabeticAbbreviation {
		r.OtherLanguage = true
		r.Alias = true
		r.OldName = true
		r.Misuse = true
	}
	return r, nil
}

// Noop reports whether normalization cannot change any token, so text can
// be returned without tokenizing.
func (r Resolved) Noop() bool {
	return !r.CustomSynonym && !r.lexemeCategories()
}

func (r Resolved) lexemeCategories() bool {
	return r.OtherLanguage || r.Alias || r.OldName || r.Misuse
}

func (r Resolved) abbreviationCategories() bool {
	return r.AlphabeticAbbreviation || r.NonAlphabeticAbbreviation
}

func (r Resolved) spellingCategories() bool {
	return r.Alphabet || r.OrthographicVariation || r.Misspelling
}

func (r Resolved) anyCategory() bool {
	return r.lexemeCategories() || r.abbreviationCategories() || r.spellingCategories()
}
