package synonym

import "fmt"

// Class distinguishes noun-class (taigen) from verb/adjective-class (yougen) entries.
type Class int

const (
	Taigen Class = 1
	Yougen Class = 2
)

// Expansion is the per-entry expansion control flag.
type Expansion int

const (
	// ExpandAlways entries always trigger expansion.
	ExpandAlways Expansion = 0
	// ExpandFromGroupOnly entries never trigger expansion themselves but are
	// reachable from other entries of the same group.
	ExpandFromGroupOnly Expansion = 1
	// ExpandNever entries are kept as deletion history only.
	ExpandNever Expansion = 2
)

// WordForm is the word form kind inside one lexeme.
type WordForm int

const (
	WordFormRepresentative WordForm = 0
	WordFormTranslation    WordForm = 1
	WordFormAlias          WordForm = 2
	WordFormOldName        WordForm = 3
	WordFormMisuse         WordForm = 4
)

// Abbreviation is the abbreviation kind of an entry.
type Abbreviation int

const (
	AbbreviationRepresentative Abbreviation = 0
	AbbreviationAlphabetic     Abbreviation = 1
	AbbreviationNonAlphabetic  Abbreviation = 2
)

// Spelling is the spelling variation kind of an entry.
type Spelling int

const (
	SpellingRepresentative Spelling = 0
	SpellingAlphabetic     Spelling = 1
	SpellingOrthographic   Spelling = 2
	SpellingMisspelling    Spelling = 3
)

func (c Class) String() string {
	switch c {
	case Taigen:
		return "taigen"
	case Yougen:
		return "yougen"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

func (e Expansion) String() string {
	switch e {
	case ExpandAlways:
		return "always"
	case ExpandFromGroupOnly:
		return "from_group_only"
	case ExpandNever:
		return "never"
	}
	return fmt.Sprintf("expansion(%d)", int(e))
}

func (w WordForm) String() string {
	switch w {
	case WordFormRepresentative:
		return "representative"
	case WordFormTranslation:
		return "translation"
	case WordFormAlias:
		return "alias"
	case WordFormOldName:
		return "old_name"
	case WordFormMisuse:
		return "misuse"
	}
	return fmt.Sprintf("word_form(%d)", int(w))
}

func (a Abbreviation) String() string {
	switch a {
	case AbbreviationRepresentative:
		return "representative"
	case AbbreviationAlphabetic:
		return "alphabetic"
	case AbbreviationNonAlphabetic:
		return "non_alphabetic"
	}
	return fmt.Sprintf("abbreviation(%d)", int(a))
}

func (s Spelling) String() string {
	switch s {
	case SpellingRepresentative:
		return "representative"
	case SpellingAlphabetic:
		return "alphabetic"
	case SpellingOrthographic:
		return "orthographic"
	case SpellingMisspelling:
		return "misspelling"
	}
	return fmt.Sprintf("spelling(%d)", int(s))
}

func parseClass(code int) (Class, error) {
	switch c := Class(code); c {
	case Taigen, Yougen:
		return c, nil
	}
	return 0, fmt.Errorf("unknown taigen/yougen code %d", code)
}

func parseExpansion(code int) (Expansion, error) {
	switch e := Expansion(code); e {
	case ExpandAlways, ExpandFromGroupOnly, ExpandNever:
		return e, nil
	}
	return 0, fmt.Errorf("unknown expansion code %d", code)
}

func parseWordForm(code int) (WordForm, error) {
	if code < int(WordFormRepresentative) || code > int(WordFormMisuse) {
		return 0, fmt.Errorf("unknown word form code %d", code)
	}
	return WordForm(code), nil
}

func parseAbbreviation(code int) (Abbreviation, error) {
	if code < int(AbbreviationRepresentative) || code > int(AbbreviationNonAlphabetic) {
		return 0, fmt.Errorf("unknown abbreviation code %d", code)
	}
	return Abbreviation(code), nil
}

func parseSpelling(code int) (Spelling, error) {
	if code < int(SpellingRepresentative) || code > int(SpellingMisspelling) {
		return 0, fmt.Errorf("unknown spelling code %d", code)
	}
	return Spelling(code), nil
}

// Entry is one row of the synonym dictionary.
type Entry struct {
	Class        Class        `json:"class"`
	Expansion    Expansion    `json:"expansion"`
	LexemeID     int          `json:"lexeme_id"`
	WordForm     WordForm     `json:"word_form"`
	Abbreviation Abbreviation `json:"abbreviation"`
	Spelling     Spelling     `json:"spelling"`
	Field        string       `json:"field,omitempty"`
	Lemma        string       `json:"lemma"`
}

// Group is the ordered list of entries sharing one group id.
// Order is the row order of the source file; the representative entry of
// each lexeme comes first.
type Group []Entry

// ForClass returns the entries of class c, preserving order.
func (g Group) ForClass(c Class) Group {
	var out Group
	for _, e := range g {
		if e.Class == c {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entry whose lemma equals surface.
func (g Group) Find(surface string) (Entry, bool) {
	for _, e := range g {
		if e.Lemma == surface {
			return e, true
		}
	}
	return Entry{}, false
}

// Filter returns the entries for which keep returns true, preserving order.
func (g Group) Filter(keep func(Entry) bool) Group {
	var out Group
	for _, e := range g {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
