package normalize

import "github.com/hazyhaar/yurenorm/pkg/synonym"

// Stage names the step of the decision cascade that produced a Decision.
type Stage string

const (
	StageOverride     Stage = "override"
	StageDisabled     Stage = "disabled"
	StageClass        Stage = "class"
	StageTrivial      Stage = "trivial"
	StageNoGroup      Stage = "no_group"
	StageAmbiguous    Stage = "ambiguous"
	StageUnknownGroup Stage = "unknown_group"
	StageClassFilter  Stage = "class_filter"
	StageNotInGroup   Stage = "not_in_group"
	StageExpansion    Stage = "expansion"
	StageLexeme       Stage = "lexeme"
	StageWordForm     Stage = "word_form"
	StageSpelling     Stage = "spelling"
	StageSelected     Stage = "selected"
)

// Decision is the outcome of normalizing one token.
// Only StageOverride and StageSelected may change the surface.
type Decision struct {
	Output  string `json:"output"`
	Stage   Stage  `json:"stage"`
	GroupID int    `json:"group_id,omitempty"`
}

// Engine decides the canonical form of single tokens. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	dict       Dictionary
	overrides  Overrides
	classifier Classifier
}

// NewEngine returns an engine over dict. overrides may be nil.
func NewEngine(dict Dictionary, overrides Overrides, classifier Classifier) *Engine {
	return &Engine{dict: dict, overrides: overrides, classifier: classifier}
}

// NormalizeToken returns the normalized surface of tok.
func (e *Engine) NormalizeToken(tok Token, rc Resolved) string {
	return e.Decide(tok, rc).Output
}

// Decide runs the decision cascade for tok. Every step that does not apply
// returns the surface unchanged.
func (e *Engine) Decide(tok Token, rc Resolved) Decision {
	var groupID int
	keep := func(s Stage) Decision {
		return Decision{Output: tok.Surface, Stage: s, GroupID: groupID}
	}

	if e.overrides != nil {
		if canonical, ok := e.overrides.Resolve(tok.Surface); ok {
			return Decision{Output: canonical, Stage: StageOverride}
		}
	}
	if !rc.lexemeCategories() {
		return keep(StageDisabled)
	}

	isYougen := e.classifier.IsYougen(tok)
	isTaigen := e.classifier.IsTaigen(tok)
	if !(rc.Yougen && isYougen) && !(rc.Taigen && isTaigen) {
		return keep(StageClass)
	}
	if !isYougen && !rc.anyCategory() {
		return keep(StageTrivial)
	}

	switch len(tok.GroupIDs) {
	case 0:
		return keep(StageNoGroup)
	case 1:
	default:
		return keep(StageAmbiguous)
	}
	groupID = tok.GroupIDs[0]
	group, ok := e.dict.Lookup(groupID)
	if !ok {
		return keep(StageUnknownGroup)
	}
	if isYougen {
		group = group.ForClass(synonym.Yougen)
	} else {
		group = group.ForClass(synonym.Taigen)
	}
	if len(group) == 0 {
		return keep(StageClassFilter)
	}

	own, ok := group.Find(tok.Surface)
	if !ok {
		return keep(StageNotInGroup)
	}
	if !rc.triggers(own.Expansion) {
		return keep(StageExpansion)
	}

	if rc.lexemeCategories() {
		if !rc.wordFormEligible(own.WordForm) {
			return keep(StageLexeme)
		}
		group = group.Filter(func(s synonym.Entry) bool { return s.LexemeID == own.LexemeID })
	}

	if rc.abbreviationCategories() || rc.spellingCategories() {
		if !rc.abbreviationEligible(own.Abbreviation) {
			return keep(StageWordForm)
		}
		if rc.UnifyLevel != UnifyLexeme {
			group = group.Filter(func(s synonym.Entry) bool { return s.WordForm == own.WordForm })
		}
	}

	if rc.spellingCategories() {
		if !rc.spellingEligible(own.Spelling) {
			return keep(StageSpelling)
		}
		if rc.UnifyLevel == UnifyAbbreviation {
			group = group.Filter(func(s synonym.Entry) bool { return s.Abbreviation == own.Abbreviation })
		}
	}

	// The token's own entry always survives narrowing, so group is non-empty.
	return Decision{Output: group[0].Lemma, Stage: StageSelected, GroupID: groupID}
}

func (r Resolved) triggers(x synonym.Expansion) bool {
	switch r.Expansion {
	case ExpansionAny:
		return x == synonym.ExpandAlways || x == synonym.ExpandFromGroupOnly
	case ExpansionFromAnother:
		return x == synonym.ExpandAlways
	}
	return false
}

func (r Resolved) wordFormEligible(w synonym.WordForm) bool {
	switch w {
	case synonym.WordFormRepresentative:
		return true
	case synonym.WordFormTranslation:
		return r.OtherLanguage
	case synonym.WordFormAlias:
		return r.Alias
	case synonym.WordFormOldName:
		return r.OldName
	case synonym.WordFormMisuse:
		return r.Misuse
	}
	return false
}

func (r Resolved) abbreviationEligible(a synonym.Abbreviation) bool {
	switch a {
	case synonym.AbbreviationRepresentative:
		return true
	case synonym.AbbreviationAlphabetic:
		return r.AlphabeticAbbreviation
	case synonym.AbbreviationNonAlphabetic:
		return r.NonAlphabeticAbbreviation
	}
	return false
}

func (r Resolved) spellingEligible(s synonym.Spelling) bool {
	switch s {
	case synonym.SpellingRepresentative:
		return true
	case synonym.SpellingAlphabetic:
		return r.Alphabet
	case synonym.SpellingOrthographic:
		return r.OrthographicVariation
	case synonym.SpellingMisspelling:
		return r.Misspelling
	}
	return false
}
