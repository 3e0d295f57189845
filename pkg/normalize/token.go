package normalize

import (
	"iter"

	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

// Token is one unit produced by a Tokenizer.
type Token struct {
	Surface    string   `json:"surface"`
	Normalized string   `json:"normalized,omitempty"`
	POS        []string `json:"pos,omitempty"`
	GroupIDs   []int    `json:"group_ids,omitempty"`
}

// Tokenizer splits text into tokens whose surfaces concatenate back to the text.
// The returned sequence is lazy and single pass.
type Tokenizer interface {
	Tokenize(text string) iter.Seq[Token]
}

// Classifier reports the word class of a token.
type Classifier interface {
	IsTaigen(tok Token) bool
	IsYougen(tok Token) bool
}

// POSClassifier classifies tokens by the first element of their
// part-of-speech: 名詞 is taigen, 動詞 and 形容詞 are yougen.
type POSClassifier struct{}

// IsTaigen reports whether tok is a noun.
func (POSClassifier) IsTaigen(tok Token) bool {
	return len(tok.POS) > 0 && tok.POS[0] == "名詞"
}

// IsYougen reports whether tok is a verb or an adjective.
func (POSClassifier) IsYougen(tok Token) bool {
	return len(tok.POS) > 0 && (tok.POS[0] == "動詞" || tok.POS[0] == "形容詞")
}

// Dictionary is the group lookup the engine needs.
type Dictionary interface {
	Lookup(id int) (synonym.Group, bool)
}

// Overrides resolves a surface form to a user-defined canonical term.
type Overrides interface {
	Resolve(surface string) (string, bool)
}
