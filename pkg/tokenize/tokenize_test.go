package tokenize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/yurenorm/pkg/custom"
	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

const testSynonyms = `000001,1,0,1,0,0,0,(地名),アメリカ合衆国,,
000001,1,1,1,0,1,0,(地名),USA,,
000002,1,0,1,0,0,0,(IT),パーソナルコンピューター,,
000002,1,0,1,0,2,0,(IT),パソコン,,
000002,1,0,1,0,1,0,(IT),PC,,
000003,1,0,1,0,0,0,,ポリティカル・コレクトネス,,
000003,1,0,1,0,1,0,,PC,,
000004,1,0,1,0,0,0,,United States,,
`

func testDictionary(t *testing.T) *synonym.Dictionary {
	t.Helper()
	d, err := synonym.Read(strings.NewReader(testSynonyms), "test")
	require.NoError(t, err)
	return d
}

func collect(tk *Tokenizer, text string) []normalize.Token {
	var out []normalize.Token
	for tok := range tk.Tokenize(text) {
		out = append(out, tok)
	}
	return out
}

func TestTokenize_Concatenation(t *testing.T) {
	tk, err := New(testDictionary(t))
	require.NoError(t, err)

	for _, text := range []string{
		"パソコンを買った。",
		"USA と PC の話",
		"パーソナルコンピューターが壊れた",
		"　全角スペース　",
	} {
		var b strings.Builder
		for _, tok := range collect(tk, text) {
			b.WriteString(tok.Surface)
		}
		assert.Equal(t, text, b.String())
	}
}

func TestTokenize_LemmaDict(t *testing.T) {
	tk, err := New(testDictionary(t))
	require.NoError(t, err)

	toks := collect(tk, "パーソナルコンピューターを買う")
	require.NotEmpty(t, toks)
	assert.Equal(t, "パーソナルコンピューター", toks[0].Surface)
	assert.Equal(t, []int{2}, toks[0].GroupIDs)
	assert.True(t, normalize.POSClassifier{}.IsTaigen(toks[0]))
}

func TestTokenize_GroupIDs(t *testing.T) {
	tk, err := New(testDictionary(t))
	require.NoError(t, err)

	toks := collect(tk, "PC")
	require.Len(t, toks, 1)
	assert.Equal(t, []int{2, 3}, toks[0].GroupIDs)
}

func TestTokenize_BaseForm(t *testing.T) {
	tk, err := New(nil)
	require.NoError(t, err)

	toks := collect(tk, "走った")
	require.NotEmpty(t, toks)
	assert.Equal(t, "走っ", toks[0].Surface)
	assert.Equal(t, "走る", toks[0].Normalized)
	assert.True(t, normalize.POSClassifier{}.IsYougen(toks[0]))
}

func TestTokenize_UserDictFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")
	require.NoError(t, os.WriteFile(path, []byte("幽☆遊☆白書,幽☆遊☆白書,ユウユウハクショ,作品名\n"), 0o644))

	tk, err := New(testDictionary(t), WithUserDictFile(path))
	require.NoError(t, err)

	toks := collect(tk, "幽☆遊☆白書を読む")
	require.NotEmpty(t, toks)
	assert.Equal(t, "幽☆遊☆白書", toks[0].Surface)
	assert.Equal(t, []string{"作品名"}, toks[0].POS)
}

func TestTokenize_StopsEarly(t *testing.T) {
	tk, err := New(testDictionary(t))
	require.NoError(t, err)

	n := 0
	for range tk.Tokenize("パソコンとパソコンとパソコン") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestLemmaRecords(t *testing.T) {
	records, err := LemmaRecords(testDictionary(t))
	require.NoError(t, err)

	texts := make(map[string]bool)
	for _, r := range records {
		texts[r.Text] = true
	}
	assert.True(t, texts["パソコン"])
	assert.True(t, texts["PC"])
	assert.False(t, texts["United States"], "lemmas with spaces are not registered")
	assert.Len(t, records, 6)
}

func TestNormalizeWithKagome(t *testing.T) {
	d := testDictionary(t)
	tk, err := New(d)
	require.NoError(t, err)

	n := normalize.New(tk, normalize.NewEngine(d, nil, normalize.POSClassifier{}))
	got, err := n.Normalize("パソコンを買う", normalize.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "パーソナルコンピューターを買う", got)
}

func TestTokenize_Overrides(t *testing.T) {
	table := custom.New(custom.Entry{Canonical: "幽遊白書", Variants: []string{"幽☆遊☆白書", "幽★遊★白書"}})
	tk, err := New(testDictionary(t), WithOverrides(table))
	require.NoError(t, err)

	toks := collect(tk, "幽★遊★白書を読む")
	require.NotEmpty(t, toks)
	assert.Equal(t, "幽★遊★白書", toks[0].Surface)
	assert.Equal(t, []string{"名詞"}, toks[0].POS)
}

func TestOverrideRecords(t *testing.T) {
	table := custom.New(
		custom.Entry{Canonical: "幽遊白書", Variants: []string{"幽☆遊☆白書", "幽 遊 白書"}},
		custom.Entry{Canonical: "ユーエスエー", Variants: []string{"USA", "幽☆遊☆白書"}},
	)
	records, err := OverrideRecords(table)
	require.NoError(t, err)

	var texts []string
	for _, r := range records {
		texts = append(texts, r.Text)
	}
	assert.ElementsMatch(t, []string{"幽☆遊☆白書", "USA"}, texts)
}

func TestNormalizeWithKagome_CustomOverride(t *testing.T) {
	d := testDictionary(t)
	table := custom.New(custom.Entry{Canonical: "幽遊白書", Variants: []string{"幽☆遊☆白書"}})
	tk, err := New(d, WithOverrides(table))
	require.NoError(t, err)

	n := normalize.New(tk, normalize.NewEngine(d, table, normalize.POSClassifier{}))
	got, err := n.Normalize("幽☆遊☆白書を読む。", normalize.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "幽遊白書を読む。", got)

	// Overrides still apply when every dictionary category is off.
	cfg := normalize.Config{CustomSynonym: true}
	got, err = n.Normalize("幽☆遊☆白書を読む。", cfg)
	require.NoError(t, err)
	assert.Equal(t, "幽遊白書を読む。", got)
}
