package bow

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

// Stop word list selectors accepted by LoadStopWords.
const (
	English = "english"
	None    = "none"
)

// EnglishStopWords returns bleve's English stop word list, sorted.
func EnglishStopWords() []string {
	tm := analysis.NewTokenMap()
	// The list is compiled in; a load error would mean a broken bleve release.
	if err := tm.LoadBytes(en.EnglishStopWords); err != nil {
		panic(fmt.Sprintf("load english stop words: %v", err))
	}
	return tokenMapWords(tm)
}

// LoadStopWords resolves a stop word selector: "english", "none" (or empty),
// or the path of a file with one word per line ("|" starts a comment).
func LoadStopWords(source string) ([]string, error) {
	switch source {
	case English:
		return EnglishStopWords(), nil
	case None, "":
		return nil, nil
	}
	tm := analysis.NewTokenMap()
	if err := tm.LoadFile(source); err != nil {
		return nil, fmt.Errorf("load stop words: %w", err)
	}
	return tokenMapWords(tm), nil
}

func tokenMapWords(tm analysis.TokenMap) []string {
	words := make([]string, 0, len(tm))
	for w := range tm {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
