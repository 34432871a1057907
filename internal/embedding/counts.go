package embedding

import "sort"

// TokenCount is a token and its corpus frequency.
type TokenCount struct {
	Token string
	Count int
}

// CountTokens returns the tokens occurring at least minCount times across docs,
// ordered by descending count then token.
func CountTokens(docs [][]string, minCount int) []TokenCount {
	freq := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range doc {
			freq[tok]++
		}
	}
	out := make([]TokenCount, 0, len(freq))
	for tok, n := range freq {
		if n >= minCount {
			out = append(out, TokenCount{Token: tok, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	return out
}
