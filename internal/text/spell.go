// ABOUTME: Spelling correction of message tokens toward a known vocabulary
// ABOUTME: Lets misspelled intent keywords ("pictur", "imgae") still trigger the right model
package text

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Corrector maps near-miss tokens onto vocabulary words
type Corrector struct {
	vocab []string
	known map[string]bool
}

// NewCorrector builds a corrector for the given vocabulary (case-insensitive)
func NewCorrector(vocab ...[]string) *Corrector {
	c := &Corrector{known: make(map[string]bool)}
	for _, words := range vocab {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || c.known[w] {
				continue
			}
			c.known[w] = true
			c.vocab = append(c.vocab, w)
		}
	}
	return c
}

// Correct splits content on whitespace and returns one lower-cased token
// per word, replaced by the closest vocabulary word when it is within the
// allowed edit distance.
func (c *Corrector) Correct(content string) []string {
	words := strings.Fields(content)
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, c.word(w))
	}
	return out
}

func (c *Corrector) word(w string) string {
	token := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
	if token == "" || c.known[token] {
		return token
	}

	limit := maxDistance(token)
	best, bestDist := token, limit+1
	for _, v := range c.vocab {
		// Length gap alone already exceeds the limit
		if abs(len(v)-len(token)) > limit {
			continue
		}
		if d := levenshtein.ComputeDistance(token, v); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

func maxDistance(token string) int {
	switch n := len([]rune(token)); {
	case n < 4:
		return 0
	case n < 7:
		return 1
	default:
		return 2
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ContainsAny reports whether any of words appears in tokens
func ContainsAny(tokens []string, words []string) bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, w := range words {
		if set[strings.ToLower(w)] {
			return true
		}
	}
	return false
}
