// ABOUTME: Noun extraction with part-of-speech tagging
// ABOUTME: Picks GIF search terms out of free-form chat messages
package text

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Nouns returns the tokens of content tagged as nouns (NN, NNS, NNP, NNPS)
func Nouns(content string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(content,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tagging message: %w", err)
	}

	var nouns []string
	for _, tok := range doc.Tokens() {
		if strings.HasPrefix(tok.Tag, "NN") {
			nouns = append(nouns, tok.Text)
		}
	}
	return nouns, nil
}
