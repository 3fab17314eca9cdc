// ABOUTME: Shapes model responses into the text sent back to the channel
// ABOUTME: Cuts echoed trigger prefixes out of the reply
package bot

import (
	"strings"

	"github.com/harper/marcusbot/internal/models"
)

// ParseOutput returns the reply text for a message. For each prefix found
// in content the reply is cut at that prefix's first occurrence; the last
// matching prefix wins. A cut that leaves nothing falls back to the full
// text. missing is used when a prefix matched but the response has no text.
func ParseOutput(prefixes []string, content string, resp *models.Response, missing string) string {
	full := resp.Text()
	out := ""
	for _, prefix := range prefixes {
		if !strings.Contains(content, prefix) {
			continue
		}
		if full == "" {
			out = missing
			continue
		}
		if i := strings.Index(full, prefix); i != -1 {
			out = full[:i]
		} else {
			out = full
		}
	}
	if out == "" {
		out = full
	}
	return out
}
