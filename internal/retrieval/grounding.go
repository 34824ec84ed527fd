package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mfenderov/ragchat/pkg/models"
)

// DefaultMaxContextChars bounds the assembled context when no budget is
// configured.
const DefaultMaxContextChars = 12000

// Grounding is the context handed to the model.
type Grounding struct {
	Entries []string
	Text    string
}

// Assemble renders each hit with an excerpt as "Document: <source>\n<text>"
// and joins the entries with a blank line. Entries that would push the text
// past maxChars are dropped; a first entry that alone exceeds it is cut.
// A non-positive maxChars disables the bound.
func Assemble(hits []models.SearchHit, maxChars int) Grounding {
	var g Grounding
	total := 0

	for _, hit := range hits {
		excerpt := strings.TrimSpace(hit.Excerpt)
		if excerpt == "" {
			continue
		}

		entry := fmt.Sprintf("Document: %s\n%s", source(hit), excerpt)

		size := len(entry)
		if len(g.Entries) > 0 {
			size += len("\n\n")
		}
		if maxChars > 0 && total+size > maxChars {
			if len(g.Entries) == 0 {
				g.Entries = append(g.Entries, truncate(entry, maxChars))
			}
			break
		}

		g.Entries = append(g.Entries, entry)
		total += size
	}

	g.Text = strings.TrimSpace(strings.Join(g.Entries, "\n\n"))
	return g
}

func source(hit models.SearchHit) string {
	switch {
	case hit.Title != "":
		return hit.Title
	case hit.DocumentID != "":
		return hit.DocumentID
	default:
		return "Document"
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}
