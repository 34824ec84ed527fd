// Package retrieval turns raw search hits into grounding context: hits
// outside the caller's tenant or off the focus document are discarded, the
// rest are rendered into one bounded text block.
package retrieval

import (
	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

// Validation is the outcome of Validate.
type Validation struct {
	Hits          []models.SearchHit
	DroppedTenant int
	DroppedFocus  int
}

// Validate keeps, in provider order, the hits owned by scope and, when
// focus is non-empty, matching the focus document.
func Validate(hits []models.SearchHit, scope access.Scope, focus reference.Set) Validation {
	var v Validation
	for _, hit := range hits {
		if !scope.Covers(hit.DocumentID, hit.DocumentURI) {
			v.DroppedTenant++
			continue
		}
		if len(focus) > 0 && !matchesFocus(hit, focus) {
			v.DroppedFocus++
			continue
		}
		v.Hits = append(v.Hits, hit)
	}
	return v
}

func matchesFocus(hit models.SearchHit, focus reference.Set) bool {
	candidates := reference.Set{}
	add := func(v string) {
		if v == "" {
			return
		}
		candidates.Add(v)
		candidates.Add(reference.Tail(v))
	}

	add(hit.DocumentID)
	add(hit.DocumentURI)
	for _, v := range hit.Attributes {
		add(v)
	}
	return candidates.Intersects(focus)
}
