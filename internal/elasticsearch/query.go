package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mfenderov/ragchat/internal/filter"
	"github.com/mfenderov/ragchat/pkg/models"
)

// excerptFallbackChars bounds the excerpt taken from content when the
// search produced no highlight.
const excerptFallbackChars = 300

// BuildQuery renders a full-text query over content and title, restricted
// by f when it is non-nil.
func BuildQuery(text string, pageSize int, f filter.Expression) map[string]interface{} {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":  text,
			"fields": []string{"content", "title^2"},
		},
	}

	query := match
	if f != nil {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   match,
				"filter": []interface{}{translate(f)},
			},
		}
	}

	return map[string]interface{}{
		"query": query,
		"size":  pageSize,
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"content": map[string]interface{}{
					"fragment_size":       excerptFallbackChars,
					"number_of_fragments": 1,
				},
			},
			"pre_tags":  []string{""},
			"post_tags": []string{""},
		},
	}
}

func translate(f filter.Expression) map[string]interface{} {
	switch e := f.(type) {
	case filter.Equals:
		return map[string]interface{}{
			"term": map[string]interface{}{e.Field: e.Value},
		}
	case filter.Contains:
		should := make([]interface{}, 0, len(e.Values))
		for _, v := range e.Values {
			should = append(should, map[string]interface{}{
				"wildcard": map[string]interface{}{
					e.Field: map[string]interface{}{"value": "*" + escapeWildcard(v) + "*"},
				},
			})
		}
		if len(should) == 1 {
			return should[0].(map[string]interface{})
		}
		return anyOf(should)
	case filter.Or:
		should := make([]interface{}, 0, len(e.Children))
		for _, child := range e.Children {
			should = append(should, translate(child))
		}
		return anyOf(should)
	default:
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
}

func anyOf(should []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(v string) string {
	return wildcardEscaper.Replace(v)
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source    models.Document     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a filtered full-text search and returns at most pageSize hits
// in relevance order.
func (c *Client) Query(ctx context.Context, text string, pageSize int, f filter.Expression) ([]models.SearchHit, error) {
	data, err := json.Marshal(BuildQuery(text, pageSize, f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]models.SearchHit, len(sr.Hits.Hits))
	for i, h := range sr.Hits.Hits {
		hits[i] = toHit(h.Source, h.Highlight["content"])
	}
	return hits, nil
}

func toHit(doc models.Document, fragments []string) models.SearchHit {
	excerpt := strings.Join(fragments, " ")
	if excerpt == "" {
		excerpt = leading(doc.Content, excerptFallbackChars)
	}
	return models.SearchHit{
		DocumentID:  doc.DocumentID,
		DocumentURI: doc.SourceURI,
		Excerpt:     excerpt,
		Title:       doc.Title,
		Attributes:  doc.Attributes(),
	}
}

func leading(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
