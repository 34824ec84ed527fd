// Package filter builds the provider-side attribute filter that narrows a
// search to the caller's documents. It is best effort: authoritative
// enforcement happens when hits are validated.
package filter

import (
	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/reference"
)

// Field keys of the indexed document attributes.
const (
	DocumentIDField = "document_id"
	SourceURIField  = "source_uri"
)

// Expression is a node of a filter tree.
type Expression interface {
	expression()
}

// Equals matches documents whose field equals Value.
type Equals struct {
	Field string
	Value string
}

// Contains matches documents whose field contains any of Values.
type Contains struct {
	Field  string
	Values []string
}

// Or matches documents matching any of its children.
type Or struct {
	Children []Expression
}

func (Equals) expression()   {}
func (Contains) expression() {}
func (Or) expression()       {}

// Build returns the filter for a search within scope, narrowed to focus
// when one is given. It returns nil when neither is set.
func Build(l reference.Locator, scope access.Scope, focus string) Expression {
	if focus != "" {
		refs := l.Normalize(focus)
		leaves := make([]Expression, 0, len(refs))
		for _, ref := range refs.Values() {
			if reference.IsURI(ref) {
				leaves = append(leaves, Equals{Field: SourceURIField, Value: ref})
			} else {
				leaves = append(leaves, Equals{Field: DocumentIDField, Value: ref})
			}
		}
		return combine(leaves)
	}

	if scope != "" {
		refs := l.Normalize(scope.String())
		leaves := make([]Expression, 0, len(refs))
		for _, ref := range refs.Values() {
			leaves = append(leaves, Contains{Field: DocumentIDField, Values: []string{ref}})
		}
		return combine(leaves)
	}

	return nil
}

func combine(leaves []Expression) Expression {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	default:
		return Or{Children: leaves}
	}
}
