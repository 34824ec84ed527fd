// Package access derives the tenant boundary of an authenticated caller.
package access

import (
	"strings"

	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

// DocumentsRoot is the key prefix under which every tenant folder lives.
const DocumentsRoot = "documents/"

// Scope is the storage-key prefix owned by one user: documents/<userId>/.
type Scope string

// ScopeFor returns the tenant scope of id. An identity without a user id
// has no scope.
func ScopeFor(id models.Identity) Scope {
	if strings.TrimSpace(id.UserID) == "" {
		return ""
	}
	return Scope(DocumentsRoot + id.UserID + "/")
}

// String returns the prefix.
func (s Scope) String() string { return string(s) }

// Owns reports whether the storage key named by ref lies inside the scope.
func (s Scope) Owns(l reference.Locator, ref string) bool {
	if s == "" || ref == "" {
		return false
	}
	return strings.HasPrefix(l.Key(ref), string(s))
}

// Covers reports whether any of the given values carries the scope prefix.
// It is the tenant check applied to search hits.
func (s Scope) Covers(values ...string) bool {
	if s == "" {
		return false
	}
	for _, v := range values {
		if v != "" && strings.Contains(v, string(s)) {
			return true
		}
	}
	return false
}

// OwnerOf returns the user id whose folder holds key, or "" when key is
// not under DocumentsRoot.
func OwnerOf(key string) string {
	rest, ok := strings.CutPrefix(key, DocumentsRoot)
	if !ok {
		return ""
	}
	owner, _, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return owner
}
