// Package reference reconciles the equivalent names of a stored document:
// its storage key, its s3:// URI and its public URL.
package reference

import (
	"sort"
	"strings"
)

// StorageScheme prefixes fully-qualified storage URIs.
const StorageScheme = "s3://"

// Locator knows the bucket and public host documents are served from.
// The zero value only recognises bare keys and URIs.
type Locator struct {
	Bucket        string
	PublicBaseURL string
}

// NewLocator builds a Locator. When publicBaseURL is empty and a region is
// known, the virtual-hosted S3 URL for the bucket is used.
func NewLocator(bucket, region, publicBaseURL string) Locator {
	base := strings.TrimSuffix(publicBaseURL, "/")
	if base == "" && bucket != "" && region != "" {
		base = "https://" + bucket + ".s3." + region + ".amazonaws.com"
	}
	return Locator{Bucket: bucket, PublicBaseURL: base}
}

// URI returns the storage URI of key, or "" without a bucket.
func (l Locator) URI(key string) string {
	if l.Bucket == "" {
		return ""
	}
	return StorageScheme + l.Bucket + "/" + strings.TrimLeft(key, "/")
}

// URL returns the public URL of key, or "" without a public host.
func (l Locator) URL(key string) string {
	if l.Bucket == "" || l.PublicBaseURL == "" {
		return ""
	}
	return l.PublicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// Key extracts the storage key from any of the three forms.
func (l Locator) Key(ref string) string {
	if l.PublicBaseURL != "" && strings.HasPrefix(ref, l.PublicBaseURL+"/") {
		return strings.TrimPrefix(ref, l.PublicBaseURL+"/")
	}
	if hasScheme(ref) {
		parts := strings.SplitN(ref, "/", 4)
		if len(parts) < 4 {
			return ""
		}
		return parts[3]
	}
	return strings.TrimLeft(ref, "/")
}

// Normalize expands ref into the set of strings naming the same document.
// Normalizing any two forms of one document yields intersecting sets.
func (l Locator) Normalize(ref string) Set {
	refs := Set{}
	if ref == "" {
		return refs
	}

	key := l.Key(ref)
	if hasScheme(ref) {
		refs.Add(ref)
	} else {
		refs.Add(key)
	}
	if key == "" {
		return refs
	}

	refs.Add(key)
	refs.Add(l.URI(key))
	refs.Add(l.URL(key))
	return refs
}

// Tail returns everything after the third "/" of value, or the whole value
// when it has fewer separators than that. For URIs and URLs this is the key.
func Tail(value string) string {
	parts := strings.SplitN(value, "/", 4)
	return parts[len(parts)-1]
}

// IsURI reports whether ref is in storage-URI form.
func IsURI(ref string) bool {
	return strings.HasPrefix(ref, StorageScheme)
}

func hasScheme(ref string) bool {
	return IsURI(ref) || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// Set is a set of equivalent reference strings.
type Set map[string]struct{}

// Add inserts v, ignoring empty strings.
func (s Set) Add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

// Has reports whether v is a member.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Intersects reports whether s and other share a member.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for v := range small {
		if large.Has(v) {
			return true
		}
	}
	return false
}

// Values returns the members in sorted order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// StoredName returns the last path element of key.
func StoredName(key string) string {
	key = strings.TrimRight(key, "/")
	return key[strings.LastIndex(key, "/")+1:]
}

// DisplayName strips the eight-character upload prefix from a stored name:
// "1a2b3c4d-report.md" is shown as "report.md".
func DisplayName(storedName string) string {
	if storedName == "" {
		return "Untitled Document"
	}
	if prefix, rest, ok := strings.Cut(storedName, "-"); ok && len(prefix) == 8 {
		return rest
	}
	return storedName
}
