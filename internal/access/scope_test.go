package access

import (
	"testing"

	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

func TestScopeFor(t *testing.T) {
	if got := ScopeFor(models.Identity{UserID: "u1", Email: "a@b.c"}); got != "documents/u1/" {
		t.Errorf("ScopeFor() = %q", got)
	}
	if got := ScopeFor(models.Identity{}); got != "" {
		t.Errorf("ScopeFor(empty) = %q, want empty", got)
	}
}

func TestScope_Owns(t *testing.T) {
	l := reference.NewLocator("docs", "us-east-1", "")
	s := Scope("documents/u1/")

	tests := []struct {
		name string
		ref  string
		want bool
	}{
		{"own key", "documents/u1/ab12cd34-policy.pdf", true},
		{"own key leading slash", "/documents/u1/ab12cd34-policy.pdf", true},
		{"own uri", "s3://docs/documents/u1/ab12cd34-policy.pdf", true},
		{"own url", "https://docs.s3.us-east-1.amazonaws.com/documents/u1/x.txt", true},
		{"other user", "documents/u2/ab12cd34-policy.pdf", false},
		{"prefix collision", "documents/u10/x.txt", false},
		{"scope inside path", "evil/documents/u1/x.txt", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Owns(l, tt.ref); got != tt.want {
				t.Errorf("Owns(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestScope_Covers(t *testing.T) {
	s := Scope("documents/u1/")

	if !s.Covers("", "s3://docs/documents/u1/a.txt") {
		t.Error("uri under scope should be covered")
	}
	if s.Covers("documents/u2/a.txt", "s3://docs/documents/u2/a.txt") {
		t.Error("other tenant should not be covered")
	}
	if s.Covers("documents/u1", "documents/u1a/x") {
		t.Error("values missing the trailing separator should not be covered")
	}
	if Scope("").Covers("anything") {
		t.Error("empty scope covers nothing")
	}
}

func TestOwnerOf(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"documents/u1/1a2b3c4d-a.md", "u1"},
		{"documents/u1/", "u1"},
		{"documents/u1", ""},
		{"other/u1/a.md", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := OwnerOf(tt.key); got != tt.want {
			t.Errorf("OwnerOf(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
