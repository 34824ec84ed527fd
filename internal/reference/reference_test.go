package reference

import (
	"testing"
)

var testLocator = NewLocator("docs-bucket", "us-east-1", "")

func TestNewLocator_DerivesPublicURL(t *testing.T) {
	if testLocator.PublicBaseURL != "https://docs-bucket.s3.us-east-1.amazonaws.com" {
		t.Errorf("PublicBaseURL = %q", testLocator.PublicBaseURL)
	}

	explicit := NewLocator("b", "us-east-1", "http://localhost:9000/b/")
	if explicit.PublicBaseURL != "http://localhost:9000/b" {
		t.Errorf("explicit PublicBaseURL = %q", explicit.PublicBaseURL)
	}
}

func TestNormalize(t *testing.T) {
	key := "documents/u1/ab12cd34-policy.pdf"
	uri := "s3://docs-bucket/" + key
	url := "https://docs-bucket.s3.us-east-1.amazonaws.com/" + key

	tests := []struct {
		name string
		ref  string
		want []string
	}{
		{"bare key", key, []string{key, uri, url}},
		{"leading slash", "/" + key, []string{key, uri, url}},
		{"storage uri", uri, []string{key, uri, url}},
		{"public url", url, []string{key, uri, url}},
		{"scope prefix", "documents/u1/", []string{
			"documents/u1/",
			"s3://docs-bucket/documents/u1/",
			"https://docs-bucket.s3.us-east-1.amazonaws.com/documents/u1/",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testLocator.Normalize(tt.ref)
			for _, w := range tt.want {
				if !got.Has(w) {
					t.Errorf("Normalize(%q) missing %q, got %v", tt.ref, w, got.Values())
				}
			}
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := testLocator.Normalize(""); len(got) != 0 {
		t.Errorf("Normalize(\"\") = %v, want empty", got.Values())
	}
}

func TestNormalize_NoBucket(t *testing.T) {
	got := Locator{}.Normalize("documents/u1/a.txt")
	if len(got) != 1 || !got.Has("documents/u1/a.txt") {
		t.Errorf("Normalize without bucket = %v", got.Values())
	}

	got = Locator{}.Normalize("s3://other/documents/u1/a.txt")
	if !got.Has("s3://other/documents/u1/a.txt") || !got.Has("documents/u1/a.txt") {
		t.Errorf("Normalize uri without bucket = %v", got.Values())
	}
}

func TestNormalize_URIWithoutKey(t *testing.T) {
	got := testLocator.Normalize("s3://docs-bucket")
	if len(got) != 1 || !got.Has("s3://docs-bucket") {
		t.Errorf("Normalize = %v", got.Values())
	}
}

// Every pair of forms of the same document must share a member.
func TestNormalize_RoundTripEquivalence(t *testing.T) {
	locators := []Locator{
		testLocator,
		{},
		NewLocator("b", "", "http://localhost:9000/b"),
	}
	keys := []string{
		"documents/u1/ab12cd34-policy.pdf",
		"documents/9f0c/12345678-a b.txt",
		"x.txt",
	}

	for _, l := range locators {
		for _, key := range keys {
			forms := []string{key, "/" + key, StorageScheme + "b/" + key}
			if u := l.URI(key); u != "" {
				forms = append(forms, u)
			}
			if u := l.URL(key); u != "" {
				forms = append(forms, u)
			}
			for _, a := range forms {
				for _, b := range forms {
					if !l.Normalize(a).Intersects(l.Normalize(b)) {
						t.Errorf("locator %+v: Normalize(%q) and Normalize(%q) do not intersect", l, a, b)
					}
				}
			}
		}
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"s3://bucket/documents/u1/a.pdf", "documents/u1/a.pdf"},
		{"https://bucket.s3.us-east-1.amazonaws.com/documents/u1/a.pdf", "documents/u1/a.pdf"},
		{"documents/u1/a.pdf", "a.pdf"},
		{"a.pdf", "a.pdf"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := Tail(tt.value); got != tt.want {
				t.Errorf("Tail(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSet_Intersects(t *testing.T) {
	a := Set{}
	a.Add("x")
	a.Add("y")
	b := Set{}
	b.Add("y")
	c := Set{}
	c.Add("z")

	if !a.Intersects(b) {
		t.Error("a and b share y")
	}
	if a.Intersects(c) {
		t.Error("a and c share nothing")
	}
	if a.Intersects(Set{}) {
		t.Error("empty set intersects nothing")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"documents/u1/1a2b3c4d-report.md", "report.md"},
		{"documents/u1/1a2b3c4d-my-notes.txt", "my-notes.txt"},
		{"documents/u1/short-name.md", "short-name.md"},
		{"documents/u1/noprefix.md", "noprefix.md"},
		{"plain.md", "plain.md"},
		{"", "Untitled Document"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := DisplayName(StoredName(tt.key)); got != tt.want {
				t.Errorf("DisplayName(StoredName(%q)) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
