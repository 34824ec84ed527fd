package markdown

import (
	"path"
	"regexp"
	"strings"
)

// Kind classifies stored content by how it is turned into indexable text.
type Kind int

const (
	// Unsupported content is not indexed.
	Unsupported Kind = iota
	// HTML is converted to Markdown before indexing.
	HTML
	// Markdown is indexed as is.
	Markdown
	// Text is plain text, indexed as is.
	Text
)

func (k Kind) String() string {
	switch k {
	case HTML:
		return "html"
	case Markdown:
		return "markdown"
	case Text:
		return "text"
	default:
		return "unsupported"
	}
}

// Indexable reports whether content of this kind can be indexed.
func (k Kind) Indexable() bool {
	return k != Unsupported
}

var (
	headerPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPattern   = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
	linkPattern   = regexp.MustCompile(`\[.+?\]\(.+?\)`)
)

// IsMarkdownContentType checks if the Content-Type header indicates markdown.
func IsMarkdownContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/markdown") ||
		strings.HasPrefix(ct, "text/x-markdown")
}

// IsMarkdownName checks if the file name indicates a markdown file.
func IsMarkdownName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") ||
		strings.HasSuffix(lower, ".markdown")
}

// IsMarkdownContent uses heuristics to detect if content is markdown.
func IsMarkdownContent(content string) bool {
	if content == "" {
		return false
	}

	trimmed := strings.TrimSpace(content)
	if looksLikeHTML(trimmed) {
		return false
	}
	return hasMarkdownPatterns(trimmed)
}

func looksLikeHTML(content string) bool {
	lower := strings.ToLower(content)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body")
}

func hasMarkdownPatterns(content string) bool {
	return headerPattern.MatchString(content) ||
		listPattern.MatchString(content) ||
		linkPattern.MatchString(content)
}

// Classify decides how an uploaded file is indexed. The declared content
// type wins, then the file extension, then content heuristics for types
// that do not say.
func Classify(name, contentType, content string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case IsMarkdownContentType(ct):
		return Markdown
	case strings.HasPrefix(ct, "text/html"), strings.HasPrefix(ct, "application/xhtml"):
		return HTML
	}

	if IsMarkdownName(name) {
		return Markdown
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return HTML
	case ".txt", ".text":
		return Text
	}

	if ct == "" || strings.HasPrefix(ct, "text/plain") || strings.HasPrefix(ct, "application/octet-stream") {
		trimmed := strings.TrimSpace(content)
		switch {
		case looksLikeHTML(trimmed):
			return HTML
		case IsMarkdownContent(trimmed):
			return Markdown
		case strings.HasPrefix(ct, "text/plain"):
			return Text
		}
	}

	return Unsupported
}

// Title returns the text of the first level-one heading, or "".
func Title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
