package processor

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mfenderov/ragchat/internal/markdown"
	"golang.org/x/net/html"
)

// Text is the indexable form of an uploaded file.
type Text struct {
	Title string
	Body  string
}

// Processor turns stored file content into indexable text.
type Processor struct{}

// New creates a new processor.
func New() *Processor {
	return &Processor{}
}

// Render produces the indexable text of content of the given kind. The
// title falls back to fallbackTitle when the content does not name one.
func (p *Processor) Render(kind markdown.Kind, content, fallbackTitle string) (Text, error) {
	var out Text

	switch kind {
	case markdown.HTML:
		body, err := p.Convert(content)
		if err != nil {
			return Text{}, fmt.Errorf("failed to convert html: %w", err)
		}
		out = Text{Title: p.ExtractTitle(content), Body: body}
	case markdown.Markdown, markdown.Text:
		body := strings.TrimSpace(content)
		out = Text{Title: markdown.Title(body), Body: body}
	default:
		return Text{}, fmt.Errorf("content of kind %s is not indexable", kind)
	}

	if out.Title == "" {
		out.Title = fallbackTitle
	}
	return out, nil
}

// Convert transforms HTML content into Markdown.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(md), nil
}

// ExtractTitle extracts the <title> content from HTML.
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}
