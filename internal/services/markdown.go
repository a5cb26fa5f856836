package services

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders message content to HTML for the notebook cells. Raw HTML in the source is dropped
// from the output and replaced by an HTML comment, since unsafe mode is off. Fenced code blocks are
// highlighted with the configured chroma style.
type Markdown struct {
	md goldmark.Markdown
}

// DefaultHighlightStyle is the chroma style used when none is given.
const DefaultHighlightStyle = "github"

// NewMarkdown creates a Markdown renderer with GitHub flavoured extensions enabled.
func NewMarkdown(style string) Markdown {
	if style == "" {
		style = DefaultHighlightStyle
	}
	return Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle(style),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}
}

// Render converts markdown source into an HTML fragment.
func (m Markdown) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return buf.String(), nil
}
