package artifact

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownParser carries the GitHub-flavoured extension set (tables,
// strikethrough, autolinking) — the Go analogue of
// original_source/app/services/pdf_service.py's
// markdown.markdown(..., extensions=["extra","codehilite","tables"]).
// goldmark.Markdown is safe for concurrent Convert calls once built, so a
// single package-level instance is shared.
var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownToHTML converts markdown source to HTML (spec §4.5 step 4,
// "converts markdown to HTML with common extensions").
func MarkdownToHTML(markdownContent string) (string, error) {
	var buf bytes.Buffer
	if err := markdownParser.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("artifact.MarkdownToHTML: %w", err)
	}
	return buf.String(), nil
}
