package artifact

import (
	"strings"
	"testing"
)

func TestMarkdownToHTML_Headings(t *testing.T) {
	html, err := MarkdownToHTML("# Title\n\nSome body text.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Fatalf("expected h1 heading in output, got: %s", html)
	}
	if !strings.Contains(html, "<p>Some body text.</p>") {
		t.Fatalf("expected paragraph in output, got: %s", html)
	}
}

func TestMarkdownToHTML_Table(t *testing.T) {
	md := "| A | B |\n| --- | --- |\n| 1 | 2 |\n"
	html, err := MarkdownToHTML(md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatalf("expected GFM table extension to render a <table>, got: %s", html)
	}
}
