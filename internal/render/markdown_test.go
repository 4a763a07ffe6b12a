package render

import (
	"strings"
	"testing"
)

func TestMarkdownRendersBasics(t *testing.T) {
	html := string(Markdown("# Hello\n\nSome *emphasis* and a [link](https://example.com)."))

	for _, want := range []string{"<h1", "Hello", "<em>emphasis</em>", `href="https://example.com"`} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q:\n%s", want, html)
		}
	}
}

func TestMarkdownStripsScripts(t *testing.T) {
	html := string(Markdown("safe text\n\n<script>alert('xss')</script>"))

	if strings.Contains(html, "<script") {
		t.Errorf("script tag survived sanitization:\n%s", html)
	}
	if !strings.Contains(html, "safe text") {
		t.Error("legitimate content stripped")
	}
}

func TestMarkdownStripsEventHandlers(t *testing.T) {
	html := string(Markdown(`<p onclick="alert(1)">click me</p>`))

	if strings.Contains(html, "onclick") {
		t.Errorf("event handler survived:\n%s", html)
	}
}

func TestMarkdownGFMTables(t *testing.T) {
	html := string(Markdown("| a | b |\n|---|---|\n| 1 | 2 |"))

	if !strings.Contains(html, "<table>") {
		t.Errorf("GFM table not rendered:\n%s", html)
	}
}
