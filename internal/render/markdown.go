// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	// UGC policy: article bodies are user input, everything script-bearing
	// is stripped after conversion.
	sanitizer = bluemonday.UGCPolicy()
)

// Markdown converts article markdown to sanitized HTML. On a conversion
// failure the raw text is escaped and returned, never dropped.
func Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		slog.Warn("markdown conversion failed", "error", err)
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
