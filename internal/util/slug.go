// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared across packages: slug
// generation and sql null-type conversions.
package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLen bounds generated slugs; longer titles are truncated at a
// hyphen boundary.
const MaxSlugLen = 100

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a title into a URL slug: accents are stripped via NFD
// decomposition, everything outside [a-z0-9] collapses to single hyphens,
// and the result is truncated to MaxSlugLen.
func Slugify(s string) string {
	// Decompose accented characters and drop the combining marks.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, _ := transform.String(t, s)

	out = strings.ToLower(out)
	out = strings.ReplaceAll(out, " ", "-")
	out = nonSlugChars.ReplaceAllString(out, "")
	out = hyphenRuns.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")

	if len(out) > MaxSlugLen {
		out = out[:MaxSlugLen]
		if i := strings.LastIndexByte(out, '-'); i > 0 {
			out = out[:i]
		}
	}
	return out
}

// SlugWithSuffix appends a numeric suffix for collision resolution,
// keeping the total within MaxSlugLen.
func SlugWithSuffix(slug string, n int) string {
	suffix := fmt.Sprintf("-%d", n)
	if len(slug)+len(suffix) > MaxSlugLen {
		slug = slug[:MaxSlugLen-len(suffix)]
	}
	return slug + suffix
}

// IsValidSlug reports whether s is already in canonical slug form.
func IsValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLen {
		return false
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
