// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Getting Started", "getting-started"},
		{"Hello, World!", "hello-world"},
		{"Café au lait", "cafe-au-lait"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"UPPER case", "upper-case"},
		{"already-a-slug", "already-a-slug"},
		{"---", ""},
		{"", ""},
		{"100% CPU usage", "100-cpu-usage"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := Slugify(long)
	if len(got) > MaxSlugLen {
		t.Errorf("slug length %d exceeds max %d", len(got), MaxSlugLen)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug ends with hyphen: %q", got)
	}
}

func TestSlugWithSuffix(t *testing.T) {
	if got := SlugWithSuffix("getting-started", 2); got != "getting-started-2" {
		t.Errorf("SlugWithSuffix = %q", got)
	}

	long := strings.Repeat("a", MaxSlugLen)
	got := SlugWithSuffix(long, 12)
	if len(got) > MaxSlugLen {
		t.Errorf("suffixed slug length %d exceeds max %d", len(got), MaxSlugLen)
	}
	if !strings.HasSuffix(got, "-12") {
		t.Errorf("suffix lost: %q", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"a", "getting-started", "v2", "a-b-c"}
	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "-leading", "trailing-", "double--hyphen", "UPPER", "with space", strings.Repeat("a", MaxSlugLen+1)}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = true, want false", s)
		}
	}
}
