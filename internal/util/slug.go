// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose utility functions including
// URL slug generation and validation.
package util

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// slugRegex matches characters that are not allowed in a slug
	slugRegex = regexp.MustCompile(`[^a-z0-9\s-]+`)
	// whitespaceRuns matches runs of whitespace
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title to a URL-friendly slug.
// Non-Latin characters are transliterated to ASCII first, so titles in
// Cyrillic or other scripts still produce a usable slug. The result is
// lowercase with single hyphens between words and no leading or trailing
// hyphens. Returns an empty string when nothing survives the stripping.
func Slugify(s string) string {
	// Transliterate to ASCII (e.g. "Стальные" -> "Stal'nye")
	result := unidecode.Unidecode(s)

	result = strings.ToLower(result)

	// Drop everything outside [a-z0-9\s-]
	result = slugRegex.ReplaceAllString(result, "")

	// Collapse whitespace runs to single hyphens
	result = whitespaceRuns.ReplaceAllString(strings.TrimSpace(result), "-")

	// Collapse repeated hyphens and trim the ends
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	return result
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}
