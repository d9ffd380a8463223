// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package profile

import (
	"strings"
	"unicode"
)

// slugify converts a profile name into a filesystem-safe, human-readable slug.
// Example: "Sender Süd HD" -> "sender-sued-hd".
func slugify(name string) string {
	s := strings.ToLower(name)

	replacer := strings.NewReplacer(
		"ä", "ae",
		"ö", "oe",
		"ü", "ue",
		"ß", "ss",
		"à", "a",
		"á", "a",
		"è", "e",
		"é", "e",
		"ì", "i",
		"í", "i",
		"ò", "o",
		"ó", "o",
		"ù", "u",
		"ú", "u",
		"ç", "c",
		"ñ", "n",
	)
	s = replacer.Replace(s)

	var result strings.Builder
	lastWasDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			result.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(result.String(), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		return "profile"
	}
	return slug
}
