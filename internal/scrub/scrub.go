// Package scrub removes private-marker spans from text before it is handed
// to the memory layer. Content inside <private>...</private> must never be
// written to durable storage.
package scrub

import (
	"regexp"
	"strings"
	"unicode"
)

// MinKeepChars is the minimum useful length after redaction. Text shorter
// than this is redaction noise and should be dropped rather than stored.
const MinKeepChars = 20

var privateRe = regexp.MustCompile(`(?s)<private>.*?</private>`)

// Redact removes all private spans, including an unterminated trailing span,
// and collapses the surrounding whitespace.
func Redact(s string) string {
	s = privateRe.ReplaceAllString(s, "")

	// An opening marker with no close redacts to the end of the text.
	if idx := strings.Index(s, "<private>"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(collapseBlank(s))
}

// TooShort reports whether redacted text is below the useful minimum.
func TooShort(s string) bool {
	return len(strings.TrimSpace(s)) < MinKeepChars
}

// Truncate cuts s to at most maxLen bytes, backing up to the last word
// boundary when one is reasonably close so we don't split mid-word.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}

	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}

// collapseBlank squeezes runs of blank lines left behind by span removal.
func collapseBlank(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}
