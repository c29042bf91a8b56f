package patterns

import (
	"strings"

	"github.com/lazypower/ballast/internal/memory"
	"github.com/lazypower/ballast/internal/transcript"
)

// Classifier finds candidate patterns in an ordered transcript. The default
// is marker-table matching; the interface keeps the detection strategy
// swappable without touching the engine.
type Classifier interface {
	Classify(msgs []transcript.Message) []Pattern
}

// Marker tables. All matching is case-insensitive substring search.
var (
	correctionMarkers = []string{
		"no,", "no ", "not that", "instead", "wrong", "that's not", "actually,",
	}
	emphasisMarkers   = []string{"always", "never"}
	preferenceMarkers = []string{"instead", "rather"}
	rememberMarkers   = []string{
		"remember this", "remember that", "don't forget",
		"always do", "never do", "keep in mind", "make sure to always",
	}
	resolutionMarkers = []string{
		"fixed", "resolved", "working now", "that did it", "solved",
	}
	errorMarkers = []string{"error", "failed", "failure", "exception", "broken"}
)

// errorLookback bounds how far back we search for the error an assistant
// resolution refers to.
const errorLookback = 6

// MarkerClassifier is the default data-driven classifier.
type MarkerClassifier struct{}

// NewMarkerClassifier returns the default classifier.
func NewMarkerClassifier() *MarkerClassifier {
	return &MarkerClassifier{}
}

// Classify scans the transcript for the three signal classes: user
// corrections, explicit remember requests, and resolved errors.
func (mc *MarkerClassifier) Classify(msgs []transcript.Message) []Pattern {
	var pats []Pattern

	for i, m := range msgs {
		lower := strings.ToLower(m.Text)

		switch m.Role {
		case "user":
			if containsAny(lower, rememberMarkers) {
				pats = append(pats, Pattern{
					Category:    Preference,
					Description: m.Text,
					Solution:    m.Text,
					Confidence:  0.9,
					Scope:       memory.ScopeUser,
				})
				continue
			}
			if i > 0 && containsAny(lower, correctionMarkers) {
				pats = append(pats, correctionPattern(m.Text, lower, msgs[i-1].Text))
			}

		case "assistant":
			if containsAny(lower, resolutionMarkers) {
				if errMsg, ok := findPriorError(msgs, i); ok {
					pats = append(pats, Pattern{
						Category:    ErrorResolution,
						Description: m.Text,
						Context:     errMsg,
						Solution:    m.Text,
						Confidence:  0.75,
						Scope:       memory.ScopeProject,
					})
				}
			}
		}
	}

	return pats
}

// correctionPattern builds a user_correction pattern with confidence scored
// from the correction's wording: base 0.6, +0.15 for always/never, +0.1 for
// instead/rather, +0.1 for substantial length, capped at 0.95.
func correctionPattern(text, lower, preceding string) Pattern {
	confidence := 0.6
	if containsAny(lower, emphasisMarkers) {
		confidence += 0.15
	}
	if containsAny(lower, preferenceMarkers) {
		confidence += 0.1
	}
	if len(text) > 50 {
		confidence += 0.1
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	return Pattern{
		Category:    UserCorrection,
		Description: text,
		Context:     preceding,
		Solution:    text,
		Confidence:  confidence,
		Scope:       memory.ScopeUser,
	}
}

// findPriorError returns the nearest earlier message within the look-back
// window that mentions an error.
func findPriorError(msgs []transcript.Message, from int) (string, bool) {
	for j := from - 1; j >= 0 && j >= from-errorLookback; j-- {
		if containsAny(strings.ToLower(msgs[j].Text), errorMarkers) {
			return msgs[j].Text, true
		}
	}
	return "", false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
