package memory

import (
	"math"
	"strings"
)

// Lexical scoring for the local backend: term-frequency cosine similarity.
// This is deliberately cheap — real semantic ranking belongs to the remote
// service; the local backend only needs a usable ordering.

// tokenize splits text into lowercase tokens, stripping punctuation.
// Single-character tokens are skipped.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 1 {
				tokens = append(tokens, current.String())
			}
			current.Reset()
		}
	}
	if current.Len() > 1 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// termVector builds an L2-normalized term-frequency vector.
func termVector(text string) map[string]float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	vec := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		vec[tok]++
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	for t := range vec {
		vec[t] /= norm
	}
	return vec
}

// cosine computes cosine similarity between two normalized term vectors.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, va := range a {
		if vb, ok := b[t]; ok {
			dot += va * vb
		}
	}
	return dot
}
