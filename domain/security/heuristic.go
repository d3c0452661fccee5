package security

import (
	"strings"
	"unicode/utf8"
)

// BlockThreshold is the score above which heuristic analysis blocks a request.
const BlockThreshold = 0.7

// Characters whose overuse suggests encoding or escape abuse.
const specialChars = "{}[]<>\\|`~"

// Score computes a suspicion score in [0, 1] from structural properties of
// normalized text. Each trigger adds a fixed weight; the sum is capped at 1.0.
// Adding triggers to a text never decreases its score.
func Score(text string) float64 {
	score := 0.0

	// Very long input (prompt stuffing); counted in characters, not bytes,
	// so multibyte text is not penalized early
	if utf8.RuneCountInString(text) > 5000 {
		score += 0.3
	}

	// Many special characters (encoding attacks)
	if countAny(text, specialChars) > 20 {
		score += 0.3
	}

	// Code-like content
	if strings.Contains(text, "```") || strings.Contains(text, "import ") || strings.Contains(text, "eval(") {
		score += 0.2
	}

	// Excessive repetition (bypass padding)
	words := strings.Fields(text)
	if len(words) > 10 {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[w] = struct{}{}
		}
		if float64(len(distinct))/float64(len(words)) < 0.3 {
			score += 0.3
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// countAny counts the characters of text that appear in set.
func countAny(text, set string) int {
	n := 0
	for _, c := range text {
		if strings.ContainsRune(set, c) {
			n++
		}
	}
	return n
}
