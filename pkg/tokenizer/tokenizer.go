// Package tokenizer estimates prompt sizes without calling a model.
package tokenizer

import (
	"strings"
)

// charsPerToken is the usual ratio for English text and markup.
const charsPerToken = 4

// EstimateTokens returns a rough token count for text, blending a word-based
// and a character-based estimate.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	wordEstimate := int(float64(words) * 1.3)
	charEstimate := len(text) / charsPerToken
	return (wordEstimate + charEstimate) / 2
}

// TruncateLines keeps whole leading lines of text while the estimate stays
// within budget. It reports whether anything was cut.
func TruncateLines(text string, budget int) (string, bool) {
	if budget <= 0 {
		return "", text != ""
	}
	if EstimateTokens(text) <= budget {
		return text, false
	}

	var (
		sb   strings.Builder
		used int
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		cost := EstimateTokens(line) + 1
		if used+cost > budget {
			break
		}
		sb.WriteString(line)
		used += cost
	}
	return sb.String(), true
}
