package types

import "strconv"

// formatFloat renders a float64 as a plain ASCII decimal, trimming
// unnecessary trailing zeros, for inclusion in text the LLM will parse.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
