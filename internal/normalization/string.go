package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	return strings.TrimSpace(input)
}

// FoldName lowercases and trims a display name for case-insensitive matching.
func FoldName(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
