package utils

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Truncate cuts s to maxLen terminal cells and appends "..." when it was
// longer. ANSI escape sequences do not count toward the width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "") + "..."
}

// Preview collapses runs of whitespace to single spaces and truncates.
func Preview(s string, maxLen int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
