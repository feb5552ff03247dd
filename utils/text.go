package utils

import (
	"html"
	"strings"
)

// CleanTitle decodes html entities youtube leaves in titles
func CleanTitle(title string) string {
	return strings.TrimSpace(html.UnescapeString(title))
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
