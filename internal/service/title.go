package service

import "strings"

const (
	maxTitleRunes = 50
	titleEllipsis = "..."
)

// DeriveTitle returns the first line of body, cut to 50 characters with an
// ellipsis appended when longer. An empty body yields an empty title.
func DeriveTitle(body string) string {
	firstLine, _, _ := strings.Cut(body, "\n")
	runes := []rune(firstLine)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + titleEllipsis
	}
	return firstLine
}
