package pipeline

import "strings"

// PageSeparator is appended after every page before newlines are collapsed
const PageSeparator = "\n\n"

// Aggregate joins per-page OCR text into a single line: each page is followed
// by PageSeparator, then every newline becomes a space. Page order is kept, so
// Aggregate(a) + Aggregate(b) == Aggregate(append(a, b...)).
func Aggregate(pages []string) string {
	var sb strings.Builder
	for _, page := range pages {
		sb.WriteString(page)
		sb.WriteString(PageSeparator)
	}
	return strings.ReplaceAll(sb.String(), "\n", " ")
}

// JoinPhrases renders summary phrases exactly as received, with no separator.
func JoinPhrases(phrases []string) string {
	return strings.Join(phrases, "")
}
