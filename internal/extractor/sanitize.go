package extractor

import "strings"

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

// JoinTexts joins node texts with single spaces, skipping blank entries.
func JoinTexts(texts []string) string {
	var b strings.Builder
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

// Sanitize removes double and single quotes and trims surrounding whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(quoteStripper.Replace(text))
}
