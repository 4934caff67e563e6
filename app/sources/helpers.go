package sources

import "regexp"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags removes HTML tags from provider-supplied text bodies
func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// truncate shortens a string to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
