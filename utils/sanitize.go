package utils

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// contentPolicy is the UGC policy plus language classes on code blocks, so highlighted
// snippets in post bodies survive, and external links open in a new tab.
var contentPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[A-Za-z0-9_+-]+$`)).OnElements("code")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// textPolicy strips every tag; excerpts are shown as plain text in listings.
var textPolicy = bluemonday.StrictPolicy()

// Sanitize cleans post markup.
func Sanitize(input string) string {
	return contentPolicy.Sanitize(input)
}

// SanitizeText removes all markup from input.
func SanitizeText(input string) string {
	return textPolicy.Sanitize(input)
}
