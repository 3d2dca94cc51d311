// Package media stores uploaded images and turns their stored paths into client URLs.
package media

import (
	"regexp"
	"strings"
)

// schemePattern matches a leading URI scheme such as "https:" or "data:".
var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// Resolver converts stored relative media paths into absolute URLs.
type Resolver struct {
	baseURL string
}

// NewResolver creates a Resolver joining paths onto baseURL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve returns the absolute URL for path. Empty stays empty and absolute URLs are
// returned unchanged, so resolving twice is harmless.
func (r *Resolver) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if schemePattern.MatchString(path) {
		return path
	}
	return r.baseURL + "/" + strings.TrimPrefix(path, "/")
}
