package format

import "regexp"

var mdV1Re = regexp.MustCompile("([_*`\\[])")

// MD escapes user-provided text for legacy Markdown messages.
func MD(text string) string {
	return mdV1Re.ReplaceAllString(text, `\$1`)
}

// Deref returns *p, or def when p is nil.
func Deref[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}
