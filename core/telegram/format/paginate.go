package format

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the Telegram limit for a single text message.
const MaxMessageLen = 4096

const entrySep = "\n\n"

// Paginate packs header and entries into messages of at most limit runes.
// Entries are never split unless a single entry exceeds limit on its own; such an
// entry is cut at line breaks where possible.
func Paginate(header string, entries []string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	var (
		pages []string
		cur   strings.Builder
		size  int
	)
	flush := func() {
		if size > 0 {
			pages = append(pages, cur.String())
			cur.Reset()
			size = 0
		}
	}
	add := func(part string) {
		n := utf8.RuneCountInString(part)
		sep := 0
		if size > 0 {
			sep = len(entrySep)
		}
		if size > 0 && size+sep+n > limit {
			flush()
			sep = 0
		}
		for n > limit {
			head, tail := splitRunes(part, limit)
			flush()
			pages = append(pages, head)
			part = tail
			n = utf8.RuneCountInString(part)
		}
		if sep > 0 {
			cur.WriteString(entrySep)
		}
		cur.WriteString(part)
		size += sep + n
	}

	if header != "" {
		add(header)
	}
	for _, e := range entries {
		add(e)
	}
	flush()
	return pages
}

// splitRunes cuts s into a head of at most n runes and the rest. The cut is made
// at the last line break inside the head when there is one, so markdown spans on
// a single line stay intact.
func splitRunes(s string, n int) (string, string) {
	i, cut := 0, len(s)
	for pos := range s {
		if i == n {
			cut = pos
			break
		}
		i++
	}
	if cut == len(s) {
		return s, ""
	}
	if nl := strings.LastIndexByte(s[:cut], '\n'); nl > 0 {
		return s[:nl], s[nl+1:]
	}
	return s[:cut], s[cut:]
}
