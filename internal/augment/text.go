package augment

import "unicode/utf8"

// Truncate caps s at max bytes with a trailing ellipsis marker. The cut
// position backs off to a rune boundary so multibyte text is never
// split mid-sequence.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
