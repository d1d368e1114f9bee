package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, collapses runs of whitespace to one space, drops
// control characters and cuts the result to maxLen runes. Product names carry
// æ, ø and å, so the cut never splits a multi-byte rune. maxLen <= 0 means no
// limit.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))

	runes, pendingSpace := 0, false
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = runes > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
