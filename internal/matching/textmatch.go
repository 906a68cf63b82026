package matching

import (
	"strconv"
	"unicode"
)

// normalize casefolds, trims punctuation and collapses whitespace so that
// "The  Eiffel Tower!" and "the eiffel tower" compare equal.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// numericEqual compares two values as numbers when both parse, so "5.0"
// matches "5". Reports false when either side is not numeric.
func numericEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return false
	}
	return fa == fb
}
