package sanitizer

import (
	"strings"
	"time"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeText(text string) string {
	return TrimAndNormalize(text)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCode canonicalises promo codes; they are stored and compared uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeLabel(label string) string {
	return strings.ToLower(TrimAndNormalize(label))
}

// NormalizeMonth maps any casing of an English month name (or its three letter
// abbreviation) to the canonical name. Unknown input returns "".
func NormalizeMonth(month string) string {
	m := strings.ToLower(strings.TrimSpace(month))
	if m == "" {
		return ""
	}
	for i := time.January; i <= time.December; i++ {
		name := i.String()
		if m == strings.ToLower(name) || m == strings.ToLower(name[:3]) {
			return name
		}
	}
	return ""
}
