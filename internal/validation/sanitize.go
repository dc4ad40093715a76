package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	scriptStyleRegexp = regexp.MustCompile(`(?is)<(script|style)[^>]*?>.*?</(script|style)>`)
	tagRegexp         = regexp.MustCompile(`<[^>]*>`)
	octetRegexp       = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	whitespaceRegexp  = regexp.MustCompile(`[\r\n\t ]+`)
)

// SanitizeTextField turns untrusted form input into a single line of plain
// text: invalid UTF-8 and HTML tags are removed, percent-encoded octets are
// dropped, whitespace runs collapse to one space and the result is trimmed.
func SanitizeTextField(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = scriptStyleRegexp.ReplaceAllString(s, "")
	s = tagRegexp.ReplaceAllString(s, "")
	s = octetRegexp.ReplaceAllString(s, "")
	s = whitespaceRegexp.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// AbsInt parses the leading integer of s and returns its absolute value.
// Input without a leading integer yields 0.
func AbsInt(s string) int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return 0
	}

	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}

	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<31-1 {
			return 1<<31 - 1
		}
	}
	return n
}
