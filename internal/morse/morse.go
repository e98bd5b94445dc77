// Package morse translates between text and International Morse Code.
//
// Characters are separated by a single space and words by WordSeparator.
// Anything outside the table passes through unchanged in both directions,
// so Encode and Decode never fail.
package morse

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// validPattern mirrors the ECMAScript \s class so callers that pre-validate
// in a browser agree with the server.
var validPattern = regexp.MustCompile(`^[.\-/\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}]*$`)

func upper(text string) string {
	// A Caser holds state and cannot be shared between goroutines.
	return cases.Upper(language.Und).String(text)
}

// Encode uppercases text and converts it to Morse, one code per character.
func Encode(text string) string {
	if text == "" {
		return ""
	}

	upperText := upper(text)
	codes := make([]string, 0, len(upperText))
	for _, char := range upperText {
		if code, ok := charToCode[char]; ok {
			codes = append(codes, code)
		} else {
			codes = append(codes, string(char))
		}
	}

	joined := strings.Join(codes, " ")
	return strings.ReplaceAll(joined, " "+WordSeparator+" ", WordSeparator)
}

// Decode expects single spaces between codes. A separator glued to its
// neighbours (".-/-...") splits the token it sits in.
func Decode(morse string) string {
	if morse == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(morse))

	for _, token := range strings.Split(morse, " ") {
		for i, piece := range strings.Split(token, WordSeparator) {
			if i > 0 {
				b.WriteByte(' ')
			}
			if piece == "" {
				continue
			}
			if char, ok := codeToChar[piece]; ok {
				b.WriteRune(char)
			} else {
				b.WriteString(piece)
			}
		}
	}

	return b.String()
}

// IsValid reports whether morse only contains dits, dahs, whitespace and
// word separators. It does not check that the codes exist.
func IsValid(morse string) bool {
	return validPattern.MatchString(morse)
}

// Unsupported returns the distinct characters Encode would pass through,
// in the order they first appear.
func Unsupported(text string) []rune {
	var out []rune
	seen := make(map[rune]bool)

	for _, char := range upper(text) {
		if _, ok := charToCode[char]; ok || seen[char] {
			continue
		}
		seen[char] = true
		out = append(out, char)
	}

	return out
}

// UnknownCodes returns the distinct tokens Decode would pass through.
func UnknownCodes(morse string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, token := range strings.Split(morse, " ") {
		for _, piece := range strings.Split(token, WordSeparator) {
			if piece == "" || seen[piece] {
				continue
			}
			if _, ok := codeToChar[piece]; ok {
				continue
			}
			seen[piece] = true
			out = append(out, piece)
		}
	}

	return out
}
