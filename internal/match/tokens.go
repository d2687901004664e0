// Package match implements the inverted keyword index and the fuzzy
// scorer that rank catalog entries against a user message.
package match

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the message and splits it into word tokens. A word
// is a maximal run of letters, digits, and underscores; punctuation and
// whitespace separate words, so "can't" yields "can" and "t".
func Tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
