// Package dialogue implements the layered response engine: clarification
// resolution, conversational intents, call-sign capture, emergency
// handling, and scored protocol lookup, in that order.
package dialogue

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Conversational intent patterns, matched against the lowercased message.
var (
	greetingRE = regexp.MustCompile(`\b(hi|hello|hey|greetings|sup)\b`)
	farewellRE = regexp.MustCompile(`\b(bye|goodbye|see you|exit|quit)\b`)
	statusRE   = regexp.MustCompile(`\b(status|report)\b`)
	thanksRE   = regexp.MustCompile(`\b(thank|thanks)\b`)
)

// Emergency indicators. Any single hit flags the message as an
// emergency, including a run of exclamation marks on its own.
var emergencyREs = []*regexp.Regexp{
	regexp.MustCompile(`\b(emergency|urgent|help|sos|crisis|critical|mayday|911)\b`),
	regexp.MustCompile(`\b(dying|dead|death)\b`),
	regexp.MustCompile(`\b(can't|cannot|unable|won't|failing)\b`),
	regexp.MustCompile(`!{2,}`),
}

// IsEmergency reports whether the lowercased message carries any
// emergency indicator.
func IsEmergency(lower string) bool {
	for _, re := range emergencyREs {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// namePatterns capture a call sign from the lowercased message. The
// first match wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:name is|i'm|im|i am|call me)\s+(\w+)`),
	regexp.MustCompile(`^(\w+)\s+(?:here|reporting)`),
	regexp.MustCompile(`this is\s+(\w+)`),
}

// captureName extracts a call sign from the lowercased message, if one
// is present, and capitalizes it.
func captureName(lower string) (string, bool) {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return capitalize(m[1]), true
		}
	}
	return "", false
}

// capitalize upper-cases the first rune. Callers pass already-lowercased
// input, so the rest of the string is left alone.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
