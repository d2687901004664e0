package dialogue

import (
	"strings"

	"github.com/sosagent/nova/pkg/models"
)

// coarseCategories maps broad emergency labels to indicator substrings.
// The scan walks this list in order, so detected labels come out in
// table order regardless of where they sit in the message.
var coarseCategories = []struct {
	label    string
	keywords []string
}{
	{"oxygen/breathing", []string{"oxygen", "o2", "air", "breath", "suffocate", "atmosphere"}},
	{"fire", []string{"fire", "flame", "smoke", "burning", "burn"}},
	{"hull breach", []string{"breach", "hole", "pressure", "depressurization", "vacuum"}},
	{"radiation", []string{"radiation", "solar", "flare", "dosimeter"}},
	{"power", []string{"power", "electrical", "battery", "energy"}},
	{"communication", []string{"comms", "communication", "radio", "signal", "antenna"}},
	{"medical", []string{"injured", "hurt", "sick", "pain", "bleeding", "unconscious"}},
	{"navigation", []string{"lost", "navigation", "position", "course"}},
	{"life support", []string{"life support", "co2", "temperature", "hot", "cold"}},
}

// DetectTypes returns the coarse emergency labels whose indicator
// substrings appear anywhere in the lowercased message.
func DetectTypes(lower string) []string {
	var detected []string
	for _, cat := range coarseCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				detected = append(detected, cat.label)
				break
			}
		}
	}
	return detected
}

// entryMentions reports whether a coarse label points at this entry,
// either inside its category or inside one of its keywords. Labels that
// are no keyword or category fragment, such as "oxygen/breathing", never
// match and fall through to the general emergency menu.
func entryMentions(entry models.CatalogEntry, label string) bool {
	if strings.Contains(strings.ToLower(entry.Category), label) {
		return true
	}
	for _, kw := range entry.Keywords {
		if strings.Contains(kw, label) {
			return true
		}
	}
	return false
}
