package match

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Credit weights. A token can earn an entry both exact and partial
// credit in the same pass; scores accumulate across all tokens.
const (
	exactWeight     = 10
	partialWeight   = 5
	substringWeight = 3

	// fuzzyMinLen keeps partial and substring credit away from short
	// words, which match too promiscuously to carry signal.
	fuzzyMinLen = 4
)

// Match pairs a catalog entry ID with its accumulated score.
type Match struct {
	EntryID int
	Score   int
}

// Score ranks catalog entries against message. Every token earns exact
// credit for keywords it equals, partial credit for keywords it contains
// or is contained by, and substring credit for keywords sharing a common
// run of at least fuzzyMinLen runes. The result is sorted by score
// descending; entries with equal scores keep the order in which they
// first earned credit.
func (x *Index) Score(message string) []Match {
	acc := newAccumulator()

	for _, word := range Tokenize(message) {
		for _, id := range x.postings[word] {
			acc.credit(id, exactWeight)
		}

		if utf8.RuneCountInString(word) < fuzzyMinLen {
			continue
		}
		for ki, keyword := range x.keys {
			if x.keyLens[ki] < fuzzyMinLen {
				continue
			}
			switch {
			case strings.Contains(keyword, word) || strings.Contains(word, keyword):
				for _, id := range x.postings[keyword] {
					acc.credit(id, partialWeight)
				}
			case longestCommonSubstring(word, keyword) >= fuzzyMinLen:
				for _, id := range x.postings[keyword] {
					acc.credit(id, substringWeight)
				}
			}
		}
	}

	return acc.ranked()
}

// accumulator tallies per-entry credit and remembers the order in which
// entries first scored.
type accumulator struct {
	scores map[int]int
	order  []int
}

func newAccumulator() *accumulator {
	return &accumulator{scores: make(map[int]int)}
}

func (a *accumulator) credit(id, points int) {
	if _, seen := a.scores[id]; !seen {
		a.order = append(a.order, id)
	}
	a.scores[id] += points
}

// ranked returns matches sorted by score descending. The sort is stable
// over first-credit order, so ties resolve the same way every run.
func (a *accumulator) ranked() []Match {
	result := make([]Match, 0, len(a.order))
	for _, id := range a.order {
		result = append(result, Match{EntryID: id, Score: a.scores[id]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}

// longestCommonSubstring returns the rune length of the longest
// contiguous substring common to a and b.
func longestCommonSubstring(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	best := 0
	for i := range ra {
		for j := range rb {
			k := 0
			for i+k < len(ra) && j+k < len(rb) && ra[i+k] == rb[j+k] {
				k++
			}
			if k > best {
				best = k
			}
		}
	}
	return best
}
