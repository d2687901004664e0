package match

import (
	"strings"
	"unicode/utf8"

	"github.com/sosagent/nova/internal/catalog"
)

// Index is an inverted map from lowercased keyword to the IDs of the
// catalog entries that list it. Keywords iterate in first-listed order,
// which keeps scoring deterministic across rebuilds of the same catalog.
type Index struct {
	postings map[string][]int
	keys     []string // first-listed order
	keyLens  []int    // rune lengths, parallel to keys
}

// Build indexes every keyword of every entry in c.
func Build(c *catalog.Catalog) *Index {
	idx := &Index{postings: make(map[string][]int)}
	for _, e := range c.Entries() {
		for _, kw := range e.Keywords {
			k := strings.ToLower(kw)
			if _, seen := idx.postings[k]; !seen {
				idx.keys = append(idx.keys, k)
				idx.keyLens = append(idx.keyLens, utf8.RuneCountInString(k))
			}
			idx.postings[k] = append(idx.postings[k], e.ID)
		}
	}
	return idx
}

// Lookup returns the IDs of entries listing keyword exactly, in catalog
// order. The keyword must already be lowercase.
func (x *Index) Lookup(keyword string) []int {
	return x.postings[keyword]
}

// Keywords returns the distinct indexed keywords in first-listed order.
func (x *Index) Keywords() []string {
	result := make([]string, len(x.keys))
	copy(result, x.keys)
	return result
}

// Len returns the number of distinct keywords.
func (x *Index) Len() int {
	return len(x.keys)
}
