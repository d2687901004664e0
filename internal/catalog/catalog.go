// Package catalog loads, validates, and serves the protocol entries the
// dialogue engine answers from.
package catalog

import (
	"github.com/sosagent/nova/pkg/models"
)

// Catalog is an immutable, ordered set of protocol entries. An entry's ID
// is its position in load order. Clarification prompts reference entries
// by ID, so IDs stay stable for the catalog's lifetime.
type Catalog struct {
	entries []models.CatalogEntry
}

// New builds a catalog from entries, assigning IDs in order. The input
// slice is copied.
func New(entries []models.CatalogEntry) *Catalog {
	c := &Catalog{entries: make([]models.CatalogEntry, len(entries))}
	copy(c.entries, entries)
	for i := range c.entries {
		c.entries[i].ID = i
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entry returns the entry with the given ID. Returns (zero, false) if the
// ID is out of range.
func (c *Catalog) Entry(id int) (models.CatalogEntry, bool) {
	if id < 0 || id >= len(c.entries) {
		return models.CatalogEntry{}, false
	}
	return c.entries[id], true
}

// Entries returns all entries in ID order.
func (c *Catalog) Entries() []models.CatalogEntry {
	result := make([]models.CatalogEntry, len(c.entries))
	copy(result, c.entries)
	return result
}

// Merge appends extra's entries after base's and returns the combined
// catalog. Base entries keep their IDs; extra entries continue the
// sequence.
func Merge(base, extra *Catalog) *Catalog {
	merged := make([]models.CatalogEntry, 0, len(base.entries)+len(extra.entries))
	merged = append(merged, base.entries...)
	merged = append(merged, extra.entries...)
	return New(merged)
}
