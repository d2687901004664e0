package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosagent/nova/pkg/models"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, 11, c.Len())

	// IDs follow load order.
	for i, e := range c.Entries() {
		assert.Equal(t, i, e.ID)
		assert.True(t, e.Severity.Valid(), "entry %d severity %q", i, e.Severity)
		assert.NotEmpty(t, e.Keywords)
		assert.NotEmpty(t, e.Response)
		assert.NotEmpty(t, e.Category)
	}

	first, ok := c.Entry(0)
	require.True(t, ok)
	assert.Contains(t, first.Keywords, "oxygen")
	assert.Equal(t, models.SeverityCritical, first.Severity)
	assert.Equal(t, "life_support", first.Category)
	assert.Len(t, first.Questions, 3)

	mars, ok := c.Entry(9)
	require.True(t, ok)
	assert.Contains(t, mars.Keywords, "mars")
	assert.Equal(t, "astronomy", mars.Category)
	assert.Empty(t, mars.Questions)
}

func TestEntryOutOfRange(t *testing.T) {
	c := Default()

	_, ok := c.Entry(-1)
	assert.False(t, ok)

	_, ok = c.Entry(c.Len())
	assert.False(t, ok)
}

func TestNewAssignsIDs(t *testing.T) {
	entries := []models.CatalogEntry{
		{Keywords: []string{"alpha"}, Response: "a", Severity: models.SeverityLow, Category: "one"},
		{Keywords: []string{"beta"}, Response: "b", Severity: models.SeverityLow, Category: "two"},
	}
	c := New(entries)

	require.Equal(t, 2, c.Len())
	e0, _ := c.Entry(0)
	e1, _ := c.Entry(1)
	assert.Equal(t, 0, e0.ID)
	assert.Equal(t, 1, e1.ID)
	assert.Equal(t, "one", e0.Category)
	assert.Equal(t, "two", e1.Category)

	// The caller's slice is untouched.
	assert.Equal(t, 0, entries[1].ID)
}

func TestMerge(t *testing.T) {
	base := Default()
	extra := New([]models.CatalogEntry{
		{Keywords: []string{"thruster"}, Response: "x", Severity: models.SeverityHigh, Category: "propulsion"},
	})

	merged := Merge(base, extra)
	require.Equal(t, base.Len()+1, merged.Len())

	// Base IDs survive the merge; extra entries continue the sequence.
	orig, _ := base.Entry(3)
	kept, _ := merged.Entry(3)
	assert.Equal(t, orig.Category, kept.Category)

	added, ok := merged.Entry(base.Len())
	require.True(t, ok)
	assert.Equal(t, base.Len(), added.ID)
	assert.Equal(t, "propulsion", added.Category)
}
