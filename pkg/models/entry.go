// Package models contains domain models for nova.
package models

// Severity classifies how serious a catalog entry's subject is.
// It is informational only; ranking never consults it.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// CatalogEntry is one authored protocol: trigger keywords, the response
// payload returned verbatim, and display metadata. ID is assigned by the
// catalog in load order and is the entry's identity across clarification
// round-trips; it is not part of the file format.
type CatalogEntry struct {
	ID        int      `json:"-"`
	Keywords  []string `json:"keywords"`
	Response  string   `json:"response"`
	Severity  Severity `json:"severity"`
	Category  string   `json:"category"`
	Questions []string `json:"questions,omitempty"`
}
