// Package models holds the domain types shared by the screening services and
// stores. Records are written only by the ingestion pipeline and read-only to
// the aggregation path.
package models

import (
	"strings"
	"time"
)

// Identifier is one identity document attached to a watchlist record.
type Identifier struct {
	Type           string `json:"type"`
	Value          string `json:"value"`
	IssuingCountry string `json:"issuing_country,omitempty"`
}

// WatchlistRecord is one entry from one source dataset: a sanctioned
// individual or entity, a UN designation, a tax-delinquent taxpayer.
type WatchlistRecord struct {
	ID          string       `json:"id"`
	Dataset     string       `json:"dataset"`
	PrimaryName string       `json:"primary_name"`
	Aliases     []string     `json:"aliases,omitempty"`
	BirthDate   *time.Time   `json:"birth_date,omitempty"`
	Countries   []string     `json:"countries,omitempty"`
	Addresses   []string     `json:"addresses,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
	Remarks     string       `json:"remarks,omitempty"`

	// LastChange is an opaque version token used only for ordering
	// comparisons, never parsed as a calendar date.
	LastChange string `json:"last_change,omitempty"`
}

// NewerThan reports whether version token a orders strictly after b.
// Tokens compare lexicographically; ISO-8601 timestamps order correctly under
// this rule and non-date tokens remain usable.
func NewerThan(a, b string) bool {
	return a > b
}

// EmbeddingText composes the text embedded for this record: primary name,
// aliases, addresses and remarks joined on newlines. An empty composition
// means there is nothing to index.
func (r WatchlistRecord) EmbeddingText() string {
	var b strings.Builder
	parts := make([]string, 0, 2+len(r.Aliases)+len(r.Addresses))
	if r.PrimaryName != "" {
		parts = append(parts, r.PrimaryName)
	}
	for _, alias := range r.Aliases {
		if alias != "" {
			parts = append(parts, alias)
		}
	}
	for _, addr := range r.Addresses {
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	if r.Remarks != "" {
		parts = append(parts, r.Remarks)
	}
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

// DatasetSpec parameterizes the generic aggregator and pipeline over dataset
// shapes, replacing per-dataset copies of the scoring path.
type DatasetSpec struct {
	Name string

	// HasBirthDates controls whether the metadata score may use birth dates
	// for records of this dataset.
	HasBirthDates bool
}

// Built-in dataset descriptors mirroring the source lists.
var (
	DatasetSanctionsNational = DatasetSpec{Name: "sanctions_national", HasBirthDates: true}
	DatasetUNConsolidated    = DatasetSpec{Name: "un_consolidated", HasBirthDates: true}
	DatasetTaxDelinquents    = DatasetSpec{Name: "tax_delinquents", HasBirthDates: false}
)

// BuiltinDatasets returns the shipped descriptors keyed by name.
func BuiltinDatasets() map[string]DatasetSpec {
	return map[string]DatasetSpec{
		DatasetSanctionsNational.Name: DatasetSanctionsNational,
		DatasetUNConsolidated.Name:    DatasetUNConsolidated,
		DatasetTaxDelinquents.Name:    DatasetTaxDelinquents,
	}
}

// IdentifierEntry maps a normalized identifier value to its owning record.
type IdentifierEntry struct {
	Norm     string `json:"norm"`
	Dataset  string `json:"dataset"`
	RecordID string `json:"record_id"`
}

// VectorEntry is the derived, eventually-consistent vector projection of one
// record.
type VectorEntry struct {
	RecordID string    `json:"record_id"`
	Dataset  string    `json:"dataset"`
	Vector   []float32 `json:"vector"`

	// Payload carries a display string for index inspection tooling; the
	// record store remains the source of truth.
	Payload string `json:"payload,omitempty"`
}

// VectorHit is one nearest-neighbor result from the vector index.
type VectorHit struct {
	RecordID string  `json:"record_id"`
	Dataset  string  `json:"dataset"`
	Score    float64 `json:"score"`
}

// MatchBreakdown explains why a candidate scored the way it did. It is always
// returned with a candidate for auditability.
type MatchBreakdown struct {
	VectorScore     float64 `json:"vector_score"`
	NameScore       float64 `json:"name_score"`
	MetaScore       float64 `json:"meta_score"`
	IdentifierMatch bool    `json:"identifier_match"`
}

// Candidate is one scored match for a screening query.
type Candidate struct {
	Record    WatchlistRecord `json:"record"`
	Score     float64         `json:"score"`
	Breakdown MatchBreakdown  `json:"breakdown"`
}
