// Package models defines the ingestion run lifecycle and source row shapes.
package models

import "time"

// Phase is the stage an ingestion run is in. Phases only move forward;
// Failed absorbs from any stage.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseDownloading  Phase = "downloading"
	PhaseParsing      Phase = "parsing"
	PhaseInserting    Phase = "inserting"
	PhaseVectorizing  Phase = "vectorizing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// phaseOrder drives the forward-only transition rule.
var phaseOrder = map[Phase]int{
	PhaseIdle:         0,
	PhaseInitializing: 1,
	PhaseDownloading:  2,
	PhaseParsing:      3,
	PhaseInserting:    4,
	PhaseVectorizing:  5,
	PhaseCompleted:    6,
	PhaseFailed:       7,
}

// CanTransition reports whether a run may move from p to next.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	return phaseOrder[next] >= phaseOrder[p]
}

// MaxParseErrors caps how many row-level errors a run keeps. Beyond the cap
// only the counter advances.
const MaxParseErrors = 100

// ParseError records one rejected or degraded source row.
type ParseError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Run tracks one ingestion of one dataset.
type Run struct {
	ID             string       `json:"id"`
	Dataset        string       `json:"dataset"`
	Phase          Phase        `json:"phase"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
	EstimatedTotal int          `json:"estimated_total"`
	Processed      int          `json:"processed"`
	Written        int          `json:"written"`
	Skipped        int          `json:"skipped"`
	Failed         int          `json:"failed"`
	ParseErrCount  int          `json:"parse_error_count"`
	IndexErrors    int          `json:"index_errors"`
	ParseErrors    []ParseError `json:"parse_errors,omitempty"`
	Progress       int          `json:"progress"`
	Error          string       `json:"error,omitempty"`
}

// Advance moves the run to next when the forward-only rule allows it,
// reporting whether the transition happened. Terminal runs never move.
func (r *Run) Advance(next Phase) bool {
	if !r.Phase.CanTransition(next) {
		return false
	}
	r.Phase = next
	return true
}

// RecordError appends a parse error, respecting the cap. The counter always
// advances.
func (r *Run) RecordError(e ParseError) {
	r.ParseErrCount++
	if len(r.ParseErrors) < MaxParseErrors {
		r.ParseErrors = append(r.ParseErrors, e)
	}
}

// SourceRow is the wire shape of one incoming watchlist entry.
type SourceRow struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Aliases     []string           `json:"aliases,omitempty"`
	BirthDate   string             `json:"birth_date,omitempty"`
	Countries   []string           `json:"countries,omitempty"`
	Addresses   []string           `json:"addresses,omitempty"`
	Identifiers []SourceIdentifier `json:"identifiers,omitempty"`
	Remarks     string             `json:"remarks,omitempty"`
	LastChange  string             `json:"last_change,omitempty"`
}

// SourceIdentifier is one identifier as delivered by a list source.
type SourceIdentifier struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Country string `json:"country,omitempty"`
}
