// Package search tracks per-source completion of multi-source screening
// searches and derives an overall status from the parts.
package search

// SourceStatus is the state of one source within a search.
type SourceStatus string

const (
	SourceRunning   SourceStatus = "running"
	SourcePending   SourceStatus = "pending"
	SourceCompleted SourceStatus = "completed"
	SourceFailed    SourceStatus = "failed"
	SourceSkipped   SourceStatus = "skipped"
)

// done reports whether the source has reached a terminal state.
func (s SourceStatus) done() bool {
	return s == SourceCompleted || s == SourceFailed || s == SourceSkipped
}

// OverallStatus is the aggregate state of a search across its sources.
type OverallStatus string

const (
	OverallPending   OverallStatus = "pending"
	OverallPartial   OverallStatus = "partial"
	OverallCompleted OverallStatus = "completed"
	OverallFailed    OverallStatus = "failed"
)

// Derive computes the aggregate status. All sources terminal and at least
// one completed yields completed; all terminal with failures and no
// completions yields failed; a mix of terminal and live sources is partial.
// Skipped sources never decide the outcome on their own: an all-skipped
// search counts as completed.
func Derive(sources map[string]SourceStatus) OverallStatus {
	if len(sources) == 0 {
		return OverallPending
	}

	var doneCount, failedCount, completedCount int
	for _, status := range sources {
		if status.done() {
			doneCount++
		}
		switch status {
		case SourceFailed:
			failedCount++
		case SourceCompleted:
			completedCount++
		}
	}

	if doneCount == len(sources) {
		if failedCount > 0 && completedCount == 0 {
			return OverallFailed
		}
		return OverallCompleted
	}
	if doneCount > 0 {
		return OverallPartial
	}
	return OverallPending
}
