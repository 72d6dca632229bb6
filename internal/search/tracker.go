package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/requestcontext"
)

// ErrSearchNotFound is returned for unknown search IDs.
var ErrSearchNotFound = dErrors.New(dErrors.CodeNotFound, "search not found")

// Search is one tracked multi-source screening search.
type Search struct {
	ID        string                  `json:"id"`
	Sources   map[string]SourceStatus `json:"sources"`
	Overall   OverallStatus           `json:"overall"`
	StartedAt time.Time               `json:"started_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Tracker keeps search progress in memory. Search state is short-lived
// operational data; nothing here needs to survive a restart.
type Tracker struct {
	mu       sync.RWMutex
	searches map[string]*Search
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{searches: make(map[string]*Search)}
}

// Create registers a search over the given sources, all starting pending.
func (t *Tracker) Create(ctx context.Context, sources []string) Search {
	now := requestcontext.Now(ctx)
	search := &Search{
		ID:        uuid.NewString(),
		Sources:   make(map[string]SourceStatus, len(sources)),
		StartedAt: now,
		UpdatedAt: now,
	}
	for _, source := range sources {
		search.Sources[source] = SourcePending
	}
	search.Overall = Derive(search.Sources)

	t.mu.Lock()
	t.searches[search.ID] = search
	t.mu.Unlock()
	return snapshot(search)
}

// SetSource updates one source's status and re-derives the overall status.
func (t *Tracker) SetSource(ctx context.Context, searchID, source string, status SourceStatus) (Search, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	search, ok := t.searches[searchID]
	if !ok {
		return Search{}, ErrSearchNotFound
	}
	if _, ok := search.Sources[source]; !ok {
		return Search{}, dErrors.New(dErrors.CodeBadRequest, "unknown source: "+source)
	}
	search.Sources[source] = status
	search.Overall = Derive(search.Sources)
	search.UpdatedAt = requestcontext.Now(ctx)
	return snapshot(search), nil
}

// Get returns a snapshot of a search.
func (t *Tracker) Get(_ context.Context, searchID string) (Search, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	search, ok := t.searches[searchID]
	if !ok {
		return Search{}, ErrSearchNotFound
	}
	return snapshot(search), nil
}

func snapshot(s *Search) Search {
	copied := *s
	copied.Sources = make(map[string]SourceStatus, len(s.Sources))
	for source, status := range s.Sources {
		copied.Sources[source] = status
	}
	return copied
}
