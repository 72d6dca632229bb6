package httptransport

import (
	"strings"
	"time"

	ingestmodels "vigil/internal/ingest/models"
	"vigil/internal/screening/service/aggregator"
	dErrors "vigil/pkg/domain-errors"
)

// ScreenRequest is the wire shape of a screening query.
type ScreenRequest struct {
	Query       string   `json:"query"`
	BirthDate   string   `json:"birth_date,omitempty"`
	Countries   []string `json:"countries,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"`
	Datasets    []string `json:"datasets,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
}

// ToDomain validates and converts the request.
func (r ScreenRequest) ToDomain() (aggregator.Request, error) {
	req := aggregator.Request{
		Query:       strings.TrimSpace(r.Query),
		Countries:   r.Countries,
		Identifiers: r.Identifiers,
		Datasets:    r.Datasets,
		TopK:        r.TopK,
		Threshold:   r.Threshold,
	}
	if req.Query == "" {
		return aggregator.Request{}, dErrors.New(dErrors.CodeBadRequest, "query is required")
	}
	if r.BirthDate != "" {
		t, err := time.Parse("2006-01-02", r.BirthDate)
		if err != nil {
			return aggregator.Request{}, dErrors.New(dErrors.CodeBadRequest, "birth_date must be YYYY-MM-DD")
		}
		req.BirthDate = &t
	}
	return req, nil
}

// StartRunRequest opens an ingestion run.
type StartRunRequest struct {
	Dataset        string `json:"dataset"`
	EstimatedTotal int    `json:"estimated_total,omitempty"`
	FullRebuild    bool   `json:"full_rebuild,omitempty"`
}

// BatchRequest carries one batch of source rows for a run.
type BatchRequest struct {
	Rows []ingestmodels.SourceRow `json:"rows"`
}

// FailRunRequest marks a run failed.
type FailRunRequest struct {
	Message string `json:"message"`
}

// CreateSearchRequest registers a tracked multi-source search.
type CreateSearchRequest struct {
	Sources []string `json:"sources"`
}

// SetSourceRequest updates one source's status within a search.
type SetSourceRequest struct {
	Status string `json:"status"`
}
