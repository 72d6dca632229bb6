package httptransport

import (
	"vigil/internal/screening/models"
)

// CandidateResponse is the wire shape of one match candidate.
type CandidateResponse struct {
	RecordID    string            `json:"record_id"`
	Dataset     string            `json:"dataset"`
	PrimaryName string            `json:"primary_name"`
	Aliases     []string          `json:"aliases,omitempty"`
	BirthDate   string            `json:"birth_date,omitempty"`
	Countries   []string          `json:"countries,omitempty"`
	Score       float64           `json:"score"`
	Breakdown   BreakdownResponse `json:"breakdown"`
}

// BreakdownResponse exposes the individual match signals.
type BreakdownResponse struct {
	VectorScore     float64 `json:"vector_score"`
	NameScore       float64 `json:"name_score"`
	MetaScore       float64 `json:"meta_score"`
	IdentifierMatch bool    `json:"identifier_match"`
}

// ScreenResponse groups candidates by dataset.
type ScreenResponse struct {
	Results map[string][]CandidateResponse `json:"results"`
}

func toScreenResponse(results map[string][]models.Candidate) ScreenResponse {
	resp := ScreenResponse{Results: make(map[string][]CandidateResponse, len(results))}
	for dataset, candidates := range results {
		out := make([]CandidateResponse, len(candidates))
		for i, c := range candidates {
			out[i] = CandidateResponse{
				RecordID:    c.Record.ID,
				Dataset:     c.Record.Dataset,
				PrimaryName: c.Record.PrimaryName,
				Aliases:     c.Record.Aliases,
				Countries:   c.Record.Countries,
				Score:       c.Score,
				Breakdown: BreakdownResponse{
					VectorScore:     c.Breakdown.VectorScore,
					NameScore:       c.Breakdown.NameScore,
					MetaScore:       c.Breakdown.MetaScore,
					IdentifierMatch: c.Breakdown.IdentifierMatch,
				},
			}
			if c.Record.BirthDate != nil {
				out[i].BirthDate = c.Record.BirthDate.Format("2006-01-02")
			}
		}
		resp.Results[dataset] = out
	}
	return resp
}
