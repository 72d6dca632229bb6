package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/screening/models"
	"vigil/internal/screening/store/identifier"
	"vigil/internal/screening/store/record"
	"vigil/internal/screening/store/vector"
	dErrors "vigil/pkg/domain-errors"
)

// fakeEmbedder returns a fixed vector per normalized text, or fails.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

type failingIdentifierIndex struct{}

func (failingIdentifierIndex) InsertMany(context.Context, []models.IdentifierEntry) error {
	return errors.New("down")
}
func (failingIdentifierIndex) DeleteDataset(context.Context, string) error {
	return errors.New("down")
}
func (failingIdentifierIndex) LookupMany(context.Context, []string) ([]models.IdentifierEntry, error) {
	return nil, errors.New("down")
}

type AggregatorSuite struct {
	suite.Suite
	ctx         context.Context
	records     *record.InMemoryStore
	identifiers *identifier.InMemoryIndex
	vectors     *vector.InMemoryIndex
	embedder    *fakeEmbedder
	service     *Service
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.records = record.NewInMemoryStore()
	s.identifiers = identifier.NewInMemoryIndex()
	s.vectors = vector.NewInMemoryIndex()
	s.embedder = &fakeEmbedder{vectors: map[string][]float32{
		"Juan Perez": {1, 0, 0},
	}}

	var err error
	s.service, err = NewService(s.records, s.identifiers, s.vectors, s.embedder)
	s.Require().NoError(err)

	s.seed(models.WatchlistRecord{
		ID:          "A",
		Dataset:     "sanctions_national",
		PrimaryName: "JUAN PEREZ LOPEZ",
		BirthDate:   ptrDate(1957, 4, 4),
		Countries:   []string{"MX"},
		Identifiers: []models.Identifier{{Type: "RFC", Value: "PEGJ570404"}},
		LastChange:  "2024-01-01",
	}, []float32{0.95, 0.05, 0})

	s.seed(models.WatchlistRecord{
		ID:          "B",
		Dataset:     "sanctions_national",
		PrimaryName: "COMPLETELY DIFFERENT NAME",
		LastChange:  "2024-01-01",
	}, []float32{0, 1, 0})

	s.seed(models.WatchlistRecord{
		ID:          "T-1",
		Dataset:     "tax_delinquents",
		PrimaryName: "JUAN PEREZ",
		BirthDate:   ptrDate(1957, 4, 4),
		Countries:   []string{"MX"},
		LastChange:  "2024-01-01",
	}, []float32{0.9, 0.1, 0})
}

func (s *AggregatorSuite) seed(r models.WatchlistRecord, vec []float32) {
	_, err := s.records.Upsert(s.ctx, r)
	s.Require().NoError(err)
	s.Require().NoError(s.vectors.Upsert(s.ctx, []models.VectorEntry{
		{RecordID: r.ID, Dataset: r.Dataset, Vector: vec},
	}))
	for _, ident := range r.Identifiers {
		s.Require().NoError(s.identifiers.InsertMany(s.ctx, []models.IdentifierEntry{
			{Norm: ident.Value, Dataset: r.Dataset, RecordID: r.ID},
		}))
	}
}

func ptrDate(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *AggregatorSuite) TestValidation() {
	_, err := s.service.Search(s.ctx, Request{})
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *AggregatorSuite) TestFuzzySearch() {
	results, err := s.service.Search(s.ctx, Request{
		Query:     "Juan Perez",
		BirthDate: ptrDate(1957, 4, 4),
		Countries: []string{"mx"},
		Datasets:  []string{"sanctions_national"},
	})
	s.Require().NoError(err)
	s.Require().Len(results["sanctions_national"], 1)

	candidate := results["sanctions_national"][0]
	s.Equal("A", candidate.Record.ID)
	s.False(candidate.Breakdown.IdentifierMatch)
	s.Greater(candidate.Breakdown.NameScore, 0.85)
	s.InDelta(1.0, candidate.Breakdown.MetaScore, 1e-9)
	s.Less(candidate.Score, 1.0)
	s.GreaterOrEqual(candidate.Score, 0.6)
}

func (s *AggregatorSuite) TestIdentifierMatchPinsScore() {
	results, err := s.service.Search(s.ctx, Request{
		Query:       "Jon Pretzel", // a name that would not match on its own
		Identifiers: []string{"pegj-570404"},
	})
	s.Require().NoError(err)
	s.Require().Len(results["sanctions_national"], 1)

	candidate := results["sanctions_national"][0]
	s.Equal("A", candidate.Record.ID)
	s.True(candidate.Breakdown.IdentifierMatch)
	s.InDelta(1.0, candidate.Score, 1e-9)
}

func (s *AggregatorSuite) TestThresholdFiltersWeakCandidates() {
	results, err := s.service.Search(s.ctx, Request{
		Query:    "Juan Perez",
		Datasets: []string{"sanctions_national"},
	})
	s.Require().NoError(err)
	for _, candidate := range results["sanctions_national"] {
		s.NotEqual("B", candidate.Record.ID)
	}
}

func (s *AggregatorSuite) TestBirthDateIgnoredWhenDatasetLacksThem() {
	results, err := s.service.Search(s.ctx, Request{
		Query:     "Juan Perez",
		BirthDate: ptrDate(1957, 4, 4),
		Countries: []string{"MX"},
		Datasets:  []string{"tax_delinquents"},
	})
	s.Require().NoError(err)
	s.Require().Len(results["tax_delinquents"], 1)

	// Countries still count for half a point; the matching birth date does
	// not, because the dataset carries none reliably.
	s.InDelta(0.5, results["tax_delinquents"][0].Breakdown.MetaScore, 1e-9)
}

func (s *AggregatorSuite) TestDefaultsSearchAllDatasets() {
	results, err := s.service.Search(s.ctx, Request{Query: "Juan Perez"})
	s.Require().NoError(err)
	s.Contains(results, "sanctions_national")
	s.Contains(results, "tax_delinquents")
}

func (s *AggregatorSuite) TestEmbedderFailureIsFatal() {
	s.embedder.fail = true
	_, err := s.service.Search(s.ctx, Request{Query: "Juan Perez"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *AggregatorSuite) TestIdentifierIndexFailureIsTolerated() {
	service, err := NewService(s.records, failingIdentifierIndex{}, s.vectors, s.embedder)
	s.Require().NoError(err)

	results, err := service.Search(s.ctx, Request{
		Query:       "Juan Perez",
		Identifiers: []string{"PEGJ570404"},
		Datasets:    []string{"sanctions_national"},
	})
	s.Require().NoError(err)
	s.Require().Len(results["sanctions_national"], 1)
	s.False(results["sanctions_national"][0].Breakdown.IdentifierMatch)
}

func (s *AggregatorSuite) TestTopKCapsPerDataset() {
	results, err := s.service.Search(s.ctx, Request{
		Query:    "Juan Perez",
		TopK:     1,
		Datasets: []string{"sanctions_national", "tax_delinquents"},
	})
	s.Require().NoError(err)
	for dataset, candidates := range results {
		s.LessOrEqualf(len(candidates), 1, "dataset %s exceeded topK", dataset)
	}
}

func (s *AggregatorSuite) TestConstructorRejectsNilDependencies() {
	_, err := NewService(nil, s.identifiers, s.vectors, s.embedder)
	s.Require().Error(err)
}
