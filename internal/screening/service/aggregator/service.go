// Package aggregator runs the hybrid screening search: exact identifier
// lookup and semantic vector retrieval in parallel, rescored with fuzzy name
// matching and metadata corroboration.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/screening/cache"
	"vigil/internal/screening/fuzzy"
	"vigil/internal/screening/metrics"
	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
	"vigil/internal/screening/ports"
	"vigil/internal/screening/score"
	dErrors "vigil/pkg/domain-errors"
)

const (
	defaultTopK      = 10
	defaultThreshold = 0.6
)

// Service aggregates match candidates across watchlist datasets.
type Service struct {
	records     ports.RecordStore
	identifiers ports.IdentifierIndex
	vectors     ports.VectorIndex
	embedder    ports.Embedder

	matcher    *fuzzy.Matcher
	datasets   map[string]models.DatasetSpec
	embedCache *cache.TTL[[]float32]
	metrics    *metrics.Metrics
	logger     *slog.Logger

	topK      int
	threshold float64
}

// Option configures the aggregator service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMatcher overrides the fuzzy name matcher.
func WithMatcher(matcher *fuzzy.Matcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEmbedCache caches query embeddings so repeated screenings of the same
// name skip the embedding service.
func WithEmbedCache(c *cache.TTL[[]float32]) Option {
	return func(s *Service) { s.embedCache = c }
}

// WithDefaults sets the topK and threshold used when a request leaves them
// unset.
func WithDefaults(topK int, threshold float64) Option {
	return func(s *Service) {
		if topK > 0 {
			s.topK = topK
		}
		s.threshold = threshold
	}
}

// NewService wires the aggregator. All four stores are required.
func NewService(
	records ports.RecordStore,
	identifiers ports.IdentifierIndex,
	vectors ports.VectorIndex,
	embedder ports.Embedder,
	opts ...Option,
) (*Service, error) {
	if records == nil || identifiers == nil || vectors == nil || embedder == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "aggregator requires record store, identifier index, vector index and embedder")
	}
	s := &Service{
		records:     records,
		identifiers: identifiers,
		vectors:     vectors,
		embedder:    embedder,
		matcher:     fuzzy.NewMatcher(),
		datasets:    models.BuiltinDatasets(),
		logger:      slog.Default(),
		topK:        defaultTopK,
		threshold:   defaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Request describes one screening query.
type Request struct {
	Query       string
	BirthDate   *time.Time
	Countries   []string
	Identifiers []string
	Datasets    []string
	TopK        int
	Threshold   float64
}

// Search screens the query against the configured datasets and returns
// candidates grouped by dataset, best score first.
func (s *Service) Search(ctx context.Context, req Request) (map[string][]models.Candidate, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncrementSearch()
		defer s.metrics.ObserveSearch(start)
	}

	if req.Query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "query must not be empty")
	}
	datasets := req.Datasets
	if len(datasets) == 0 {
		datasets = make([]string, 0, len(s.datasets))
		for name := range s.datasets {
			datasets = append(datasets, name)
		}
		sort.Strings(datasets)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}

	var (
		identifierHits []models.IdentifierEntry
		vectorHits     []models.VectorHit
	)
	g, gctx := errgroup.WithContext(ctx)

	// Identifier path: best effort. A degraded index must not take down
	// fuzzy screening.
	g.Go(func() error {
		if len(req.Identifiers) == 0 {
			return nil
		}
		norms := make([]string, 0, len(req.Identifiers))
		for _, raw := range req.Identifiers {
			if norm := normalize.Identifier(raw); norm != "" {
				norms = append(norms, norm)
			}
		}
		if len(norms) == 0 {
			return nil
		}
		hits, err := s.identifiers.LookupMany(gctx, norms)
		if err != nil {
			s.logger.Warn("identifier lookup failed", "error", err)
			return nil
		}
		identifierHits = hits
		return nil
	})

	// Vector path: mandatory. Without the embedding there is no recall set
	// to rescore.
	g.Go(func() error {
		vector, err := s.embedQuery(gctx, req.Query)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementEmbeddingFailure()
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "embedding service unavailable")
		}
		hits, err := s.vectors.Query(gctx, vector, topK, datasets)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "vector query failed")
		}
		vectorHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementSearchFailure()
		}
		return nil, err
	}

	allowed := make(map[string]struct{}, len(datasets))
	for _, dataset := range datasets {
		allowed[dataset] = struct{}{}
	}

	// Collect the record IDs each dataset needs rehydrated, remembering
	// which came from the identifier path and the vector score of the rest.
	type hitInfo struct {
		vectorScore     float64
		identifierMatch bool
	}
	byDataset := make(map[string]map[string]hitInfo)
	add := func(dataset, recordID string, info hitInfo) {
		if _, ok := allowed[dataset]; !ok {
			return
		}
		if byDataset[dataset] == nil {
			byDataset[dataset] = make(map[string]hitInfo)
		}
		existing := byDataset[dataset][recordID]
		if info.identifierMatch {
			existing.identifierMatch = true
		}
		if info.vectorScore > existing.vectorScore {
			existing.vectorScore = info.vectorScore
		}
		byDataset[dataset][recordID] = existing
	}
	for _, hit := range identifierHits {
		add(hit.Dataset, hit.RecordID, hitInfo{identifierMatch: true})
	}
	for _, hit := range vectorHits {
		add(hit.Dataset, hit.RecordID, hitInfo{vectorScore: hit.Score})
	}

	results := make(map[string][]models.Candidate, len(byDataset))
	for dataset, hits := range byDataset {
		ids := make([]string, 0, len(hits))
		for id := range hits {
			ids = append(ids, id)
		}
		records, err := s.records.GetMany(ctx, dataset, ids)
		if err != nil {
			// One dataset's storage trouble should not empty the whole
			// response.
			s.logger.Error("candidate rehydration failed", "dataset", dataset, "error", err)
			continue
		}

		spec := s.datasets[dataset]
		candidates := make([]models.Candidate, 0, len(records))
		for _, record := range records {
			info := hits[record.ID]
			candidate := s.scoreCandidate(req, record, spec, info.vectorScore, info.identifierMatch)
			if candidate.Score >= threshold || candidate.Breakdown.IdentifierMatch {
				candidates = append(candidates, candidate)
			}
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Score != candidates[j].Score {
				return candidates[i].Score > candidates[j].Score
			}
			return candidates[i].Record.ID < candidates[j].Record.ID
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		if len(candidates) > 0 {
			results[dataset] = candidates
		}
	}
	return results, nil
}

func (s *Service) scoreCandidate(req Request, record models.WatchlistRecord, spec models.DatasetSpec, vectorScore float64, identifierMatch bool) models.Candidate {
	nameScore := s.matcher.BestNameScore(req.Query, record.PrimaryName, record.Aliases)

	// Datasets without birth dates never get the birth-date half of the
	// metadata signal; passing nil keeps the countries half intact.
	queryBirth := req.BirthDate
	if !spec.HasBirthDates {
		queryBirth = nil
	}
	metaScore := score.Meta(queryBirth, req.Countries, record.BirthDate, record.Countries)

	breakdown := models.MatchBreakdown{
		VectorScore:     vectorScore,
		NameScore:       nameScore,
		MetaScore:       metaScore,
		IdentifierMatch: identifierMatch,
	}
	total := score.Hybrid(vectorScore, nameScore, metaScore)
	if identifierMatch {
		total = score.IdentifierMatchScore
	}
	return models.Candidate{Record: record, Score: total, Breakdown: breakdown}
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := normalize.Name(query)
	if s.embedCache != nil {
		if vector, ok := s.embedCache.Get(key); ok {
			return vector, nil
		}
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, dErrors.New(dErrors.CodeInternal, "embedder returned wrong vector count")
	}
	if s.embedCache != nil {
		s.embedCache.Set(key, vectors[0])
	}
	return vectors[0], nil
}
