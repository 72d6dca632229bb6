// Package ingest runs watchlist list loads: parse, conditional insert,
// identifier indexing and vectorization, with run-level progress tracking.
package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"vigil/internal/ingest/metrics"
	"vigil/internal/ingest/models"
	screening "vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
	"vigil/internal/screening/ports"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/requestcontext"
)

const (
	defaultBatchSize = 50

	// maxFailureMessage bounds the error text stored on a failed run.
	maxFailureMessage = 500
)

// Service orchestrates ingestion runs for watchlist datasets.
type Service struct {
	runs        *RunStore
	records     ports.RecordStore
	identifiers ports.IdentifierIndex
	vectors     ports.VectorIndex
	syncState   ports.SyncStateStore
	embedder    ports.Embedder
	publisher   ports.WorkPublisher

	datasets  map[string]screening.DatasetSpec
	metrics   *metrics.Metrics
	logger    *slog.Logger
	batchSize int
}

// Option configures the ingestion service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher enables reindex work-item publication on run completion.
func WithPublisher(p ports.WorkPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBatchSize sets the batch size used by IngestAll and ReindexDataset.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewService wires the ingestion service. All stores and the embedder are
// required; the publisher is optional.
func NewService(
	runs *RunStore,
	records ports.RecordStore,
	identifiers ports.IdentifierIndex,
	vectors ports.VectorIndex,
	syncState ports.SyncStateStore,
	embedder ports.Embedder,
	opts ...Option,
) (*Service, error) {
	if runs == nil || records == nil || identifiers == nil || vectors == nil || syncState == nil || embedder == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ingest service requires run store, record store, identifier index, vector index, sync state and embedder")
	}
	s := &Service{
		runs:        runs,
		records:     records,
		identifiers: identifiers,
		vectors:     vectors,
		syncState:   syncState,
		embedder:    embedder,
		datasets:    screening.BuiltinDatasets(),
		logger:      slog.Default(),
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartRun opens a run for a dataset. When fullRebuild is set, the derived
// indexes (identifiers, vectors, sync state) are truncated so the load
// rebuilds them from scratch; primary records keep their conditional-update
// protection.
func (s *Service) StartRun(ctx context.Context, dataset string, estimatedTotal int, fullRebuild bool) (models.Run, error) {
	if _, ok := s.datasets[dataset]; !ok {
		return models.Run{}, dErrors.New(dErrors.CodeBadRequest, "unknown dataset: "+dataset)
	}

	run := models.Run{
		ID:             uuid.NewString(),
		Dataset:        dataset,
		Phase:          models.PhaseInitializing,
		StartedAt:      requestcontext.Now(ctx),
		EstimatedTotal: estimatedTotal,
	}

	if fullRebuild {
		if err := s.identifiers.DeleteDataset(ctx, dataset); err != nil {
			return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "truncate identifier index")
		}
		if err := s.vectors.DeleteDataset(ctx, dataset); err != nil {
			return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "truncate vector index")
		}
		if err := s.syncState.DeleteDataset(ctx, dataset); err != nil {
			return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "truncate sync state")
		}
	}

	if err := s.runs.Save(ctx, run); err != nil {
		return models.Run{}, err
	}
	if s.metrics != nil {
		s.metrics.RunsStarted.Inc()
	}
	s.logger.Info("ingestion run started",
		"run_id", run.ID, "dataset", dataset, "estimated_total", estimatedTotal, "full_rebuild", fullRebuild)
	return run, nil
}

// ProcessBatch parses and stores one batch of source rows for a run.
// Row-level failures are recorded on the run; only run-level problems (bad
// run ID, terminal phase) surface as errors.
func (s *Service) ProcessBatch(ctx context.Context, runID string, rows []models.SourceRow) (models.Run, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return models.Run{}, err
	}
	if run.Phase.Terminal() {
		return models.Run{}, dErrors.New(dErrors.CodeConflict, "run already finished")
	}

	baseRow := run.Processed
	var (
		parseErrs []models.ParseError
		records   []screening.WatchlistRecord
	)
	for i, row := range rows {
		record, errs, ok := parseRow(run.Dataset, baseRow+i+1, row)
		parseErrs = append(parseErrs, errs...)
		if ok {
			records = append(records, record)
		}
	}
	if s.metrics != nil && len(parseErrs) > 0 {
		s.metrics.ParseErrors.Add(float64(len(parseErrs)))
	}

	// A batch may carry the same record twice; the last occurrence wins.
	// Required because a multi-row upsert cannot touch one key twice.
	records = dedupeByID(records)

	written, failed, err := s.records.UpsertMany(ctx, records)
	if err != nil {
		return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "store batch")
	}
	if s.metrics != nil && written > 0 {
		s.metrics.RowsIngested.Add(float64(written))
	}

	// Derived indexes follow the stored records, not the incoming rows: a
	// row the conditional upsert rejected as stale must not overwrite
	// fresher index entries or sync state.
	stored, err := s.records.GetMany(ctx, run.Dataset, recordIDs(records))
	if err != nil {
		return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "reload stored batch")
	}

	if err := s.indexIdentifiers(ctx, stored); err != nil {
		s.logger.Warn("identifier indexing failed", "run_id", runID, "error", err)
	}

	indexErrs := s.vectorize(ctx, run.Dataset, stored, false)

	return s.runs.Update(ctx, runID, func(r *models.Run) {
		r.Advance(models.PhaseInserting)
		r.Processed += len(rows)
		r.Written += written
		r.Failed += failed
		r.Skipped += len(records) - written - failed
		r.IndexErrors += indexErrs
		for _, e := range parseErrs {
			r.RecordError(e)
		}
		r.Progress = progressPercentage(*r)
	})
}

// CompleteRun closes a run and, when a publisher is configured, hands a
// reindex work item to the dispatcher. Publication is fire and forget: a
// broker problem is logged, never surfaced to the caller.
func (s *Service) CompleteRun(ctx context.Context, runID string) (models.Run, error) {
	var transitioned bool
	run, err := s.runs.Update(ctx, runID, func(r *models.Run) {
		if !r.Advance(models.PhaseCompleted) {
			return
		}
		now := requestcontext.Now(ctx)
		r.FinishedAt = &now
		r.Progress = 100
		transitioned = true
	})
	if err != nil {
		return models.Run{}, err
	}
	if !transitioned {
		return models.Run{}, dErrors.New(dErrors.CodeConflict, "run already finished")
	}

	s.logger.Info("ingestion run completed",
		"run_id", run.ID, "dataset", run.Dataset,
		"written", run.Written, "skipped", run.Skipped, "failed", run.Failed,
		"parse_errors", run.ParseErrCount, "index_errors", run.IndexErrors)

	if s.publisher != nil {
		if err := s.publisher.PublishReindex(ctx, run.Dataset, run.ID); err != nil {
			s.logger.Warn("reindex publication failed", "run_id", run.ID, "error", err)
		}
	}
	return run, nil
}

// FailRun marks a run failed with a bounded error message. A run already in a
// terminal phase stays as it finished.
func (s *Service) FailRun(ctx context.Context, runID, message string) (models.Run, error) {
	if len(message) > maxFailureMessage {
		message = message[:maxFailureMessage]
	}
	var transitioned bool
	run, err := s.runs.Update(ctx, runID, func(r *models.Run) {
		if !r.Advance(models.PhaseFailed) {
			return
		}
		now := requestcontext.Now(ctx)
		r.FinishedAt = &now
		r.Error = message
		transitioned = true
	})
	if err != nil {
		return models.Run{}, err
	}
	if !transitioned {
		return models.Run{}, dErrors.New(dErrors.CodeConflict, "run already finished")
	}
	if s.metrics != nil {
		s.metrics.RunsFailed.Inc()
	}
	s.logger.Error("ingestion run failed", "run_id", runID, "dataset", run.Dataset, "error", message)
	return run, nil
}

// GetRun returns a run snapshot.
func (s *Service) GetRun(ctx context.Context, runID string) (models.Run, error) {
	return s.runs.Get(ctx, runID)
}

// ListRuns returns all known runs.
func (s *Service) ListRuns(ctx context.Context) []models.Run {
	return s.runs.List(ctx)
}

// IngestAll loads a full set of rows in one call, batching internally. Used
// for file-based loads where the whole list is in hand.
func (s *Service) IngestAll(ctx context.Context, dataset string, rows []models.SourceRow, fullRebuild bool) (models.Run, error) {
	run, err := s.StartRun(ctx, dataset, len(rows), fullRebuild)
	if err != nil {
		return models.Run{}, err
	}
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		if _, err := s.ProcessBatch(ctx, run.ID, rows[start:end]); err != nil {
			return s.FailRun(ctx, run.ID, err.Error())
		}
	}
	return s.CompleteRun(ctx, run.ID)
}

// ReindexDataset re-embeds a dataset's records. Records whose stored version
// token is not strictly newer than their last-indexed token are skipped
// unless force is set. Tracked as its own run so progress is observable.
func (s *Service) ReindexDataset(ctx context.Context, dataset string, force bool) (models.Run, error) {
	if _, ok := s.datasets[dataset]; !ok {
		return models.Run{}, dErrors.New(dErrors.CodeBadRequest, "unknown dataset: "+dataset)
	}

	records, err := s.records.ListDataset(ctx, dataset)
	if err != nil {
		return models.Run{}, dErrors.Wrap(err, dErrors.CodeInternal, "list dataset")
	}

	run := models.Run{
		ID:             uuid.NewString(),
		Dataset:        dataset,
		Phase:          models.PhaseVectorizing,
		StartedAt:      requestcontext.Now(ctx),
		EstimatedTotal: len(records),
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return models.Run{}, err
	}

	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		indexErrs := s.vectorize(ctx, dataset, records[start:end], force)

		run, err = s.runs.Update(ctx, run.ID, func(r *models.Run) {
			r.Processed += end - start
			r.IndexErrors += indexErrs
			r.Progress = progressPercentage(*r)
		})
		if err != nil {
			return models.Run{}, err
		}
	}

	return s.runs.Update(ctx, run.ID, func(r *models.Run) {
		if !r.Advance(models.PhaseCompleted) {
			return
		}
		now := requestcontext.Now(ctx)
		r.FinishedAt = &now
		r.Progress = 100
	})
}

// indexIdentifiers writes the normalized identifier entries for a set of
// records. Empty normalized values are dropped.
func (s *Service) indexIdentifiers(ctx context.Context, records []screening.WatchlistRecord) error {
	var entries []screening.IdentifierEntry
	for _, record := range records {
		for _, ident := range record.Identifiers {
			norm := normalize.Identifier(ident.Value)
			if norm == "" {
				continue
			}
			entries = append(entries, screening.IdentifierEntry{
				Norm:     norm,
				Dataset:  record.Dataset,
				RecordID: record.ID,
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return s.identifiers.InsertMany(ctx, entries)
}

// vectorize embeds and stores vectors for the records whose version token is
// strictly newer than the last indexed one, or all of them under force.
// Records without a version token are always re-embedded. Returns the number
// of batches that failed; vectorization failures never fail the run.
func (s *Service) vectorize(ctx context.Context, dataset string, records []screening.WatchlistRecord, force bool) int {
	eligible := records
	if !force {
		ids := make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.ID)
		}
		indexed, err := s.syncState.GetMany(ctx, dataset, ids)
		if err != nil {
			s.logger.Warn("sync state lookup failed, re-embedding everything", "dataset", dataset, "error", err)
		} else {
			eligible = eligible[:0:0]
			for _, record := range records {
				if token, ok := indexed[record.ID]; ok && record.LastChange != "" && !screening.NewerThan(record.LastChange, token) {
					continue
				}
				eligible = append(eligible, record)
			}
		}
	}
	if len(eligible) == 0 {
		return 0
	}

	texts := make([]string, len(eligible))
	for i, record := range eligible {
		texts[i] = record.EmbeddingText()
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(eligible) {
		if s.metrics != nil {
			s.metrics.IndexErrors.Inc()
		}
		s.logger.Warn("embedding batch failed", "dataset", dataset, "count", len(eligible), "error", err)
		return 1
	}

	entries := make([]screening.VectorEntry, len(eligible))
	changes := make(map[string]string, len(eligible))
	for i, record := range eligible {
		entries[i] = screening.VectorEntry{
			RecordID: record.ID,
			Dataset:  dataset,
			Vector:   vectors[i],
			Payload:  record.PrimaryName,
		}
		changes[record.ID] = record.LastChange
	}
	if err := s.vectors.Upsert(ctx, entries); err != nil {
		if s.metrics != nil {
			s.metrics.IndexErrors.Inc()
		}
		s.logger.Warn("vector upsert failed", "dataset", dataset, "count", len(entries), "error", err)
		return 1
	}
	if err := s.syncState.SetMany(ctx, dataset, changes); err != nil {
		s.logger.Warn("sync state write failed", "dataset", dataset, "error", err)
	}
	return 0
}

func recordIDs(records []screening.WatchlistRecord) []string {
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	return ids
}

// dedupeByID keeps the last occurrence of each record ID, preserving the
// order of last occurrences.
func dedupeByID(records []screening.WatchlistRecord) []screening.WatchlistRecord {
	last := make(map[string]int, len(records))
	for i, record := range records {
		last[record.ID] = i
	}
	out := records[:0:0]
	for i, record := range records {
		if last[record.ID] == i {
			out = append(out, record)
		}
	}
	return out
}

// progressPercentage maps run state to a 0-100 figure: inserting covers
// 0-70 scaled by processed over the estimate, vectorizing covers 70-100.
func progressPercentage(run models.Run) int {
	switch run.Phase {
	case models.PhaseCompleted:
		return 100
	case models.PhaseInserting, models.PhaseParsing:
		if run.EstimatedTotal <= 0 {
			return 0
		}
		p := 70 * run.Processed / run.EstimatedTotal
		return min(p, 70)
	case models.PhaseVectorizing:
		if run.EstimatedTotal <= 0 {
			return 70
		}
		p := 70 + 30*run.Processed/run.EstimatedTotal
		return min(p, 100)
	default:
		return 0
	}
}
