// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services and translate errors; business logic stays out.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ingestmodels "vigil/internal/ingest/models"
	"vigil/internal/screening/models"
	"vigil/internal/screening/service/aggregator"
	"vigil/internal/search"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
	"vigil/pkg/requestcontext"
)

// ScreeningService defines the screening operations the handler needs.
type ScreeningService interface {
	Search(ctx context.Context, req aggregator.Request) (map[string][]models.Candidate, error)
}

// IngestService defines the ingestion run operations the handler needs.
type IngestService interface {
	StartRun(ctx context.Context, dataset string, estimatedTotal int, fullRebuild bool) (ingestmodels.Run, error)
	ProcessBatch(ctx context.Context, runID string, rows []ingestmodels.SourceRow) (ingestmodels.Run, error)
	CompleteRun(ctx context.Context, runID string) (ingestmodels.Run, error)
	FailRun(ctx context.Context, runID, message string) (ingestmodels.Run, error)
	GetRun(ctx context.Context, runID string) (ingestmodels.Run, error)
	ListRuns(ctx context.Context) []ingestmodels.Run
	ReindexDataset(ctx context.Context, dataset string, force bool) (ingestmodels.Run, error)
}

// Handler wires screening, ingestion and search-tracking endpoints.
type Handler struct {
	screening ScreeningService
	ingest    IngestService
	tracker   *search.Tracker
	logger    *slog.Logger
}

// New constructs the handler with its dependencies.
func New(screening ScreeningService, ingest IngestService, tracker *search.Tracker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{screening: screening, ingest: ingest, tracker: tracker, logger: logger}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screen", h.HandleScreen)

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/runs", h.HandleStartRun)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{runID}", h.HandleGetRun)
		r.Post("/runs/{runID}/batches", h.HandleBatch)
		r.Post("/runs/{runID}/complete", h.HandleCompleteRun)
		r.Post("/runs/{runID}/fail", h.HandleFailRun)
		r.Post("/datasets/{dataset}/reindex", h.HandleReindex)
	})

	r.Route("/searches", func(r chi.Router) {
		r.Post("/", h.HandleCreateSearch)
		r.Get("/{searchID}", h.HandleGetSearch)
		r.Put("/{searchID}/sources/{source}", h.HandleSetSource)
	})
}

// HandleScreen handles POST /screen requests.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req ScreenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	domainReq, err := req.ToDomain()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	results, err := h.screening.Search(ctx, domainReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "screening search failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "screening search completed",
		"request_id", requestcontext.RequestID(ctx),
		"datasets", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toScreenResponse(results))
}

// HandleStartRun handles POST /ingest/runs requests.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Dataset == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "dataset is required"))
		return
	}
	run, err := h.ingest.StartRun(r.Context(), req.Dataset, req.EstimatedTotal, req.FullRebuild)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, run)
}

// HandleBatch handles POST /ingest/runs/{runID}/batches requests.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.Rows) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "rows must not be empty"))
		return
	}
	run, err := h.ingest.ProcessBatch(r.Context(), chi.URLParam(r, "runID"), req.Rows)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// HandleCompleteRun handles POST /ingest/runs/{runID}/complete requests.
func (h *Handler) HandleCompleteRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.ingest.CompleteRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// HandleFailRun handles POST /ingest/runs/{runID}/fail requests.
func (h *Handler) HandleFailRun(w http.ResponseWriter, r *http.Request) {
	var req FailRunRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	run, err := h.ingest.FailRun(r.Context(), chi.URLParam(r, "runID"), req.Message)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// HandleGetRun handles GET /ingest/runs/{runID} requests.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.ingest.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// HandleListRuns handles GET /ingest/runs requests.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"runs": h.ingest.ListRuns(r.Context()),
	})
}

// HandleReindex handles POST /ingest/datasets/{dataset}/reindex requests.
func (h *Handler) HandleReindex(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	run, err := h.ingest.ReindexDataset(r.Context(), chi.URLParam(r, "dataset"), force)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// HandleCreateSearch handles POST /searches requests.
func (h *Handler) HandleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var req CreateSearchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.Sources) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sources must not be empty"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.tracker.Create(r.Context(), req.Sources))
}

// HandleGetSearch handles GET /searches/{searchID} requests.
func (h *Handler) HandleGetSearch(w http.ResponseWriter, r *http.Request) {
	s, err := h.tracker.Get(r.Context(), chi.URLParam(r, "searchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

// HandleSetSource handles PUT /searches/{searchID}/sources/{source} requests.
func (h *Handler) HandleSetSource(w http.ResponseWriter, r *http.Request) {
	var req SetSourceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := search.SourceStatus(req.Status)
	switch status {
	case search.SourceRunning, search.SourcePending, search.SourceCompleted, search.SourceFailed, search.SourceSkipped:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid source status: "+req.Status))
		return
	}
	s, err := h.tracker.SetSource(r.Context(), chi.URLParam(r, "searchID"), chi.URLParam(r, "source"), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}
