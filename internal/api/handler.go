// Package api serves the case endpoints consumed by the map front end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casemap/internal/classifier"
	"casemap/internal/logger"
	"casemap/internal/models"
	"casemap/internal/normalizer"
)

// maxBodyBytes bounds the add-case request body.
const maxBodyBytes = 1 << 20

// Ingester inserts one candidate.
type Ingester interface {
	Ingest(ctx context.Context, c *models.Candidate) models.IngestOutcome
}

// CaseReader lists stored cases.
type CaseReader interface {
	ListAll(ctx context.Context) ([]models.CaseRecord, error)
	ListByState(ctx context.Context, state string) ([]models.CaseRecord, error)
}

// Handler wires the case endpoints to the store and the ingestion engine.
type Handler struct {
	cases    CaseReader
	ingester Ingester
	gatherer prometheus.Gatherer
	logger   *logger.Logger
}

// New constructs a handler. A nil gatherer disables /metrics.
func New(cases CaseReader, ingester Ingester, gatherer prometheus.Gatherer, log *logger.Logger) *Handler {
	return &Handler{
		cases:    cases,
		ingester: ingester,
		gatherer: gatherer,
		logger:   log,
	}
}

// Router returns the full route tree with middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.HandleHealth)

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", h.Register)

	return r
}

// Register mounts the case endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases", h.HandleListCases)
	r.Get("/cases/by-state", h.HandleCasesByState)
	r.Post("/add-case", h.HandleAddCase)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleListCases handles GET /api/cases.
func (h *Handler) HandleListCases(w http.ResponseWriter, r *http.Request) {
	records, err := h.cases.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list cases", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)

		return
	}

	writeJSON(w, http.StatusOK, nonNil(records))
}

// HandleCasesByState handles GET /api/cases/by-state?state=X. The state is
// matched after canonicalization, so "PI" and "piaui" both find Piauí.
func (h *Handler) HandleCasesByState(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("state")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "query parameter state is required")
		return
	}

	records, err := h.cases.ListByState(r.Context(), classifier.Canonicalize(raw))
	if err != nil {
		h.logger.Error("failed to list cases by state",
			"request_id", middleware.GetReqID(r.Context()),
			"state", raw,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, msgInternal)

		return
	}

	writeJSON(w, http.StatusOK, nonNil(records))
}

// HandleAddCase handles POST /api/add-case.
func (h *Handler) HandleAddCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var req AddCaseRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	candidate := req.Candidate()
	out := h.ingester.Ingest(ctx, &candidate)

	switch out.Kind {
	case models.OutcomeInserted:
		h.logger.Info("case added",
			"request_id", requestID,
			"id", out.ID,
			"state", out.Geo.StateName(),
		)
		writeJSON(w, http.StatusOK, AddCaseResponse{Success: true, ID: out.ID})
	case models.OutcomeSkippedDuplicate:
		writeError(w, http.StatusConflict, msgDuplicate)
	case models.OutcomeInvalid:
		var verr *normalizer.ValidationError
		if errors.As(out.Err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   verr.Error(),
				Missing: verr.Fields,
			})

			return
		}

		writeError(w, http.StatusBadRequest, out.Err.Error())
	default:
		h.logger.Error("failed to add case", "request_id", requestID, "error", out.Err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func nonNil(records []models.CaseRecord) []models.CaseRecord {
	if records == nil {
		return []models.CaseRecord{}
	}

	return records
}
