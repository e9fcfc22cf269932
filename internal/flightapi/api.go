// Package flightapi exposes the HTTP surface for submitting flights and
// fetching analysis reports.
package flightapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/blackbox/internal/triage"
)

// TriageService defines the business operations flightapi needs.
type TriageService interface {
	Submit(ctx context.Context, in *triage.FlightInput) (*triage.SubmitResult, error)
	Get(ctx context.Context, id string) (*triage.Report, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/flights", a.handleSubmitFlight)
		r.Get("/analyses/{id}", a.handleGetAnalysis)
	})
}

func (a *API) handleSubmitFlight(w http.ResponseWriter, r *http.Request) {
	var in triage.FlightInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if err := in.Telemetry.Validate(); err != nil {
		a.logger.Warn(r.Context(), "rejecting flight with invalid telemetry",
			"flight", in.Flight, "error", err.Error())
		http.Error(w, `{"error":"invalid telemetry"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("blackbox.flight", in.Flight))

	res, err := a.svc.Submit(r.Context(), &in)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit flight", "flight", in.Flight)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      res.ID,
		"skipped": res.Skipped,
	})
}

func (a *API) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("blackbox.analysis.id", id))

	report, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get analysis report", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("blackbox.analysis.status", string(report.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
