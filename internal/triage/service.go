package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// SubmitResult is the outcome of submitting a flight for analysis.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Service is the business boundary for triage operations: dedup, report
// lifecycle, async dispatch, and notification.
type Service struct {
	store    Store
	engine   *Engine
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
}

// NewService creates a new triage service. metrics and notifier may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Submit accepts a flight for analysis, handling dedup and lifecycle. The
// analysis itself runs asynchronously; the returned ID is immediately
// queryable.
func (s *Service) Submit(ctx context.Context, in *FlightInput) (*SubmitResult, error) {
	fp := in.Fingerprint()

	// dedup: skip if the same input is already pending or in progress
	if existing, ok, err := s.store.GetByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.countSubmit("duplicate")
		return &SubmitResult{ID: existing.ID, Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	report := &Report{
		ID:          id,
		Fingerprint: fp,
		Flight:      in.Flight,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Put(ctx, report); err != nil {
		return nil, err
	}
	s.countSubmit("accepted")

	// run the analysis detached from the request context so a closed HTTP
	// connection does not abort it
	go s.runAnalysis(context.WithoutCancel(ctx), id, in)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves an analysis report by ID.
func (s *Service) Get(ctx context.Context, id string) (*Report, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) runAnalysis(ctx context.Context, id string, in *FlightInput) {
	L := s.logger.With("analysis_id", id, "flight", in.Flight)

	report, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch report for analysis")
		return
	}

	report.Status = StatusInProgress
	if err := s.store.Put(ctx, report); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	out := s.engine.Run(ctx, in)
	out.Fill(report)

	if err := s.store.Put(ctx, report); err != nil {
		L.Error(ctx, err, "failed to persist analysis report")
	}

	L.Info(ctx, "analysis finished",
		"status", out.Status,
		"category", out.Category,
		"confidence", out.Confidence,
		"duration", out.Duration,
		"oracle_calls", out.OracleCalls,
	)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, report); err != nil {
			L.Error(ctx, err, "notification failed")
		}
	}
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
