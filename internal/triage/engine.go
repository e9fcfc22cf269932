package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/blackbox/internal/agent"
	"github.com/linnemanlabs/blackbox/internal/detect"
	"github.com/linnemanlabs/blackbox/internal/hfacs"
	"github.com/linnemanlabs/blackbox/internal/oracle"
)

var tracer = otel.Tracer("github.com/linnemanlabs/blackbox/internal/triage")

// EngineHooks lets the caller observe engine activity (wired to Prometheus
// by main). All hooks are optional.
type EngineHooks struct {
	OnSpecialist func(role string, tagCount int, failed bool)
	OnComplete   func(e *CompleteEvent)
}

// CompleteEvent summarizes one finished analysis for metrics.
type CompleteEvent struct {
	Status      Status
	Category    string
	Anomalies   int
	OracleCalls int
	Duration    float64
}

// Engine runs the risk triage pipeline: anomaly detection, specialist
// evidence gathering, adjudication, and rubric scoring. It is stateless
// across runs; everything it holds is set at construction and read-only.
type Engine struct {
	detector    *detect.Detector
	rubric      *hfacs.Rubric
	specialists []*agent.Agent
	adjudicator *agent.Agent
	logger      log.Logger
	hooks       EngineHooks
}

// NewEngine builds an engine over the given oracle with the standard
// specialist panel and rubric.
func NewEngine(o oracle.Oracle, logger log.Logger, hooks EngineHooks, agentOpts ...agent.Option) *Engine {
	if logger == nil {
		logger = log.Nop()
	}

	specialists := make([]*agent.Agent, 0, 3)
	for _, role := range agent.SpecialistRoles() {
		specialists = append(specialists, agent.New(role, o, logger, agentOpts...))
	}

	return &Engine{
		detector:    detect.New(logger),
		rubric:      hfacs.Default(),
		specialists: specialists,
		adjudicator: agent.New(agent.AdjudicatorRole(), o, logger, agentOpts...),
		logger:      logger,
		hooks:       hooks,
	}
}

// Run executes the full analysis for one flight. It always returns an
// Outcome; failure is carried in the outcome status, never a panic. The
// returned status distinguishes a clean "No Fault" verdict from a failed
// analysis.
func (e *Engine) Run(ctx context.Context, in *FlightInput) *Outcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "triage.run")
	defer span.End()
	span.SetAttributes(attribute.String("blackbox.flight", in.Flight))

	L := e.logger.With("flight", in.Flight)
	out := &Outcome{SpecialistFindings: make(map[string][]string)}

	finish := func() *Outcome {
		out.Duration = time.Since(start).Seconds()
		out.CompletedAt = time.Now()
		span.SetAttributes(
			attribute.String("blackbox.triage.status", string(out.Status)),
			attribute.String("blackbox.triage.category", out.Category),
		)
		if e.hooks.OnComplete != nil {
			e.hooks.OnComplete(&CompleteEvent{
				Status:      out.Status,
				Category:    out.Category,
				Anomalies:   len(out.Anomalies),
				OracleCalls: out.OracleCalls,
				Duration:    out.Duration,
			})
		}
		return out
	}

	// Fail fast on malformed telemetry before any oracle spend.
	if err := in.Telemetry.Validate(); err != nil {
		L.Error(ctx, err, "telemetry precondition violated")
		span.SetStatus(codes.Error, err.Error())
		out.Status = StatusFailed
		out.Error = err.Error()
		return finish()
	}

	// DETECTING
	out.Anomalies = e.detector.Detect(ctx, in.Telemetry)
	if len(out.Anomalies) == 0 {
		L.Info(ctx, "no anomalies detected, short-circuiting to no-fault verdict")
		out.Status = StatusComplete
		out.Category = hfacs.NoFault
		out.Confidence = 100
		out.Scores = e.rubric.Score(ctx, e.logger, nil)
		return finish()
	}
	L.Info(ctx, "anomalies detected, convening expert panel", "count", len(out.Anomalies))

	// GATHERING: one shared evidence block, three independent specialists.
	evidenceText := buildEvidenceText(in)
	allTags := strings.Join(e.rubric.Tags(), ", ")
	specialistFields := map[string]string{
		agent.FieldCombinedText: evidenceText,
		agent.FieldAllTags:      allTags,
	}

	findings := make([][]string, len(e.specialists))
	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range e.specialists {
		g.Go(func() error {
			tags, err := sp.Analyze(gctx, specialistFields)
			if err != nil {
				// Partial failure is tolerated here: the specialist
				// contributes no evidence and the pipeline proceeds.
				L.Warn(gctx, "specialist contribution degraded to empty",
					"role", sp.Role(), "error", err.Error())
				tags = nil
			}
			findings[i] = tags
			if e.hooks.OnSpecialist != nil {
				e.hooks.OnSpecialist(sp.Role(), len(tags), err != nil)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; the barrier is the point

	for i, sp := range e.specialists {
		out.SpecialistFindings[sp.Role()] = findings[i]
		out.OracleCalls++
	}

	// ADJUDICATING: strictly after every specialist has returned.
	adjTags, err := e.adjudicator.Analyze(ctx, map[string]string{
		agent.FieldOriginalEvidence:   evidenceText,
		agent.FieldSpecialistFindings: specialistFindingsJSON(out.SpecialistFindings),
		agent.FieldAllTags:            allTags,
	})
	out.OracleCalls++
	if err != nil {
		// The adjudicator is the sole source of final tags: any failure
		// terminates the analysis with an explicit error status.
		L.Error(ctx, err, "adjudicator failed, terminating analysis")
		span.SetStatus(codes.Error, err.Error())
		out.Status = StatusFailed
		out.Error = adjudicatorError(err)
		return finish()
	}

	// Scoring and winner selection.
	out.Scores = e.rubric.Score(ctx, e.logger, adjTags)
	out.Category, out.Winner, out.Confidence = hfacs.SelectWinner(out.Scores)
	if out.Winner != 0 {
		out.EvidenceTags = out.Scores[out.Winner].Tags
	}
	out.Status = StatusComplete

	L.Info(ctx, "analysis complete",
		"category", out.Category,
		"confidence", out.Confidence,
		"evidence_tags", len(out.EvidenceTags),
	)
	return finish()
}

// adjudicatorError renders a distinct, greppable error string per failure
// class so exhausted retries never read like a negative finding.
func adjudicatorError(err error) string {
	if errors.Is(err, agent.ErrRetriesExhausted) {
		return fmt.Sprintf("API error: adjudicator exhausted retries: %v", err)
	}
	return fmt.Sprintf("API error: adjudicator: %v", err)
}
