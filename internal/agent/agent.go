// Package agent wraps one oracle invocation per analysis role: it renders
// the role's prompt template over a named-field context, calls the oracle
// with bounded retry, and parses the tag-list response.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/blackbox/internal/oracle"
)

// DefaultMaxRetries is the number of additional attempts after the first
// call fails with a retryable error.
const DefaultMaxRetries = 6

// ErrMissingField marks a prompt context missing a field the role requires.
// This is a configuration error; it is never retried.
var ErrMissingField = errors.New("missing required context field")

// ErrRetriesExhausted marks a call that stayed retryable through the whole
// retry budget.
var ErrRetriesExhausted = errors.New("oracle retries exhausted")

// Agent is one analysis role bound to an oracle. It is immutable after
// construction and safe for concurrent use.
type Agent struct {
	role       Role
	oracle     oracle.Oracle
	logger     log.Logger
	maxRetries int

	// sleep suspends between retry attempts; overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(a *Agent) { a.maxRetries = n }
}

// withSleep replaces the inter-attempt sleep. Test hook.
func withSleep(fn func(context.Context, time.Duration) error) Option {
	return func(a *Agent) { a.sleep = fn }
}

// New creates an agent for the given role.
func New(role Role, o oracle.Oracle, logger log.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = log.Nop()
	}
	a := &Agent{
		role:       role,
		oracle:     o,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Role returns the agent's role name.
func (a *Agent) Role() string { return a.role.Name }

// Analyze renders the prompt from fields and returns the oracle's evidence
// tags. Transient oracle failures are retried with exponential backoff;
// fatal failures and missing fields return immediately. The returned slice
// holds raw tags in oracle output order; validation against the rubric is
// the caller's concern.
func (a *Agent) Analyze(ctx context.Context, fields map[string]string) ([]string, error) {
	prompt, err := a.role.render(fields)
	if err != nil {
		return nil, err
	}

	raw, err := a.classifyWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseTags(raw), nil
}

// classifyWithRetry is the bounded retry loop. Retries are strictly
// sequential; the only effect between attempts is the backoff sleep, which
// honors ctx cancellation.
func (a *Agent) classifyWithRetry(ctx context.Context, prompt string) (string, error) {
	L := a.logger.With("role", a.role.Name)

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(attempt)
			L.Warn(ctx, "retrying oracle call",
				"attempt", attempt,
				"max_retries", a.maxRetries,
				"backoff", delay.String(),
			)
			if err := a.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		raw, err := a.oracle.Classify(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if !oracle.Retryable(err) {
			L.Error(ctx, err, "oracle call failed", "kind", string(oracle.KindOf(err)))
			return "", err
		}
		lastErr = err
	}

	L.Error(ctx, lastErr, "oracle retry budget exhausted", "attempts", a.maxRetries+1)
	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, a.maxRetries+1, lastErr)
}

// BackoffDelay returns the sleep before retry n (1-based): 2^n seconds,
// uncapped, no jitter.
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// ParseTags splits a raw oracle response into tag tokens. The literal NONE
// (any case) means no evidence. Any other content is split on commas and
// trimmed; token validity is decided downstream by the rubric.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "NONE") {
		return nil
	}
	var tags []string
	for _, tok := range strings.Split(raw, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			tags = append(tags, tok)
		}
	}
	return tags
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
