// Package claude implements the classification oracle on top of the
// Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/blackbox/internal/oracle"
)

var tracer = otel.Tracer("github.com/linnemanlabs/blackbox/internal/oracle/claude")

const responseTokens = 2048

// Client is an oracle.Oracle backed by Claude. Tagging asks for a short
// deterministic label list, so temperature is pinned to zero.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude oracle client.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Classify sends the prompt and returns the concatenated text content of
// the response. Failures are classified into the oracle error taxonomy.
func (c *Client) Classify(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "oracle.classify")
	defer span.End()
	span.SetAttributes(
		attribute.String("gen_ai.request.model", string(c.model)),
		attribute.Int("oracle.prompt_bytes", len(prompt)),
	)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   responseTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		cerr := classify(err)
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Error())
		return "", cerr
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	span.SetAttributes(attribute.Int("oracle.response_bytes", sb.Len()))
	return strings.TrimSpace(sb.String()), nil
}

// classify maps transport and API failures onto the oracle taxonomy.
func classify(err error) error {
	// Caller-initiated cancellation is not an oracle failure class; let the
	// agent's retry loop observe it directly.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return oracle.NewError(kindForStatus(apierr.StatusCode), err)
	}

	// No API response at all: treat as transient transport unavailability.
	return oracle.NewError(oracle.KindUnavailable, fmt.Errorf("transport: %w", err))
}

// kindForStatus maps an HTTP status to a failure kind. 529 is Anthropic's
// overloaded_error status.
func kindForStatus(status int) oracle.Kind {
	switch status {
	case http.StatusTooManyRequests:
		return oracle.KindRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return oracle.KindUnavailable
	case http.StatusUnauthorized, http.StatusForbidden:
		return oracle.KindPermissionDenied
	case http.StatusBadRequest, http.StatusNotFound,
		http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return oracle.KindMalformedRequest
	default:
		return oracle.KindUnknown
	}
}
