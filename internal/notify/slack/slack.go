// Package slack sends analysis notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/blackbox/internal/hfacs"
	"github.com/linnemanlabs/blackbox/internal/triage"
)

const (
	maxErrorLen = 1000
	httpTimeout = 10 * time.Second
)

// Notifier sends finished analysis reports to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts an analysis report to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, report *triage.Report) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(report)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *triage.Report) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			verdictBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *triage.Report) map[string]any {
	emoji := verdictEmoji(r)
	title := "Analysis Complete"
	if r.Status == triage.StatusFailed {
		title = "Analysis Failed"
	}
	text := fmt.Sprintf("%s %s: %s", emoji, title, r.Flight)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *triage.Report) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", r.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %d%%", r.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Anomalies:* %d", len(r.Anomalies)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Oracle calls:* %d", r.OracleCalls),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func verdictBlock(r *triage.Report) map[string]any {
	var text string
	switch {
	case r.Status == triage.StatusFailed:
		text = fmt.Sprintf("*Error*\n\n%s", truncate(r.Error, maxErrorLen))
	case len(r.EvidenceTags) > 0:
		text = fmt.Sprintf("*Evidence*\n\n%s", strings.Join(r.EvidenceTags, ", "))
	default:
		text = "_No evidence tags._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func contextBlock(r *triage.Report) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("blackbox • analysis %s • %s", r.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func verdictEmoji(r *triage.Report) string {
	switch {
	case r.Status == triage.StatusFailed:
		return "\U0001f534" // red circle
	case r.Category == hfacs.NoFault:
		return "\U0001f7e2" // green circle
	default:
		return "\U0001f7e1" // yellow circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
