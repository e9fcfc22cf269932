package claude

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/linnemanlabs/blackbox/internal/oracle"
)

func TestKindForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   oracle.Kind
	}{
		{http.StatusTooManyRequests, oracle.KindRateLimited},
		{http.StatusInternalServerError, oracle.KindUnavailable},
		{http.StatusBadGateway, oracle.KindUnavailable},
		{http.StatusServiceUnavailable, oracle.KindUnavailable},
		{http.StatusGatewayTimeout, oracle.KindUnavailable},
		{529, oracle.KindUnavailable},
		{http.StatusUnauthorized, oracle.KindPermissionDenied},
		{http.StatusForbidden, oracle.KindPermissionDenied},
		{http.StatusBadRequest, oracle.KindMalformedRequest},
		{http.StatusNotFound, oracle.KindMalformedRequest},
		{http.StatusUnprocessableEntity, oracle.KindMalformedRequest},
		{http.StatusTeapot, oracle.KindUnknown},
	}

	for _, tt := range tests {
		if got := kindForStatus(tt.status); got != tt.want {
			t.Errorf("kindForStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassify_APIError(t *testing.T) {
	t.Parallel()

	err := classify(&anthropic.Error{StatusCode: http.StatusTooManyRequests})

	if oracle.KindOf(err) != oracle.KindRateLimited {
		t.Errorf("kind = %q, want rate_limited", oracle.KindOf(err))
	}
	if !oracle.Retryable(err) {
		t.Error("expected rate-limited error to be retryable")
	}
}

func TestClassify_TransportError(t *testing.T) {
	t.Parallel()

	err := classify(errors.New("connection refused"))

	if oracle.KindOf(err) != oracle.KindUnavailable {
		t.Errorf("kind = %q, want unavailable", oracle.KindOf(err))
	}
}

func TestClassify_ContextCancellationPassesThrough(t *testing.T) {
	t.Parallel()

	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		err := classify(cause)
		if !errors.Is(err, cause) {
			t.Errorf("classify(%v) = %v, want the cause unwrapped", cause, err)
		}
		var oe *oracle.Error
		if errors.As(err, &oe) {
			t.Errorf("classify(%v) produced an oracle error, want pass-through", cause)
		}
	}
}

func TestClassify_PermissionDeniedIsNotRetryable(t *testing.T) {
	t.Parallel()

	err := classify(&anthropic.Error{StatusCode: http.StatusForbidden})
	if oracle.Retryable(err) {
		t.Error("permission denied must not be retryable")
	}
}
