package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/blackbox/internal/oracle"
)

// scriptedOracle fails with errs in order, then succeeds with response.
type scriptedOracle struct {
	mu       sync.Mutex
	errs     []error
	response string
	calls    int
	prompts  []string
}

func (o *scriptedOracle) Classify(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.calls
	o.calls++
	o.prompts = append(o.prompts, prompt)
	if idx < len(o.errs) {
		return "", o.errs[idx]
	}
	return o.response, nil
}

func testRole(t *testing.T) Role {
	t.Helper()
	role, err := NewRole("Test Role", "analyze: {{.combined_text}} tags: {{.all_evidence_tags}}",
		FieldCombinedText, FieldAllTags)
	if err != nil {
		t.Fatalf("NewRole: %v", err)
	}
	return role
}

func testFields() map[string]string {
	return map[string]string{
		FieldCombinedText: "some evidence",
		FieldAllTags:      "TAG_A, TAG_B",
	}
}

// recordedSleep captures backoff delays without actually sleeping.
func recordedSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	var mu sync.Mutex
	return func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		*delays = append(*delays, d)
		return nil
	}
}

func TestAnalyze_Success(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{response: "TAG_A, TAG_B"}
	a := New(testRole(t), o, log.Nop())

	tags, err := a.Analyze(context.Background(), testFields())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(tags) != 2 || tags[0] != "TAG_A" || tags[1] != "TAG_B" {
		t.Errorf("tags = %v, want [TAG_A TAG_B]", tags)
	}
	if o.calls != 1 {
		t.Errorf("oracle calls = %d, want 1", o.calls)
	}
	if !strings.Contains(o.prompts[0], "some evidence") {
		t.Errorf("prompt missing substituted field: %q", o.prompts[0])
	}
}

func TestAnalyze_RateLimitedTwiceThenSucceeds(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{
		errs: []error{
			oracle.NewError(oracle.KindRateLimited, errors.New("429")),
			oracle.NewError(oracle.KindRateLimited, errors.New("429")),
		},
		response: "TAG_A",
	}
	var delays []time.Duration
	a := New(testRole(t), o, log.Nop(), withSleep(recordedSleep(&delays)))

	tags, err := a.Analyze(context.Background(), testFields())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(tags) != 1 || tags[0] != "TAG_A" {
		t.Errorf("tags = %v, want [TAG_A]", tags)
	}
	if o.calls != 3 {
		t.Errorf("oracle calls = %d, want 3", o.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delays[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestAnalyze_PermissionDeniedNoRetry(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{
		errs: []error{oracle.NewError(oracle.KindPermissionDenied, errors.New("403"))},
	}
	var delays []time.Duration
	a := New(testRole(t), o, log.Nop(), withSleep(recordedSleep(&delays)))

	_, err := a.Analyze(context.Background(), testFields())
	if err == nil {
		t.Fatal("expected error")
	}
	if oracle.KindOf(err) != oracle.KindPermissionDenied {
		t.Errorf("kind = %q, want permission_denied", oracle.KindOf(err))
	}
	if o.calls != 1 {
		t.Errorf("oracle calls = %d, want 1 (no retry)", o.calls)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

func TestAnalyze_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	always := make([]error, DefaultMaxRetries+1)
	for i := range always {
		always[i] = oracle.NewError(oracle.KindUnavailable, errors.New("503"))
	}
	o := &scriptedOracle{errs: always}
	var delays []time.Duration
	a := New(testRole(t), o, log.Nop(), withSleep(recordedSleep(&delays)))

	_, err := a.Analyze(context.Background(), testFields())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if o.calls != DefaultMaxRetries+1 {
		t.Errorf("oracle calls = %d, want %d", o.calls, DefaultMaxRetries+1)
	}
	// 2s, 4s, 8s, 16s, 32s, 64s
	if len(delays) != DefaultMaxRetries {
		t.Fatalf("delays = %v, want %d entries", delays, DefaultMaxRetries)
	}
	for i, d := range delays {
		if want := time.Duration(1<<uint(i+1)) * time.Second; d != want {
			t.Errorf("delays[%d] = %v, want %v", i, d, want)
		}
	}
}

func TestAnalyze_MissingRequiredField(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{response: "TAG_A"}
	a := New(testRole(t), o, log.Nop())

	_, err := a.Analyze(context.Background(), map[string]string{
		FieldCombinedText: "present",
		// all_evidence_tags missing
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	if o.calls != 0 {
		t.Errorf("oracle calls = %d, want 0 (fail before calling)", o.calls)
	}
}

func TestAnalyze_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{
		errs: []error{
			oracle.NewError(oracle.KindUnavailable, errors.New("503")),
			oracle.NewError(oracle.KindUnavailable, errors.New("503")),
		},
		response: "TAG_A",
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := New(testRole(t), o, log.Nop(), withSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := a.Analyze(ctx, testFields())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if o.calls != 1 {
		t.Errorf("oracle calls = %d, want 1 (cancelled before retry)", o.calls)
	}
}

func TestAnalyze_NoneResponse(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"NONE", "none", "  None  "} {
		o := &scriptedOracle{response: raw}
		a := New(testRole(t), o, log.Nop())
		tags, err := a.Analyze(context.Background(), testFields())
		if err != nil {
			t.Fatalf("Analyze(%q): %v", raw, err)
		}
		if len(tags) != 0 {
			t.Errorf("tags for %q = %v, want none", raw, tags)
		}
	}
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"simple list", "A,B,C", []string{"A", "B", "C"}},
		{"spaced list", " A , B ,C ", []string{"A", "B", "C"}},
		{"trailing comma", "A,B,", []string{"A", "B"}},
		{"empty", "", nil},
		{"none literal", "NONE", nil},
		{"single tag", "L2_WEATHER", []string{"L2_WEATHER"}},
		{"garbage still tokenizes", "sure! here are tags, L2_WEATHER", []string{"sure! here are tags", "L2_WEATHER"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTags(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	for attempt, want := range map[int]time.Duration{
		1: 2 * time.Second,
		2: 4 * time.Second,
		3: 8 * time.Second,
		6: 64 * time.Second,
	} {
		if got := BackoffDelay(attempt); got != want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestSpecialistRoles_PanelShape(t *testing.T) {
	t.Parallel()

	roles := SpecialistRoles()
	if len(roles) != 3 {
		t.Fatalf("panel size = %d, want 3", len(roles))
	}
	want := []string{RoleGeneralAnalyst, RoleTechOpsSpecialist, RoleMaintOrgSpecialist}
	for i, r := range roles {
		if r.Name != want[i] {
			t.Errorf("role[%d] = %q, want %q", i, r.Name, want[i])
		}
	}
}

func TestAdjudicatorRole_RequiresFindings(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{response: "NONE"}
	a := New(AdjudicatorRole(), o, log.Nop())

	_, err := a.Analyze(context.Background(), map[string]string{
		FieldOriginalEvidence: "evidence",
		FieldAllTags:          "TAG_A",
		// specialist_findings missing
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
}
