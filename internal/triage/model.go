package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/linnemanlabs/blackbox/internal/detect"
	"github.com/linnemanlabs/blackbox/internal/hfacs"
	"github.com/linnemanlabs/blackbox/internal/telemetry"
)

// Status tracks where an analysis is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means the analysis could not complete. Never conflated
	// with a clean "No Fault" verdict.
	StatusFailed Status = "failed"
)

// TranscriptEntry is one CVR transcript line: either spoken dialogue or a
// recorded sound.
type TranscriptEntry struct {
	RelativeTimestamp string `json:"relative_timestamp,omitempty"`
	Speaker           string `json:"speaker,omitempty"`
	Dialogue          string `json:"dialogue,omitempty"`
	Sound             string `json:"sound,omitempty"`
}

// Narrative is the CVR narrative report for a flight.
type Narrative struct {
	Transcript []TranscriptEntry `json:"transcript"`
}

// MaintenanceEntry is one maintenance log line.
type MaintenanceEntry struct {
	EntryDate string `json:"entry_date"`
	Report    string `json:"report"`
	Action    string `json:"action"`
}

// FlightInput is everything the engine needs for one analysis: the
// telemetry table plus the free-text evidence documents.
type FlightInput struct {
	Flight          string             `json:"flight"`
	Telemetry       telemetry.Table    `json:"telemetry"`
	Narrative       Narrative          `json:"narrative_report"`
	MaintenanceLogs []MaintenanceEntry `json:"maintenance_logs"`
	Context         map[string]string  `json:"context_data,omitempty"`
}

// Fingerprint derives a stable identity for the input, used for dedup.
func (in *FlightInput) Fingerprint() string {
	h := sha256.New()
	// Marshal is deterministic for these types (sorted map keys).
	b, _ := json.Marshal(in)
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Report is the persisted outcome of one analysis.
type Report struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Flight      string `json:"flight"`
	Status      Status `json:"status"`

	Category           string                `json:"category,omitempty"`
	Confidence         int                   `json:"confidence"`
	CategoryScores     map[string]int        `json:"category_scores,omitempty"`
	EvidenceTags       []string              `json:"evidence_tags,omitempty"`
	SpecialistFindings map[string][]string   `json:"specialist_findings,omitempty"`
	Anomalies          []detect.Finding      `json:"anomalies,omitempty"`
	LevelDetail        map[string][]string   `json:"level_detail,omitempty"`
	Error              string                `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    float64   `json:"duration_seconds,omitempty"`
	OracleCalls int       `json:"oracle_calls,omitempty"`
}

// Outcome is what one Engine.Run produces; the Service folds it into the
// persisted Report.
type Outcome struct {
	Status             Status
	Category           string
	Winner             hfacs.Level
	Confidence         int
	Scores             hfacs.Scores
	EvidenceTags       []string
	SpecialistFindings map[string][]string
	Anomalies          []detect.Finding
	Error              string
	Duration           float64
	OracleCalls        int
	CompletedAt        time.Time
}

// Fill copies the outcome into a report, flattening the rubric scores into
// the report's per-category maps.
func (out *Outcome) Fill(r *Report) {
	r.Status = out.Status
	r.Category = out.Category
	r.Confidence = out.Confidence
	r.CategoryScores = categoryScores(out.Scores)
	r.EvidenceTags = out.EvidenceTags
	r.SpecialistFindings = out.SpecialistFindings
	r.Anomalies = out.Anomalies
	r.LevelDetail = levelDetail(out.Scores)
	r.Error = out.Error
	r.CompletedAt = out.CompletedAt
	r.Duration = out.Duration
	r.OracleCalls = out.OracleCalls
}

// categoryScores flattens hfacs scores into the report's per-category map,
// always carrying all four levels.
func categoryScores(scores hfacs.Scores) map[string]int {
	out := make(map[string]int, 4)
	for _, lvl := range hfacs.Levels() {
		out[lvl.String()] = scores[lvl].Score
	}
	return out
}

// levelDetail carries the matched tags per level for audit.
func levelDetail(scores hfacs.Scores) map[string][]string {
	out := make(map[string][]string, 4)
	for _, lvl := range hfacs.Levels() {
		if tags := scores[lvl].Tags; len(tags) > 0 {
			out[lvl.String()] = tags
		}
	}
	return out
}
