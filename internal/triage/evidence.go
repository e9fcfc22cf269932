package triage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// buildEvidenceText concatenates the narrative transcript, maintenance
// logs, and context data into the label-tagged evidence block every
// specialist sees. Built once per analysis.
func buildEvidenceText(in *FlightInput) string {
	var sb strings.Builder

	sb.WriteString("NARRATIVE REPORT (CVR):\n")
	for _, e := range in.Narrative.Transcript {
		switch {
		case e.Speaker != "":
			fmt.Fprintf(&sb, "- %s: %s\n", e.Speaker, e.Dialogue)
		case e.Sound != "":
			fmt.Fprintf(&sb, "- (Sound: %s)\n", e.Sound)
		}
	}

	sb.WriteString("\nMAINTENANCE LOGS:\n")
	for _, log := range in.MaintenanceLogs {
		fmt.Fprintf(&sb, "- %s: %s | Action: %s\n", log.EntryDate, log.Report, log.Action)
	}

	sb.WriteString("\nCONTEXT DATA:\n")
	for _, key := range sortedKeys(in.Context) {
		fmt.Fprintf(&sb, "- %s: %s\n", titleizeKey(key), in.Context[key])
	}

	return sb.String()
}

// specialistFindingsJSON serializes the per-role tag lists for the
// adjudicator prompt. Marshaling a map keeps key order stable (sorted), so
// the adjudicator prompt is reproducible for identical findings.
func specialistFindingsJSON(findings map[string][]string) string {
	normalized := make(map[string][]string, len(findings))
	for role, tags := range findings {
		if tags == nil {
			tags = []string{}
		}
		normalized[role] = tags
	}
	b, err := json.MarshalIndent(normalized, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// titleizeKey turns a snake_case context key into a display label
// ("atc_communication" -> "Atc Communication").
func titleizeKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
