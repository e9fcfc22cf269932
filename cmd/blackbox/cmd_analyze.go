package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/blackbox/internal/oracle/claude"
	"github.com/linnemanlabs/blackbox/internal/telemetry"
	"github.com/linnemanlabs/blackbox/internal/triage"
)

var analyzeFlags struct {
	telemetryPath string
	evidencePath  string
	outputPath    string
	configPath    string
	flight        string
	apiKey        string
	model         string
	verbose       bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze --telemetry flight.csv [--evidence evidence.json]",
	Short: "Run a one-shot risk triage analysis on a recorded flight",
	Long: `Analyze a recorded flight and print the risk triage report as JSON.

The telemetry CSV uses the flight recorder column layout (timestamp,
altitude_ft, flap angles, hydraulic pressure, ecam_alerts, ...). The
optional evidence file carries the CVR narrative, maintenance logs, and
context data as JSON.

The Claude API key is read from --api-key, the CLAUDE_API_KEY environment
variable, or the claude_api_key field of ~/.blackbox.yaml, in that order.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.telemetryPath, "telemetry", "", "Path to telemetry CSV (required)")
	f.StringVar(&analyzeFlags.evidencePath, "evidence", "", "Path to evidence JSON (narrative, maintenance logs, context)")
	f.StringVarP(&analyzeFlags.outputPath, "output", "o", "", "Write the report to this path instead of stdout")
	f.StringVar(&analyzeFlags.configPath, "config", "", "Config file path (default: ~/"+defaultConfigName+")")
	f.StringVar(&analyzeFlags.flight, "flight", "", "Flight identifier for the report (default: from evidence file)")
	f.StringVar(&analyzeFlags.apiKey, "api-key", "", "Claude API key (default: $CLAUDE_API_KEY)")
	f.StringVar(&analyzeFlags.model, "model", "", "Claude model (default: from config, then claude-sonnet-4-20250514)")
	f.BoolVarP(&analyzeFlags.verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	_ = analyzeCmd.MarkFlagRequired("telemetry")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fileCfg, err := loadConfig(analyzeFlags.configPath)
	if err != nil {
		return err
	}

	apiKey := firstNonEmpty(analyzeFlags.apiKey, os.Getenv("CLAUDE_API_KEY"), fileCfg.ClaudeAPIKey)
	if apiKey == "" {
		return fmt.Errorf("claude api key is required: set --api-key, CLAUDE_API_KEY, or claude_api_key in the config file")
	}
	model := firstNonEmpty(analyzeFlags.model, fileCfg.ClaudeModel, "claude-sonnet-4-20250514")

	in, err := loadFlightInput()
	if err != nil {
		return err
	}

	logger := log.Nop()
	if analyzeFlags.verbose {
		logger, err = newStderrLogger()
		if err != nil {
			return err
		}
	}

	engine := triage.NewEngine(claude.New(apiKey, model), logger, triage.EngineHooks{})

	report := &triage.Report{
		ID:          ulid.Make().String(),
		Fingerprint: in.Fingerprint(),
		Flight:      in.Flight,
		Status:      triage.StatusInProgress,
		CreatedAt:   time.Now(),
	}
	engine.Run(ctx, in).Fill(report)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	out = append(out, '\n')

	if analyzeFlags.outputPath != "" {
		if err := os.WriteFile(analyzeFlags.outputPath, out, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else if _, err := os.Stdout.Write(out); err != nil {
		return err
	}

	if report.Status == triage.StatusFailed {
		return fmt.Errorf("analysis failed: %s", report.Error)
	}
	return nil
}

// loadFlightInput assembles the engine input from the telemetry CSV and the
// optional evidence JSON file.
func loadFlightInput() (*triage.FlightInput, error) {
	var in triage.FlightInput

	if analyzeFlags.evidencePath != "" {
		data, err := os.ReadFile(analyzeFlags.evidencePath)
		if err != nil {
			return nil, fmt.Errorf("read evidence: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("parse evidence %s: %w", analyzeFlags.evidencePath, err)
		}
	}

	f, err := os.Open(analyzeFlags.telemetryPath)
	if err != nil {
		return nil, fmt.Errorf("open telemetry: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := telemetry.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse telemetry %s: %w", analyzeFlags.telemetryPath, err)
	}
	in.Telemetry = table

	if analyzeFlags.flight != "" {
		in.Flight = analyzeFlags.flight
	}
	if in.Flight == "" {
		in.Flight = analyzeFlags.telemetryPath
	}
	return &in, nil
}

// newStderrLogger builds a logger with the log package's flag defaults,
// without registering anything on the global flag set.
func newStderrLogger() (log.Logger, error) {
	var logCfg log.Config
	fs := flag.NewFlagSet("blackbox-log", flag.ContinueOnError)
	logCfg.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		return nil, err
	}
	return log.New(logCfg.ToOptions("blackbox"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
