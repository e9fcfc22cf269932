// Package detect implements the rule-based anomaly detector that scans a
// flight telemetry table for first-occurrence safety-relevant events.
package detect

import (
	"context"
	"math"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/blackbox/internal/telemetry"
)

// Detection thresholds, tuned against the simulator scenario suite.
const (
	FlapAsymmetryThresholdDeg     = 2.0
	HydraulicPressureThresholdPSI = 900.0
	GForceDeviationThreshold      = 0.3

	// Stuck-flap rule: after an upward lever command, the surface must move
	// at least this much within the observation window or it is flagged.
	flapStuckWindowSeconds = 4
	flapStuckEpsilonDeg    = 0.5

	// Motor-current rule only applies after initial climb-out.
	motorCheckAfterSeconds = 90
)

// criticalECAMAlerts is the fixed alert vocabulary, in priority order. The
// ECAM rule reports the first timestamp of the highest-priority alert
// present, not the earliest alert overall.
var criticalECAMAlerts = []string{
	"OVERSPEED",
	"ENG 1 FIRE",
	"ENG 1 STALL",
	"F/CTL FLAP SYS",
	"CAB PR SYS 1 FAULT",
	"CAB PR EXCESS CAB ALT",
	"GEAR NOT DOWN",
	"F/CTL FLAPS LOCKED",
}

// Finding is one fired rule: its name and the earliest timestamp (seconds)
// at which the rule condition held.
type Finding struct {
	Rule       string `json:"rule"`
	DetectedAt int    `json:"detected_at"`
}

// rule is a pure predicate over the full table. It reports whether it fired
// and the first timestamp it fired at. Rules never mutate the table.
type rule struct {
	name  string
	check func(telemetry.Table) (bool, int)
}

// Detector evaluates a fixed battery of independent rules. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	rules  []rule
	logger log.Logger
}

// New creates a detector with the standard rule battery. Output order of
// findings follows this registration order, which is fixed for
// reproducibility.
func New(logger log.Logger) *Detector {
	if logger == nil {
		logger = log.Nop()
	}
	return &Detector{
		logger: logger,
		rules: []rule{
			{"FLAP_ASYMMETRY", checkFlapAsymmetry},
			{"GREEN_HYDRAULIC_LOSS", checkHydraulicLoss},
			{"SENSOR_FAILURE", checkSensorDiscrepancy},
			{"G_FORCE_ANOMALY", checkGForceAnomaly},
			{"CRITICAL_ECAM_ALERT", checkCriticalECAMAlerts},
			{"MOTOR_CURRENT_FAILURE", checkMotorCurrentFailure},
			{"FLAP_STUCK", checkFlapStuck},
		},
	}
}

// Detect runs every rule over the table and returns the findings in rule
// registration order. The returned slice is empty, never nil, when nothing
// fires. The caller is responsible for validating the table first.
func (d *Detector) Detect(ctx context.Context, table telemetry.Table) []Finding {
	findings := make([]Finding, 0, len(d.rules))
	for _, r := range d.rules {
		fired, at := r.check(table)
		if !fired {
			continue
		}
		d.logger.Info(ctx, "anomaly rule fired", "rule", r.name, "detected_at", at)
		findings = append(findings, Finding{Rule: r.name, DetectedAt: at})
	}
	return findings
}

func checkFlapAsymmetry(table telemetry.Table) (bool, int) {
	for _, f := range table {
		if math.Abs(f.LeftFlapAngleDeg-f.RightFlapAngleDeg) > FlapAsymmetryThresholdDeg {
			return true, f.Timestamp
		}
	}
	return false, -1
}

func checkHydraulicLoss(table telemetry.Table) (bool, int) {
	for _, f := range table {
		if f.GreenHydraulicPressurePSI < HydraulicPressureThresholdPSI {
			return true, f.Timestamp
		}
	}
	return false, -1
}

// checkSensorDiscrepancy fires when flaps are commanded and physically
// deployed but the position sensor reads zero.
func checkSensorDiscrepancy(table telemetry.Table) (bool, int) {
	for _, f := range table {
		if f.FlapLeverPosition > 0 && f.RightFlapAngleDeg > 0 && f.RightFlapSensorFaultyDeg == 0 {
			return true, f.Timestamp
		}
	}
	return false, -1
}

func checkGForceAnomaly(table telemetry.Table) (bool, int) {
	for _, f := range table {
		if math.Abs(f.VerticalGForce-1.0) > GForceDeviationThreshold {
			return true, f.Timestamp
		}
	}
	return false, -1
}

// checkCriticalECAMAlerts matches by substring containment against the
// string-encoded alert channel. The outer loop walks the vocabulary so a
// higher-priority alert appearing late still wins over a lower-priority one
// appearing early.
func checkCriticalECAMAlerts(table telemetry.Table) (bool, int) {
	for _, alert := range criticalECAMAlerts {
		for _, f := range table {
			for _, present := range f.ECAMAlerts {
				if strings.Contains(present, alert) {
					return true, f.Timestamp
				}
			}
		}
	}
	return false, -1
}

func checkMotorCurrentFailure(table telemetry.Table) (bool, int) {
	for _, f := range table {
		if f.Timestamp > motorCheckAfterSeconds && f.FlapLeverPosition > 0 && f.LeftFlapMotorCurrent == 0 {
			return true, f.Timestamp
		}
	}
	return false, -1
}

// checkFlapStuck records the surface angle at each upward lever command and
// flags the command timestamp if the surface never deviates by more than
// epsilon within the forward window.
func checkFlapStuck(table telemetry.Table) (bool, int) {
	for i := 1; i < len(table); i++ {
		cmd := table[i]
		if cmd.FlapLeverPosition <= table[i-1].FlapLeverPosition || cmd.FlapLeverPosition <= 0 {
			continue
		}

		initial := cmd.LeftFlapAngleDeg
		var maxDeviation float64
		var observed bool
		for j := i + 1; j < len(table); j++ {
			if table[j].Timestamp > cmd.Timestamp+flapStuckWindowSeconds {
				break
			}
			observed = true
			if dev := math.Abs(table[j].LeftFlapAngleDeg - initial); dev > maxDeviation {
				maxDeviation = dev
			}
		}

		if observed && maxDeviation < flapStuckEpsilonDeg {
			return true, cmd.Timestamp
		}
	}
	return false, -1
}
