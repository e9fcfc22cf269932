package detect

import (
	"context"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/blackbox/internal/telemetry"
)

// nominalTable builds a clean cruise profile that trips no rules.
func nominalTable(n int) telemetry.Table {
	table := make(telemetry.Table, n)
	for i := range table {
		table[i] = telemetry.Frame{
			Timestamp:                 i,
			AltitudeFt:                35000,
			AirspeedKts:               450,
			GreenHydraulicPressurePSI: 3000,
			VerticalGForce:            1.0,
			LeftFlapMotorCurrent:      10,
			CabinAltitudeFt:           8000,
		}
	}
	return table
}

func TestDetect_NominalFlightIsEmpty(t *testing.T) {
	t.Parallel()

	findings := New(log.Nop()).Detect(context.Background(), nominalTable(120))
	if findings == nil {
		t.Fatal("Detect returned nil, want empty slice")
	}
	if len(findings) != 0 {
		t.Fatalf("findings = %v, want none", findings)
	}
}

func TestDetect_FlapAsymmetryEarliestTimestamp(t *testing.T) {
	t.Parallel()

	table := nominalTable(120)
	// Persistent asymmetry from t=40 on; only the first occurrence reports.
	for i := 40; i < 120; i++ {
		table[i].LeftFlapAngleDeg = 10
		table[i].RightFlapAngleDeg = 5
	}

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 1 {
		t.Fatalf("findings = %v, want exactly FLAP_ASYMMETRY", findings)
	}
	if findings[0].Rule != "FLAP_ASYMMETRY" {
		t.Errorf("rule = %q, want FLAP_ASYMMETRY", findings[0].Rule)
	}
	if findings[0].DetectedAt != 40 {
		t.Errorf("DetectedAt = %d, want 40", findings[0].DetectedAt)
	}
}

func TestDetect_AsymmetryAtThresholdDoesNotFire(t *testing.T) {
	t.Parallel()

	table := nominalTable(10)
	table[5].LeftFlapAngleDeg = 2.0 // exactly the threshold, strict >
	table[5].RightFlapAngleDeg = 0

	if findings := New(log.Nop()).Detect(context.Background(), table); len(findings) != 0 {
		t.Errorf("findings = %v, want none at exact threshold", findings)
	}
}

func TestDetect_HydraulicLoss(t *testing.T) {
	t.Parallel()

	table := nominalTable(100)
	for i := 55; i < 100; i++ {
		table[i].GreenHydraulicPressurePSI = 400
	}

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 1 || findings[0].Rule != "GREEN_HYDRAULIC_LOSS" {
		t.Fatalf("findings = %v, want GREEN_HYDRAULIC_LOSS", findings)
	}
	if findings[0].DetectedAt != 55 {
		t.Errorf("DetectedAt = %d, want 55", findings[0].DetectedAt)
	}
}

func TestDetect_SensorDiscrepancy(t *testing.T) {
	t.Parallel()

	table := nominalTable(100)
	// Flaps commanded and moving, faulty sensor stuck at zero. Keep the
	// healthy sensor path consistent so only the sensor rule fires.
	for i := 30; i < 40; i++ {
		table[i].FlapLeverPosition = 1
		table[i].LeftFlapAngleDeg = 5
		table[i].RightFlapAngleDeg = 5
		table[i].RightFlapSensorFaultyDeg = 0
	}

	findings := New(log.Nop()).Detect(context.Background(), table)

	var found *Finding
	for i := range findings {
		if findings[i].Rule == "SENSOR_FAILURE" {
			found = &findings[i]
		}
	}
	if found == nil {
		t.Fatalf("findings = %v, want SENSOR_FAILURE", findings)
	}
	if found.DetectedAt != 30 {
		t.Errorf("DetectedAt = %d, want 30", found.DetectedAt)
	}
}

func TestDetect_GForceAnomaly(t *testing.T) {
	t.Parallel()

	table := nominalTable(100)
	table[70].VerticalGForce = 1.4

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 1 || findings[0].Rule != "G_FORCE_ANOMALY" {
		t.Fatalf("findings = %v, want G_FORCE_ANOMALY", findings)
	}
	if findings[0].DetectedAt != 70 {
		t.Errorf("DetectedAt = %d, want 70", findings[0].DetectedAt)
	}
}

func TestDetect_ECAMAlertPriorityOrder(t *testing.T) {
	t.Parallel()

	table := nominalTable(100)
	// Lower-priority alert appears first in time; higher-priority one later.
	table[20].ECAMAlerts = []string{"GEAR NOT DOWN"}
	table[60].ECAMAlerts = []string{"OVERSPEED"}

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 1 || findings[0].Rule != "CRITICAL_ECAM_ALERT" {
		t.Fatalf("findings = %v, want CRITICAL_ECAM_ALERT", findings)
	}
	// OVERSPEED outranks GEAR NOT DOWN, so its timestamp wins even though
	// it fired later.
	if findings[0].DetectedAt != 60 {
		t.Errorf("DetectedAt = %d, want 60 (priority order, not time order)", findings[0].DetectedAt)
	}
}

func TestDetect_ECAMAlertSubstringMatch(t *testing.T) {
	t.Parallel()

	table := nominalTable(50)
	table[10].ECAMAlerts = []string{"MASTER WARN: ENG 1 FIRE LOOP A"}

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 1 || findings[0].Rule != "CRITICAL_ECAM_ALERT" {
		t.Fatalf("findings = %v, want CRITICAL_ECAM_ALERT via substring", findings)
	}
}

func TestDetect_MotorCurrentFailure(t *testing.T) {
	t.Parallel()

	table := nominalTable(120)
	// Before the 90s gate: must not fire even with zero current.
	table[50].FlapLeverPosition = 1
	table[50].LeftFlapAngleDeg = 5
	table[50].RightFlapAngleDeg = 5
	table[50].RightFlapSensorFaultyDeg = 5
	table[50].LeftFlapMotorCurrent = 0
	// After the gate: fires.
	for i := 95; i < 120; i++ {
		table[i].FlapLeverPosition = 2
		table[i].LeftFlapAngleDeg = 10
		table[i].RightFlapAngleDeg = 10
		table[i].RightFlapSensorFaultyDeg = 10
		table[i].LeftFlapMotorCurrent = 0
	}

	findings := New(log.Nop()).Detect(context.Background(), table)

	var found *Finding
	for i := range findings {
		if findings[i].Rule == "MOTOR_CURRENT_FAILURE" {
			found = &findings[i]
		}
	}
	if found == nil {
		t.Fatalf("findings = %v, want MOTOR_CURRENT_FAILURE", findings)
	}
	if found.DetectedAt != 95 {
		t.Errorf("DetectedAt = %d, want 95", found.DetectedAt)
	}
}

func TestDetect_FlapStuck(t *testing.T) {
	t.Parallel()

	table := nominalTable(120)
	// Lever commanded to position 1 at t=100, surface never moves.
	for i := 100; i < 120; i++ {
		table[i].FlapLeverPosition = 1
		table[i].RightFlapSensorFaultyDeg = 1 // keep sensor rule quiet
	}

	findings := New(log.Nop()).Detect(context.Background(), table)

	var found *Finding
	for i := range findings {
		if findings[i].Rule == "FLAP_STUCK" {
			found = &findings[i]
		}
	}
	if found == nil {
		t.Fatalf("findings = %v, want FLAP_STUCK", findings)
	}
	if found.DetectedAt != 100 {
		t.Errorf("DetectedAt = %d, want 100 (command timestamp)", found.DetectedAt)
	}
}

func TestDetect_FlapRespondsIsNotStuck(t *testing.T) {
	t.Parallel()

	table := nominalTable(120)
	for i := 100; i < 120; i++ {
		table[i].FlapLeverPosition = 1
		// Surface tracks the command within the window.
		table[i].LeftFlapAngleDeg = float64(i-99) * 2
		table[i].RightFlapAngleDeg = float64(i-99) * 2
		table[i].RightFlapSensorFaultyDeg = float64(i-99) * 2
	}

	for _, f := range New(log.Nop()).Detect(context.Background(), table) {
		if f.Rule == "FLAP_STUCK" {
			t.Fatalf("FLAP_STUCK fired for a responding surface: %+v", f)
		}
	}
}

func TestDetect_OutputFollowsRegistrationOrder(t *testing.T) {
	t.Parallel()

	table := nominalTable(120)
	// Trip hydraulic loss late and G-force early; registration order must
	// still report hydraulic loss first.
	table[110].GreenHydraulicPressurePSI = 100
	table[10].VerticalGForce = 2.0

	findings := New(log.Nop()).Detect(context.Background(), table)
	if len(findings) != 2 {
		t.Fatalf("findings = %v, want 2", findings)
	}
	if findings[0].Rule != "GREEN_HYDRAULIC_LOSS" || findings[1].Rule != "G_FORCE_ANOMALY" {
		t.Errorf("order = [%s, %s], want [GREEN_HYDRAULIC_LOSS, G_FORCE_ANOMALY]",
			findings[0].Rule, findings[1].Rule)
	}
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	table := nominalTable(50)
	table[25].ECAMAlerts = []string{"OVERSPEED"}
	before := make(telemetry.Table, len(table))
	copy(before, table)

	New(log.Nop()).Detect(context.Background(), table)

	for i := range table {
		if table[i].Timestamp != before[i].Timestamp ||
			table[i].VerticalGForce != before[i].VerticalGForce ||
			len(table[i].ECAMAlerts) != len(before[i].ECAMAlerts) {
			t.Fatalf("row %d mutated by Detect", i)
		}
	}
}
