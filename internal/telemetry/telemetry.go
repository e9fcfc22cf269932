// Package telemetry defines the flight telemetry table consumed by the
// anomaly detector: one frame per second with a fixed channel vocabulary.
package telemetry

import (
	"fmt"
)

// Frame is one sampled row of flight telemetry.
type Frame struct {
	Timestamp                 int      `json:"timestamp"`
	AltitudeFt                int      `json:"altitude_ft"`
	AirspeedKts               float64  `json:"airspeed_kts"`
	FlapLeverPosition         int      `json:"flap_lever_position"`
	LeftFlapAngleDeg          float64  `json:"left_flap_angle_deg"`
	RightFlapAngleDeg         float64  `json:"right_flap_angle_deg"`
	GreenHydraulicPressurePSI float64  `json:"green_hydraulic_pressure_psi"`
	RightFlapSensorFaultyDeg  float64  `json:"right_flap_sensor_faulty_output_deg"`
	VerticalGForce            float64  `json:"vertical_g_force"`
	LeftFlapMotorCurrent      float64  `json:"left_flap_motor_current"`
	CabinAltitudeFt           float64  `json:"cabin_altitude_ft"`
	ECAMAlerts                []string `json:"ecam_alerts,omitempty"`
}

// Table is an ordered sequence of frames keyed by a monotonically
// increasing timestamp.
type Table []Frame

// Validate checks the table preconditions the detector relies on: at least
// one frame and strictly increasing timestamps. Violations are fatal to the
// caller; they are never retried.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("telemetry: empty table")
	}
	for i := 1; i < len(t); i++ {
		if t[i].Timestamp <= t[i-1].Timestamp {
			return fmt.Errorf("telemetry: timestamp not increasing at row %d (%d after %d)",
				i, t[i].Timestamp, t[i-1].Timestamp)
		}
	}
	return nil
}
