package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV decodes a telemetry table from simulator CSV output. The header
// row names the channels; unknown columns are ignored so simulator versions
// can add channels without breaking older readers. The ecam_alerts column
// holds a semicolon-separated alert list.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("telemetry: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["timestamp"]; !ok {
		return nil, fmt.Errorf("telemetry: missing timestamp column")
	}

	var table Table
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("telemetry: read row %d: %w", row, err)
		}

		f := Frame{}
		if f.Timestamp, err = intField(record, col, "timestamp"); err != nil {
			return nil, fmt.Errorf("telemetry: row %d: %w", row, err)
		}
		if f.AltitudeFt, err = intField(record, col, "altitude_ft"); err != nil {
			return nil, fmt.Errorf("telemetry: row %d: %w", row, err)
		}
		if f.FlapLeverPosition, err = intField(record, col, "flap_lever_position"); err != nil {
			return nil, fmt.Errorf("telemetry: row %d: %w", row, err)
		}

		floats := []struct {
			name string
			dst  *float64
		}{
			{"airspeed_kts", &f.AirspeedKts},
			{"left_flap_angle_deg", &f.LeftFlapAngleDeg},
			{"right_flap_angle_deg", &f.RightFlapAngleDeg},
			{"green_hydraulic_pressure_psi", &f.GreenHydraulicPressurePSI},
			{"right_flap_sensor_faulty_output_deg", &f.RightFlapSensorFaultyDeg},
			{"vertical_g_force", &f.VerticalGForce},
			{"left_flap_motor_current", &f.LeftFlapMotorCurrent},
			{"cabin_altitude_ft", &f.CabinAltitudeFt},
		}
		for _, fl := range floats {
			if *fl.dst, err = floatField(record, col, fl.name); err != nil {
				return nil, fmt.Errorf("telemetry: row %d: %w", row, err)
			}
		}

		if idx, ok := col["ecam_alerts"]; ok && idx < len(record) {
			raw := strings.TrimSpace(record[idx])
			if raw != "" && raw != "[]" {
				for _, a := range strings.Split(raw, ";") {
					if a = strings.TrimSpace(a); a != "" {
						f.ECAMAlerts = append(f.ECAMAlerts, a)
					}
				}
			}
		}

		table = append(table, f)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func intField(record []string, col map[string]int, name string) (int, error) {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return 0, fmt.Errorf("missing column %q", name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(record[idx]))
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func floatField(record []string, col map[string]int, name string) (float64, error) {
	idx, ok := col[name]
	if !ok || idx >= len(record) {
		return 0, fmt.Errorf("missing column %q", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}
