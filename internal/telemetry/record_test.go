package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/models"
)

func sampleAt(ts time.Time, alt float64) models.FlightSample {
	return models.FlightSample{
		Timestamp:      ts,
		Temperature:    21.456,
		Pressure:       1001.2,
		Altitude:       alt,
		AccelX:         0.1,
		AccelY:         -0.2,
		AccelZ:         7.999,
		AccelMagnitude: 8.0,
		GyroZ:          1.5,
		GPS: models.GPSFix{
			Latitude:   -22.9055601,
			Longitude:  -47.0608299,
			Altitude:   612.346,
			Satellites: 9,
			Valid:      true,
		},
		BatteryVolts: 4.1,
		Sources:      models.SourceStatus{BaroValid: true, IMUValid: true, GPSValid: true, BatteryValid: true},
	}
}

func TestColumnsOrder(t *testing.T) {
	require.Len(t, Columns, 24)
	assert.Equal(t, "timestamp", Columns[0])
	assert.Equal(t, "state_id", Columns[1])
	assert.Equal(t, "altitude_agl", Columns[8])
	assert.Equal(t, "lat", Columns[10])
	assert.Equal(t, "accel_magnitude", Columns[17])
	assert.Equal(t, "payload_status", Columns[23])

	h := Header()
	h[0] = "mutado"
	assert.Equal(t, "timestamp", Columns[0], "Header devolve cópia")
}

func TestFormatRecord(t *testing.T) {
	ts := time.Date(2025, 6, 1, 14, 30, 5, 123000000, time.UTC)
	snap := models.Snapshot{
		State:          models.StatePostLaunchReport,
		Phase:          models.PhaseFlight,
		LaunchAltitude: 600,
		Readiness:      models.Readiness{BatteryOK: true, SensorsOK: true, PayloadOK: false},
	}
	derived := models.DerivedSignals{VerticalVelocity: 42.127, AccelerationMagnitude: 8.0}

	row := Format(NewRecord(sampleAt(ts, 712.5), derived, snap))
	require.Len(t, row, len(Columns))

	assert.Equal(t, "2025-06-01 14:30:05.123", row[0])
	assert.Equal(t, "8", row[1])
	assert.Equal(t, "LBIT-8: Post Launch", row[2])
	assert.Equal(t, "3", row[3])
	assert.Equal(t, "FLIGHT", row[4])
	assert.Equal(t, "21.46", row[5])
	assert.Equal(t, "712.50", row[7])
	assert.Equal(t, "112.50", row[8])
	assert.Equal(t, "42.13", row[9])
	assert.Equal(t, "-22.905560", row[10])
	assert.Equal(t, "-47.060830", row[11])
	assert.Equal(t, "612.35", row[12])
	assert.Equal(t, "9", row[13])
	assert.Equal(t, "8.00", row[17])
	assert.Equal(t, "OK", row[21])
	assert.Equal(t, "OK", row[22])
	assert.Equal(t, "FAIL", row[23])
}

func TestRecordAGLIsZeroOnPad(t *testing.T) {
	snap := models.Snapshot{State: models.StateIgniteReady, Phase: models.PhasePreflight}
	r := NewRecord(sampleAt(time.Now(), 600), models.DerivedSignals{}, snap)
	assert.Zero(t, r.AltitudeAGL)

	row := Format(r)
	assert.Equal(t, "LOW", row[21])
	assert.Equal(t, "FAIL", row[22])
}

func TestBurst(t *testing.T) {
	snap := models.Snapshot{
		State:          models.StateApogeeReport,
		Phase:          models.PhaseFlight,
		LaunchAltitude: 600,
		MaxAltitude:    900.4,
	}
	b := NewBurst(sampleAt(time.Now(), 899.0), models.DerivedSignals{VerticalVelocity: -3.1}, snap, "transição")
	assert.Equal(t, "LBIT-9: Apogee Report", b.StateName)
	assert.InDelta(t, 299.0, b.AltitudeAGL, 1e-9)

	text := FormatBurst(b)
	assert.Contains(t, text, "(transição)")
	assert.Contains(t, text, "900.40 m")
	assert.Contains(t, text, "-3.10 m/s")
}
