package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
)

func disabledService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default().Redis
	cfg.Enabled = false
	s, err := NewService(cfg)
	require.NoError(t, err)
	return s
}

func TestDisabledServiceIsOffline(t *testing.T) {
	s := disabledService(t)
	assert.False(t, s.IsConnected())

	// escritas são ignoradas em modo offline
	assert.NoError(t, s.WriteSample(models.FlightSample{}, models.DerivedSignals{}, models.Snapshot{}))
	assert.NoError(t, s.WriteTransition(models.Transition{}))
	assert.NoError(t, s.WriteStatus(models.FlightStatus{}))
	assert.NoError(t, s.WriteBurst(models.TelemetryBurst{}))

	// como sink, o stream reporta a falha para ser contabilizada
	assert.Error(t, s.Append(models.TelemetryRecord{}))
	assert.Equal(t, "redis", s.Name())

	_, err := s.GetStatus()
	assert.Error(t, err)
	_, err = s.GetTransitions(10)
	assert.Error(t, err)

	s.Shutdown()
}

func TestGetHistoryRejectsUnknownField(t *testing.T) {
	s := disabledService(t)
	_, err := s.GetHistory("pos1")
	assert.ErrorContains(t, err, "campo de histórico inválido")
}

func TestFormatKey(t *testing.T) {
	c := NewClient(config.RedisConfig{Prefix: "rocket_fc"})
	assert.Equal(t, "rocket_fc:history:altitude", c.FormatKey("history:altitude"))
	assert.NoError(t, c.Close())
}

func TestParseHistoryMember(t *testing.T) {
	ts := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	ms := float64(ts.UnixNano() / int64(time.Millisecond))

	p, err := parseHistoryMember("1743508800000:301.25", ms)
	require.NoError(t, err)
	assert.Equal(t, 301.25, p.Value)
	assert.True(t, p.Timestamp.Equal(ts))

	p, err = parseHistoryMember("1743508800000:-10", ms)
	require.NoError(t, err)
	assert.Equal(t, -10.0, p.Value)

	_, err = parseHistoryMember("sem-separador", ms)
	assert.Error(t, err)
	_, err = parseHistoryMember("1:abc", ms)
	assert.Error(t, err)
}

func TestHistoryFieldsExtractors(t *testing.T) {
	sample := models.FlightSample{Altitude: 250, BatteryVolts: 3.9, Temperature: 18}
	derived := models.DerivedSignals{VerticalVelocity: -4, AccelerationMagnitude: 1.1}

	assert.Equal(t, 250.0, HistoryFields["altitude"](sample, derived))
	assert.Equal(t, -4.0, HistoryFields["vertical_velocity"](sample, derived))
	assert.Equal(t, 1.1, HistoryFields["accel_magnitude"](sample, derived))
	assert.Equal(t, 3.9, HistoryFields["battery_volts"](sample, derived))
}
