package telemetry

import (
	"strconv"

	"rocket_go/internal/models"
	"rocket_go/pkg/utils"
)

// Columns é a ordem autoritativa das colunas do log persistido
var Columns = []string{
	"timestamp",
	"state_id",
	"state_name",
	"phase_id",
	"phase_name",
	"temperature",
	"pressure",
	"altitude",
	"altitude_agl",
	"vertical_velocity",
	"lat",
	"lon",
	"gps_altitude",
	"satellites",
	"accel_x",
	"accel_y",
	"accel_z",
	"accel_magnitude",
	"gyro_x",
	"gyro_y",
	"gyro_z",
	"battery_status",
	"sensors_status",
	"payload_status",
}

// Header retorna uma cópia do cabeçalho
func Header() []string {
	return append([]string(nil), Columns...)
}

// NewRecord monta a linha do log a partir da amostra, dos sinais derivados e do snapshot.
// Antes do lançamento o veículo está no pad e a altitude AGL é zero.
func NewRecord(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) models.TelemetryRecord {
	agl := 0.0
	if snap.State >= models.StateLaunch {
		agl = sample.Altitude - snap.LaunchAltitude
	}

	return models.TelemetryRecord{
		Timestamp:        sample.Timestamp,
		State:            snap.State,
		Phase:            snap.Phase,
		Temperature:      sample.Temperature,
		Pressure:         sample.Pressure,
		Altitude:         sample.Altitude,
		AltitudeAGL:      agl,
		VerticalVelocity: derived.VerticalVelocity,
		Latitude:         sample.GPS.Latitude,
		Longitude:        sample.GPS.Longitude,
		GPSAltitude:      sample.GPS.Altitude,
		Satellites:       sample.GPS.Satellites,
		AccelX:           sample.AccelX,
		AccelY:           sample.AccelY,
		AccelZ:           sample.AccelZ,
		AccelMagnitude:   derived.AccelerationMagnitude,
		GyroX:            sample.GyroX,
		GyroY:            sample.GyroY,
		GyroZ:            sample.GyroZ,
		BatteryOK:        snap.Readiness.BatteryOK,
		SensorsOK:        snap.Readiness.SensorsOK,
		PayloadOK:        snap.Readiness.PayloadOK,
	}
}

func status(ok bool, bad string) string {
	if ok {
		return "OK"
	}
	return bad
}

// Format converte o registro em campos na ordem de Columns.
// Latitude e longitude com 6 casas, demais reais com 2.
func Format(r models.TelemetryRecord) []string {
	f2 := func(v float64) string { return utils.FormatFloat(v, 2) }

	return []string{
		utils.FormatDateTimeMs(r.Timestamp),
		strconv.Itoa(int(r.State)),
		r.State.String(),
		strconv.Itoa(int(r.Phase)),
		r.Phase.String(),
		f2(r.Temperature),
		f2(r.Pressure),
		f2(r.Altitude),
		f2(r.AltitudeAGL),
		f2(r.VerticalVelocity),
		utils.FormatFloat(r.Latitude, 6),
		utils.FormatFloat(r.Longitude, 6),
		f2(r.GPSAltitude),
		strconv.Itoa(r.Satellites),
		f2(r.AccelX),
		f2(r.AccelY),
		f2(r.AccelZ),
		f2(r.AccelMagnitude),
		f2(r.GyroX),
		f2(r.GyroY),
		f2(r.GyroZ),
		status(r.BatteryOK, "LOW"),
		status(r.SensorsOK, "FAIL"),
		status(r.PayloadOK, "FAIL"),
	}
}
