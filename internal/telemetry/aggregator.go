package telemetry

import (
	"context"
	"time"

	"rocket_go/internal/dynamics"
	"rocket_go/internal/models"
	"rocket_go/internal/sensors"
	"rocket_go/pkg/logger"
)

var log = logger.For("telemetry")

// Aggregator monta a FlightSample de cada tick a partir das fontes.
// Cada leitura tem prazo próprio; uma fonte que falha ou expira marca
// a flag de validade e nunca bloqueia o loop.
type Aggregator struct {
	suite       sensors.Suite
	readTimeout time.Duration

	lastBaro  models.BaroReading
	lastGPS   models.GPSFix
	lastPower models.PowerReading

	// última validade por fonte, para registrar apenas mudanças
	valid models.SourceStatus
	seen  bool
}

// NewAggregator cria o agregador sobre o conjunto de sensores
func NewAggregator(suite sensors.Suite, readTimeout time.Duration) *Aggregator {
	if readTimeout <= 0 {
		readTimeout = 50 * time.Millisecond
	}
	return &Aggregator{suite: suite, readTimeout: readTimeout}
}

// Collect lê todas as fontes e retorna a amostra do tick com carimbo now.
// Barômetro inválido mantém a última altitude boa; GPS e energia inválidos
// mantêm os últimos valores com a flag correspondente em falso.
func (a *Aggregator) Collect(ctx context.Context, now time.Time) models.FlightSample {
	sample := models.FlightSample{Timestamp: now}
	var status models.SourceStatus

	rctx, cancel := context.WithTimeout(ctx, a.readTimeout)
	baro, err := a.suite.ReadBaro(rctx)
	cancel()
	if err == nil {
		a.lastBaro = baro
		status.BaroValid = true
	} else {
		a.report("barômetro", a.valid.BaroValid, err)
	}
	sample.Temperature = a.lastBaro.Temperature
	sample.Pressure = a.lastBaro.Pressure
	sample.Altitude = a.lastBaro.Altitude

	rctx, cancel = context.WithTimeout(ctx, a.readTimeout)
	imu, err := a.suite.ReadIMU(rctx)
	cancel()
	if err == nil {
		status.IMUValid = true
		sample.AccelX, sample.AccelY, sample.AccelZ = imu.AccelX, imu.AccelY, imu.AccelZ
		sample.GyroX, sample.GyroY, sample.GyroZ = imu.GyroX, imu.GyroY, imu.GyroZ
		sample.AccelMagnitude = dynamics.AccelerationMagnitude(sample)
	} else {
		a.report("IMU", a.valid.IMUValid, err)
	}

	rctx, cancel = context.WithTimeout(ctx, a.readTimeout)
	fix, err := a.suite.ReadGPS(rctx)
	cancel()
	if err == nil {
		a.lastGPS = fix
		status.GPSValid = fix.Valid
	} else {
		a.report("GPS", a.valid.GPSValid, err)
	}
	sample.GPS = a.lastGPS
	sample.GPS.Valid = status.GPSValid

	rctx, cancel = context.WithTimeout(ctx, a.readTimeout)
	power, err := a.suite.ReadPower(rctx)
	cancel()
	if err == nil {
		a.lastPower = power
		status.BatteryValid = true
	} else {
		a.report("monitor de energia", a.valid.BatteryValid, err)
	}
	sample.BatteryVolts = a.lastPower.BatteryVolts
	sample.PayloadVolts = a.lastPower.PayloadVolts

	a.logRestored(status)
	sample.Sources = status
	a.valid = status
	a.seen = true
	return sample
}

// report registra a falha apenas na transição válido -> inválido
func (a *Aggregator) report(source string, wasValid bool, err error) {
	if wasValid || !a.seen {
		log.Warnf("Fonte %s inválida: %v", source, err)
	}
}

func (a *Aggregator) logRestored(now models.SourceStatus) {
	if !a.seen {
		return
	}
	if now.BaroValid && !a.valid.BaroValid {
		log.Infof("Barômetro restaurado")
	}
	if now.IMUValid && !a.valid.IMUValid {
		log.Infof("IMU restaurada")
	}
	if now.GPSValid && !a.valid.GPSValid {
		log.Infof("GPS com fix (%d satélites)", a.lastGPS.Satellites)
	}
	if now.BatteryValid && !a.valid.BatteryValid {
		log.Infof("Monitor de energia restaurado")
	}
}
