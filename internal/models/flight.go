package models

import "time"

// BaroReading representa uma leitura do barômetro
type BaroReading struct {
	Temperature float64 `json:"temperature"` // °C
	Pressure    float64 `json:"pressure"`    // hPa
	Altitude    float64 `json:"altitude"`    // metros (barométrica)
}

// IMUReading representa uma leitura da IMU (aceleração em G, rotação em °/s)
type IMUReading struct {
	AccelX float64 `json:"accelX"`
	AccelY float64 `json:"accelY"`
	AccelZ float64 `json:"accelZ"`
	GyroX  float64 `json:"gyroX"`
	GyroY  float64 `json:"gyroY"`
	GyroZ  float64 `json:"gyroZ"`
}

// GPSFix representa a última posição do GPS
type GPSFix struct {
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Altitude   float64 `json:"alt"`
	Satellites int     `json:"satellites"`
	Valid      bool    `json:"valid"`
}

// PowerReading representa as tensões das baterias de voo e de payload
type PowerReading struct {
	BatteryVolts float64 `json:"batteryVolts"`
	PayloadVolts float64 `json:"payloadVolts"`
}

// SourceStatus guarda a validade de cada fonte de dados no tick
type SourceStatus struct {
	BaroValid    bool `json:"baro"`
	IMUValid     bool `json:"imu"`
	GPSValid     bool `json:"gps"`
	BatteryValid bool `json:"battery"`
}

// FlightSample é o retrato imutável de um tick.
// Produzido a cada tick pelo agregador e copiado (nunca compartilhado por ponteiro).
type FlightSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
	Altitude    float64   `json:"altitude"` // fonte autoritativa: barômetro

	AccelX         float64 `json:"accelX"`
	AccelY         float64 `json:"accelY"`
	AccelZ         float64 `json:"accelZ"`
	AccelMagnitude float64 `json:"accelMagnitude"`

	GyroX float64 `json:"gyroX"`
	GyroY float64 `json:"gyroY"`
	GyroZ float64 `json:"gyroZ"`

	GPS GPSFix `json:"gps"`

	BatteryVolts float64 `json:"batteryVolts"`
	PayloadVolts float64 `json:"payloadVolts"`

	Sources SourceStatus `json:"sources"`
}

// SensorsOK indica se as fontes críticas (barômetro e IMU) estão válidas
func (s FlightSample) SensorsOK() bool {
	return s.Sources.BaroValid && s.Sources.IMUValid
}

// DerivedSignals são os sinais calculados pelo estimador a partir das amostras
type DerivedSignals struct {
	VerticalVelocity      float64   `json:"verticalVelocity"`
	AccelerationMagnitude float64   `json:"accelerationMagnitude"`
	VelocityUpdatedAt     time.Time `json:"velocityUpdatedAt"`
}
