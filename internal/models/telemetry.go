package models

import "time"

// TelemetryRecord é uma linha do log persistido.
// A ordem das colunas é definida por telemetry.Columns.
type TelemetryRecord struct {
	Timestamp        time.Time      `json:"timestamp"`
	State            SequencerState `json:"stateId"`
	Phase            MissionPhase   `json:"phaseId"`
	Temperature      float64        `json:"temperature"`
	Pressure         float64        `json:"pressure"`
	Altitude         float64        `json:"altitude"`
	AltitudeAGL      float64        `json:"altitudeAGL"`
	VerticalVelocity float64        `json:"verticalVelocity"`
	Latitude         float64        `json:"lat"`
	Longitude        float64        `json:"lon"`
	GPSAltitude      float64        `json:"gpsAltitude"`
	Satellites       int            `json:"satellites"`
	AccelX           float64        `json:"accelX"`
	AccelY           float64        `json:"accelY"`
	AccelZ           float64        `json:"accelZ"`
	AccelMagnitude   float64        `json:"accelMagnitude"`
	GyroX            float64        `json:"gyroX"`
	GyroY            float64        `json:"gyroY"`
	GyroZ            float64        `json:"gyroZ"`
	BatteryOK        bool           `json:"batteryOK"`
	SensorsOK        bool           `json:"sensorsOK"`
	PayloadOK        bool           `json:"payloadOK"`
}

// TelemetryBurst é o resumo crítico emitido em transições e abortos
type TelemetryBurst struct {
	Timestamp        time.Time      `json:"timestamp"`
	State            SequencerState `json:"state"`
	StateName        string         `json:"stateName"`
	Phase            MissionPhase   `json:"phase"`
	PhaseName        string         `json:"phaseName"`
	Altitude         float64        `json:"altitude"`
	AltitudeAGL      float64        `json:"altitudeAGL"`
	VerticalVelocity float64        `json:"verticalVelocity"`
	AccelMagnitude   float64        `json:"accelMagnitude"`
	MaxAltitude      float64        `json:"maxAltitude"`
	Reason           string         `json:"reason,omitempty"`
}

// HistoryPoint representa um ponto de histórico de um campo de telemetria
type HistoryPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// FlightStatus representa o status operacional do computador de voo
type FlightStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	State       string    `json:"state"`
	Phase       string    `json:"phase"`
	Abort       bool      `json:"abort"`
	AbortReason string    `json:"abortReason,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	ErrorCount  int       `json:"errorCount,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
}
