package telemetry

import (
	"strings"

	"rocket_go/internal/models"
	"rocket_go/pkg/utils"
)

// NewBurst monta a rajada de telemetria crítica do tick atual
func NewBurst(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot, reason string) models.TelemetryBurst {
	record := NewRecord(sample, derived, snap)
	return models.TelemetryBurst{
		Timestamp:        sample.Timestamp,
		State:            snap.State,
		StateName:        snap.State.String(),
		Phase:            snap.Phase,
		PhaseName:        snap.Phase.String(),
		Altitude:         sample.Altitude,
		AltitudeAGL:      record.AltitudeAGL,
		VerticalVelocity: derived.VerticalVelocity,
		AccelMagnitude:   derived.AccelerationMagnitude,
		MaxAltitude:      snap.MaxAltitude,
		Reason:           reason,
	}
}

// FormatBurst devolve a rajada como bloco de várias linhas para o log
func FormatBurst(b models.TelemetryBurst) string {
	var sb strings.Builder
	sb.WriteString("=== TELEMETRIA CRÍTICA")
	if b.Reason != "" {
		sb.WriteString(" (" + b.Reason + ")")
	}
	sb.WriteString(" ===\n")
	sb.WriteString("  Estado:      " + b.StateName + "\n")
	sb.WriteString("  Fase:        " + b.PhaseName + "\n")
	sb.WriteString("  Altitude:    " + utils.FormatFloat(b.Altitude, 2) + " m\n")
	sb.WriteString("  AGL:         " + utils.FormatFloat(b.AltitudeAGL, 2) + " m\n")
	sb.WriteString("  Alt. máx.:   " + utils.FormatFloat(b.MaxAltitude, 2) + " m\n")
	sb.WriteString("  Velocidade:  " + utils.FormatFloat(b.VerticalVelocity, 2) + " m/s\n")
	sb.WriteString("  Aceleração:  " + utils.FormatFloat(b.AccelMagnitude, 2) + " G")
	return sb.String()
}
