package sequencer

import (
	"sync/atomic"

	"rocket_go/internal/models"
)

// Monitor avalia os gatilhos de aborto antes do despacho de cada tick.
// RequestAbort pode ser chamado de qualquer goroutine (websocket, API).
type Monitor struct {
	actuator        Actuator
	lowBatteryVolts float64
	requested       atomic.Bool
}

// NewMonitor cria o monitor de segurança
func NewMonitor(actuator Actuator, lowBatteryVolts float64) *Monitor {
	return &Monitor{actuator: actuator, lowBatteryVolts: lowBatteryVolts}
}

// RequestAbort registra um pedido externo de aborto
func (m *Monitor) RequestAbort() {
	m.requested.Store(true)
}

// AbortRequested indica se há pedido externo pendente
func (m *Monitor) AbortRequested() bool {
	return m.requested.Load()
}

// CriticalBattery indica bateria de voo válida e no limite ou abaixo dele
func (m *Monitor) CriticalBattery(sample models.FlightSample) bool {
	return sample.Sources.BatteryValid && sample.BatteryVolts <= m.lowBatteryVolts
}

// Check retorna o motivo do aborto ou AbortNone.
// Aborto externo sempre vence; bateria crítica só aborta a partir de LAUNCH.
func (m *Monitor) Check(phase models.MissionPhase, sample models.FlightSample) models.AbortReason {
	if m.requested.Load() || (m.actuator != nil && m.actuator.ReadAbortSwitch()) {
		return models.AbortExternal
	}
	if phase >= models.PhaseLaunch && m.CriticalBattery(sample) {
		return models.AbortCriticalBattery
	}
	return models.AbortNone
}
