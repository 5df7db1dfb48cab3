package flight

import (
	"fmt"

	"rocket_go/internal/config"
	"rocket_go/internal/plc"
	"rocket_go/internal/sensors"
	"rocket_go/internal/sequencer"
)

// Hardware reúne os colaboradores escolhidos pela configuração
type Hardware struct {
	Suite     sensors.Suite
	Actuator  sequencer.Actuator
	Simulator *sensors.Simulator
	HIL       *sensors.Client
	PLC       *plc.S7Client
}

// NewHardware monta sensores e atuador conforme os modos configurados.
// No modo simulado com atuador simulado, a alimentação do payload é ligada ao simulador.
func NewHardware(cfg *config.Config, clock sensors.Clock) (*Hardware, error) {
	hw := &Hardware{}

	switch cfg.Sensors.Mode {
	case config.SensorModeSim:
		hw.Simulator = sensors.NewSimulator(cfg.Sensors.Simulation, clock)
		hw.Suite = hw.Simulator
	case config.SensorModeHIL:
		hw.HIL = sensors.NewClient(cfg.Sensors.Host, cfg.Sensors.Port, cfg.Sensors.ReadTimeout)
		hw.Suite = hw.HIL
	default:
		return nil, fmt.Errorf("modo de sensores desconhecido: %s", cfg.Sensors.Mode)
	}

	if cfg.PLC.Enabled {
		hw.PLC = plc.NewS7Client(cfg.PLC)
	}

	switch cfg.Actuation.Mode {
	case config.ActuationModeSim:
		sim := sequencer.NewSimActuator(clock, cfg.Actuation.PulseWidth)
		if hw.Simulator != nil {
			sim.OnPayloadPower(hw.Simulator.SetPayloadPower)
		}
		hw.Actuator = sim
	case config.ActuationModePLC:
		if hw.PLC == nil {
			return nil, fmt.Errorf("atuação via PLC exige plc.enabled")
		}
		hw.Actuator = plc.NewActuator(hw.PLC, cfg.PLC.DBNumber, cfg.Actuation.PulseWidth)
	default:
		return nil, fmt.Errorf("modo de atuação desconhecido: %s", cfg.Actuation.Mode)
	}

	return hw, nil
}

// Close libera as conexões de hardware
func (h *Hardware) Close() {
	if h.HIL != nil {
		h.HIL.Close()
	}
	if h.PLC != nil {
		h.PLC.Disconnect()
	}
}
