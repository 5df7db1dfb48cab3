package flight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
	"rocket_go/internal/sensors"
	"rocket_go/internal/sequencer"
	"rocket_go/internal/telemetry"
)

// Summary resume uma execução simulada sem servidor
type Summary struct {
	SessionID   string
	Ticks       int
	Elapsed     time.Duration
	FinalState  models.SequencerState
	MaxAltitude float64
	ApogeeAGL   float64
	Abort       bool
	AbortReason models.AbortReason
	Fired       []models.Channel
	Transitions []models.Transition
}

// SimulationOption ajusta a execução simulada antes do primeiro tick
type SimulationOption func(sim *sensors.Simulator, act *sequencer.SimActuator)

// RunSimulation executa o perfil de voo simulado em relógio virtual até o encerramento da
// sequência ou até maxDuration de tempo de missão. Não depende de rede nem de tempo real.
func RunSimulation(ctx context.Context, cfg *config.Config, maxDuration time.Duration, sinks []telemetry.Sink, opts ...SimulationOption) (*Summary, error) {
	clock := sensors.NewVirtualClock(time.Now())
	sim := sensors.NewSimulator(cfg.Sensors.Simulation, clock)
	act := sequencer.NewSimActuator(clock, cfg.Actuation.PulseWidth)
	act.OnPayloadPower(sim.SetPayloadPower)

	for _, opt := range opts {
		opt(sim, act)
	}

	svc, err := NewService(cfg, Deps{
		Clock:    clock,
		Suite:    sim,
		Actuator: act,
		Sinks:    sinks,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Simulação iniciada: apogeu alvo %.1f m, tick %v", cfg.Sensors.Simulation.TargetApogee, cfg.Sequencer.TickPeriod)

	start := clock.Now()
	summary := &Summary{SessionID: svc.SessionID(), ApogeeAGL: sim.ApogeeAGL()}

	for clock.Now().Sub(start) < maxDuration {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := svc.Step(ctx)
		if errors.Is(err, sequencer.ErrFrozen) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("erro no tick %d: %w", summary.Ticks, err)
		}
		summary.Ticks++
		clock.Advance(cfg.Sequencer.TickPeriod)
	}

	snap := svc.Snapshot()
	summary.Elapsed = clock.Now().Sub(start)
	summary.FinalState = snap.State
	summary.MaxAltitude = snap.MaxAltitude
	summary.Abort = snap.Abort
	summary.AbortReason = snap.AbortReason
	summary.Fired = snap.Fired

	transitions := svc.Transitions(0)
	for i := len(transitions) - 1; i >= 0; i-- {
		summary.Transitions = append(summary.Transitions, transitions[i])
	}

	if snap.SequenceActive {
		return summary, fmt.Errorf("simulação interrompida em %s após %v sem encerrar a sequência", snap.StateName, summary.Elapsed)
	}

	log.Infof("Simulação concluída em %v (%d ticks): estado final %s, altitude máxima %.1f m",
		summary.Elapsed, summary.Ticks, snap.StateName, snap.MaxAltitude)
	return summary, nil
}

// WithFault injeta uma falha de sensor desde o início
func WithFault(c sensors.Capability) SimulationOption {
	return func(sim *sensors.Simulator, _ *sequencer.SimActuator) {
		sim.InjectFault(c, nil)
	}
}

// WithBatteryVolts ajusta a tensão da bateria de voo simulada
func WithBatteryVolts(v float64) SimulationOption {
	return func(sim *sensors.Simulator, _ *sequencer.SimActuator) {
		sim.SetBatteryVolts(v)
	}
}
