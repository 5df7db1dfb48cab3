package sequencer

import (
	"strings"
	"time"

	"rocket_go/internal/models"
)

// tick reúne as entradas de um passo do sequenciador
type tick struct {
	sample  models.FlightSample
	derived models.DerivedSignals
	now     time.Time
}

// stateDef é uma linha da tabela de estados
type stateDef struct {
	entry func(s *Sequencer, t tick)
	exit  func(s *Sequencer, t tick) bool
	next  models.SequencerState
}

func (s *Sequencer) buildTable() [models.StateCount]stateDef {
	cfg := s.cfg
	var table [models.StateCount]stateDef

	// SBIT: cada porta depende de uma flag de prontidão
	table[models.StateInitSeqIMU] = stateDef{
		exit: func(s *Sequencer, t tick) bool { return s.ctx.Readiness.SensorsOK },
		next: models.StateStartupBattery,
	}
	table[models.StateStartupBattery] = stateDef{
		exit: func(s *Sequencer, t tick) bool { return s.ctx.Readiness.BatteryOK },
		next: models.StateStartupTelemetry,
	}
	table[models.StateStartupTelemetry] = stateDef{
		exit: func(s *Sequencer, t tick) bool { return s.ctx.Readiness.SensorsOK },
		next: models.StateStartupPayload,
	}
	table[models.StateStartupPayload] = stateDef{
		entry: func(s *Sequencer, t tick) {
			log.Infof("Ligando alimentação do payload")
			s.actuator.SetPayloadPower(true)
		},
		exit: func(s *Sequencer, t tick) bool { return s.ctx.Readiness.PayloadOK },
		next: models.StatePayloadTelemetry,
	}
	table[models.StatePayloadTelemetry] = stateDef{
		exit: func(s *Sequencer, t tick) bool {
			return s.ctx.Readiness.PayloadOK && s.ctx.Readiness.SensorsOK
		},
		next: models.StateRBSafeCheck,
	}
	table[models.StateRBSafeCheck] = stateDef{
		entry: func(s *Sequencer, t tick) { s.reportReadiness() },
		exit:  func(s *Sequencer, t tick) bool { return s.ctx.Readiness.Ready() },
		next:  models.StateIgniteReady,
	}

	// LBIT
	table[models.StateIgniteReady] = stateDef{
		entry: func(s *Sequencer, t tick) {
			log.Infof("RBSAFE aprovado, aguardando ignição")
		},
		// bateria crítica no pad bloqueia o armamento
		exit: func(s *Sequencer, t tick) bool {
			return s.ctx.Readiness.BatteryOK && t.sample.Sources.IMUValid &&
				s.detector.LaunchDetected(t.derived.AccelerationMagnitude)
		},
		next: models.StateLaunch,
	}
	table[models.StateLaunch] = stateDef{
		entry: func(s *Sequencer, t tick) {
			s.ctx.LaunchAltitude = t.sample.Altitude
			s.ctx.MaxAltitude = t.sample.Altitude
			log.Infof("Lançamento detectado (%.2f G), altitude de referência %.2f m",
				t.derived.AccelerationMagnitude, t.sample.Altitude)
			s.fire(models.ChannelBooster, t)
		},
		exit: func(s *Sequencer, t tick) bool {
			return s.altitudeAGL(t) > cfg.LaunchConfirmMargin
		},
		next: models.StatePostLaunchReport,
	}
	table[models.StatePostLaunchReport] = stateDef{
		entry: func(s *Sequencer, t tick) {
			log.Infof("Subida confirmada a %.2f m AGL", s.altitudeAGL(t))
		},
		exit: func(s *Sequencer, t tick) bool {
			if s.detector.ApogeeDetected(s.altitudeAGL(t), t.derived.VerticalVelocity) {
				s.ctx.ApogeeDetected = true
				return true
			}
			return false
		},
		next: models.StateApogeeReport,
	}
	table[models.StateApogeeReport] = stateDef{
		entry: func(s *Sequencer, t tick) {
			log.Infof("Apogeu detectado: altitude máxima %.2f m (%.2f m AGL)",
				s.ctx.MaxAltitude, s.ctx.MaxAltitude-s.ctx.LaunchAltitude)
		},
		exit: func(s *Sequencer, t tick) bool { return true },
		next: models.StatePopNoseFairing,
	}

	// DBIT: um disparo na entrada e espera de acomodação avaliada a cada tick
	table[models.StatePopNoseFairing] = deployState(models.ChannelNoseFairing, cfg.FairingSettle, models.StateStageSeparation)
	table[models.StateStageSeparation] = deployState(models.ChannelStageSeparation, cfg.StageSepSettle, models.StateDeployPayload)
	table[models.StateDeployPayload] = deployState(models.ChannelPayload, cfg.PayloadSettle, models.StateFinalMode)
	table[models.StateFinalMode] = stateDef{
		entry: func(s *Sequencer, t tick) { s.waitFor(cfg.FinalModeWait, t) },
		exit:  func(s *Sequencer, t tick) bool { return s.waitElapsed(t) },
		next:  models.StateDeployParachute,
	}
	table[models.StateDeployParachute] = deployState(models.ChannelParachute, cfg.ParachuteSettle, models.StateSendAllTelemetry)
	table[models.StateSendAllTelemetry] = stateDef{
		entry: func(s *Sequencer, t tick) {
			log.Infof("Paraquedas aberto, transmitindo telemetria até o pouso")
		},
		exit: func(s *Sequencer, t tick) bool {
			if s.ctx.landedAt.IsZero() {
				if !t.sample.SensorsOK() ||
					!s.detector.LandingDetected(t.derived.VerticalVelocity, t.derived.AccelerationMagnitude) {
					return false
				}
				s.ctx.landedAt = t.now
				log.Infof("Pouso detectado, mantendo telemetria por %v", cfg.LandingHold)
			}
			return t.now.Sub(s.ctx.landedAt) >= cfg.LandingHold
		},
		next: models.StateKillAll,
	}

	// ABIT
	table[models.StateKillAll] = stateDef{
		entry: func(s *Sequencer, t tick) { s.killAll(t) },
		exit:  func(s *Sequencer, t tick) bool { return false },
		next:  models.StateKillAll,
	}

	return table
}

// deployState dispara o canal na entrada e só libera a saída após a acomodação
func deployState(ch models.Channel, settle time.Duration, next models.SequencerState) stateDef {
	return stateDef{
		entry: func(s *Sequencer, t tick) {
			s.fire(ch, t)
			s.waitFor(settle, t)
		},
		exit: func(s *Sequencer, t tick) bool { return s.waitElapsed(t) },
		next: next,
	}
}

func (s *Sequencer) waitFor(d time.Duration, t tick) {
	s.ctx.waitUntil = t.now.Add(d)
}

func (s *Sequencer) waitElapsed(t tick) bool {
	return !t.now.Before(s.ctx.waitUntil)
}

// reportReadiness registra quais flags do RBSAFE estão em falso
func (s *Sequencer) reportReadiness() {
	failed := s.ctx.Readiness.Failures()
	if len(failed) == 0 {
		log.Infof("RBSAFE: todas as verificações OK")
		return
	}
	log.Warnf("RBSAFE: falhas em %s", strings.Join(failed, ", "))
}
