package sequencer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"rocket_go/internal/config"
	"rocket_go/internal/dynamics"
	"rocket_go/internal/models"
	"rocket_go/internal/telemetry"
	"rocket_go/pkg/logger"
)

// ErrFrozen indica que a sequência foi encerrada e não aceita mais ticks
var ErrFrozen = errors.New("sequência encerrada")

var log = logger.For("sequencer")

// Observer recebe as transições e rajadas de telemetria emitidas pelo sequenciador
type Observer interface {
	OnTransition(tr models.Transition)
	OnBurst(burst models.TelemetryBurst)
}

type nopObserver struct{}

func (nopObserver) OnTransition(models.Transition) {}
func (nopObserver) OnBurst(models.TelemetryBurst) {}

// Sequencer é a máquina de estados da missão, dirigida por ticks.
// Não é seguro para uso concorrente: um único loop chama Tick e Snapshot.
// Pedidos de aborto de outras goroutines passam pelo Monitor.
type Sequencer struct {
	cfg      config.SequencerConfig
	detector dynamics.Detector
	actuator Actuator
	monitor  *Monitor
	observer Observer

	ctx   *Context
	table [models.StateCount]stateDef
}

// New cria o sequenciador no primeiro estado de inicialização
func New(cfg config.SequencerConfig, detector dynamics.Detector, actuator Actuator, monitor *Monitor, observer Observer, now time.Time) *Sequencer {
	if observer == nil {
		observer = nopObserver{}
	}
	if monitor == nil {
		monitor = NewMonitor(actuator, cfg.LowBatteryVolts)
	}

	s := &Sequencer{
		cfg:      cfg,
		detector: detector,
		actuator: actuator,
		monitor:  monitor,
		observer: observer,
		ctx:      newContext(now),
	}
	s.table = s.buildTable()
	currentState.Set(float64(s.ctx.State))

	log.Infof("Sequenciador iniciado em %s", s.ctx.State)
	return s
}

// Snapshot retorna uma cópia do contexto atual
func (s *Sequencer) Snapshot() models.Snapshot {
	return s.ctx.snapshot()
}

// CurrentState retorna o estado atual
func (s *Sequencer) CurrentState() models.SequencerState {
	return s.ctx.State
}

// Frozen indica que a sequência terminou
func (s *Sequencer) Frozen() bool {
	return !s.ctx.SequenceActive
}

// Monitor retorna o monitor de segurança
func (s *Sequencer) Monitor() *Monitor {
	return s.monitor
}

// RequestAbort pede aborto; tem efeito no próximo tick
func (s *Sequencer) RequestAbort() {
	s.monitor.RequestAbort()
}

// Tick executa um passo: prontidão, monitor de aborto e despacho da tabela.
// O instante do tick é o carimbo da amostra.
func (s *Sequencer) Tick(sample models.FlightSample, derived models.DerivedSignals) error {
	if !s.ctx.SequenceActive {
		return ErrFrozen
	}

	t := tick{sample: sample, derived: derived, now: sample.Timestamp}
	s.updateReadiness(sample)
	s.trackAltitude(t)

	if s.ctx.safePending {
		s.finishKillAll(t)
		return nil
	}

	// caminho de aborto: a partir do tick seguinte ao gatilho
	if s.ctx.Abort {
		s.transition(models.StateKillAll, t)
		return nil
	}

	if reason := s.monitor.Check(s.ctx.Phase, sample); reason != models.AbortNone {
		s.triggerAbort(reason, t)
		return nil
	}

	s.dispatch(t)
	return nil
}

func (s *Sequencer) dispatch(t tick) {
	def := s.table[s.ctx.State]
	if def.exit != nil && def.exit(s, t) {
		s.transition(def.next, t)
		return
	}
	s.checkTimeout(t)
}

// checkTimeout aplica a política de timeout: na inicialização, nova tentativa
// e aborto após exceder o limite; nos demais estados, apenas um aviso por entrada
func (s *Sequencer) checkTimeout(t tick) {
	state := s.ctx.State
	if state == models.StateKillAll || state == models.StateIgniteReady {
		return
	}

	if state.Band() != models.BandStartup {
		if !s.ctx.timeoutWarned && t.now.Sub(s.ctx.StateEntryTime) > s.cfg.StateTimeout {
			s.ctx.timeoutWarned = true
			stateTimeoutsTotal.WithLabelValues(state.Band().String()).Inc()
			log.Warnf("%s excedeu %v, sequência segue por tempo", state, s.cfg.StateTimeout)
		}
		return
	}

	if t.now.Sub(s.ctx.windowStart) <= s.cfg.StateTimeout {
		return
	}

	s.ctx.RetryCount++
	s.ctx.windowStart = t.now
	stateTimeoutsTotal.WithLabelValues(state.Band().String()).Inc()
	log.Warnf("Timeout em %s (tentativa %d de %d), falhas: %v",
		state, s.ctx.RetryCount, s.cfg.MaxRetries, s.ctx.Readiness.Failures())

	if s.ctx.RetryCount > s.cfg.MaxRetries {
		s.triggerAbort(models.AbortStartupTimeout, t)
		s.transition(models.StateKillAll, t)
	}
}

// transition troca de estado, zera tentativas e executa a entrada do novo estado
func (s *Sequencer) transition(to models.SequencerState, t tick) {
	from := s.ctx.State
	fromPhase := s.ctx.Phase

	s.ctx.State = to
	s.ctx.StateEntryTime = t.now
	s.ctx.RetryCount = 0
	s.ctx.windowStart = t.now
	s.ctx.timeoutWarned = false
	s.ctx.waitUntil = time.Time{}
	s.ctx.Phase = to.Phase()

	log.Infof("%s -> %s", from, to)
	if s.ctx.Phase != fromPhase {
		log.Infof("Fase: %s -> %s", fromPhase, s.ctx.Phase)
	}

	transitionsTotal.WithLabelValues(strconv.Itoa(int(from)), strconv.Itoa(int(to))).Inc()
	currentState.Set(float64(to))

	s.observer.OnTransition(models.Transition{
		From:      from,
		To:        to,
		FromName:  from.String(),
		ToName:    to.String(),
		Phase:     s.ctx.Phase,
		PhaseName: s.ctx.Phase.String(),
		Timestamp: t.now,
		Abort:     s.ctx.Abort,
	})

	if entry := s.table[to].entry; entry != nil {
		entry(s, t)
	}

	reason := "transição"
	if s.ctx.Abort {
		reason = "aborto: " + string(s.ctx.AbortReason)
	}
	s.burst(reason, t)

	if to == models.StateKillAll && !s.ctx.safePending {
		s.freeze()
	}
}

func (s *Sequencer) freeze() {
	s.ctx.SequenceActive = false
	log.Infof("Sequência encerrada em %s", s.ctx.State)
}

// triggerAbort marca o aborto; o caminho de aborto roda no tick seguinte.
// Bateria crítica em LAUNCH ou FLIGHT abre o paraquedas imediatamente.
func (s *Sequencer) triggerAbort(reason models.AbortReason, t tick) {
	if s.ctx.Abort {
		return
	}
	s.ctx.Abort = true
	s.ctx.AbortReason = reason
	s.ctx.abortPhase = s.ctx.Phase
	abortsTotal.WithLabelValues(string(reason)).Inc()
	log.Warnf("ABORTO em %s (%s): %s", s.ctx.State, s.ctx.Phase, reason)

	if reason == models.AbortCriticalBattery &&
		(s.ctx.Phase == models.PhaseLaunch || s.ctx.Phase == models.PhaseFlight) {
		log.Warnf("Bateria crítica (%.2f V) em voo, abrindo paraquedas", t.sample.BatteryVolts)
		s.fire(models.ChannelParachute, t)
	}

	s.burst("aborto: "+string(reason), t)
}

// killAll é a entrada do estado terminal: recuperação por paraquedas se o
// veículo estava em voo quando abortou, depois todos os canais em nível seguro.
// Um pulso em curso não é interrompido: o desarme espera o fim dele.
func (s *Sequencer) killAll(t tick) {
	if s.ctx.Abort && s.ctx.abortPhase.Airborne() && !s.ctx.fired[models.ChannelParachute] {
		log.Warnf("Aborto em voo (%s), abrindo paraquedas", s.ctx.abortPhase)
		s.fire(models.ChannelParachute, t)
	}

	if t.now.Before(s.ctx.pulseEnd) {
		s.ctx.safePending = true
		log.Infof("Aguardando fim do pulso em curso (%v) para desarmar", s.ctx.pulseEnd.Sub(t.now))
		return
	}
	s.safeAll()
}

// finishKillAll desarma e encerra a sequência assim que o último pulso termina
func (s *Sequencer) finishKillAll(t tick) {
	if t.now.Before(s.ctx.pulseEnd) {
		return
	}
	s.ctx.safePending = false
	s.safeAll()
	s.freeze()
}

func (s *Sequencer) safeAll() {
	s.actuator.SafeAll()
	log.Infof("Todos os canais em nível seguro")
}

// fire dispara o canal no máximo uma vez por sessão; falha não é repetida
func (s *Sequencer) fire(ch models.Channel, t tick) bool {
	if s.ctx.fired[ch] {
		log.Warnf("Canal %s já disparado, ignorando", ch)
		return false
	}
	s.ctx.fired[ch] = true

	if s.actuator.Fire(ch) {
		if end := t.now.Add(s.actuator.PulseWidth()); end.After(s.ctx.pulseEnd) {
			s.ctx.pulseEnd = end
		}
		actuationsTotal.WithLabelValues(ch.String(), "ok").Inc()
		log.Infof("Canal %s disparado", ch)
		return true
	}

	actuationsTotal.WithLabelValues(ch.String(), "falha").Inc()
	log.Error(fmt.Sprintf("Falha ao disparar canal %s em %s", ch, s.ctx.State),
		errors.New("sem nova tentativa automática"))
	return false
}

func (s *Sequencer) burst(reason string, t tick) {
	b := telemetry.NewBurst(t.sample, t.derived, s.ctx.snapshot(), reason)
	log.Infof("%s", telemetry.FormatBurst(b))
	s.observer.OnBurst(b)
}

func (s *Sequencer) updateReadiness(sample models.FlightSample) {
	power := sample.Sources.BatteryValid
	s.ctx.Readiness = models.Readiness{
		BatteryOK: power && sample.BatteryVolts > s.cfg.LowBatteryVolts,
		SensorsOK: sample.SensorsOK(),
		PayloadOK: power && sample.PayloadVolts > s.cfg.LowPayloadVolts,
		GPSLock:   sample.Sources.GPSValid,
	}
}

// trackAltitude mantém o pico de altitude durante a subida
func (s *Sequencer) trackAltitude(t tick) {
	if s.ctx.State < models.StateLaunch || s.ctx.State > models.StateApogeeReport {
		return
	}
	if t.sample.Sources.BaroValid && t.sample.Altitude > s.ctx.MaxAltitude {
		s.ctx.MaxAltitude = t.sample.Altitude
	}
}

func (s *Sequencer) altitudeAGL(t tick) float64 {
	return t.sample.Altitude - s.ctx.LaunchAltitude
}
