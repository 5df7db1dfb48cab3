// Package flight contém o loop único do computador de voo:
// tick, agregação, estimativa, monitor, sequenciador e emissão.
package flight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"rocket_go/internal/config"
	"rocket_go/internal/dynamics"
	"rocket_go/internal/models"
	"rocket_go/internal/plc"
	"rocket_go/internal/sensors"
	"rocket_go/internal/sequencer"
	"rocket_go/internal/telemetry"
	"rocket_go/pkg/logger"
)

var log = logger.For("flight")

const (
	maxTransitionLog = 200
	outboxSize       = 256
	statsWindow      = 100
)

// LiveFeed recebe a telemetria ao vivo (hub WebSocket)
type LiveFeed interface {
	BroadcastSample(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot)
	BroadcastBurst(b models.TelemetryBurst)
	BroadcastTransition(tr models.Transition)
	BroadcastStatus(snap models.Snapshot)
}

// Store persiste amostras, transições e status (Redis)
type Store interface {
	WriteSample(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) error
	WriteTransition(tr models.Transition) error
	WriteBurst(b models.TelemetryBurst) error
	WriteStatus(status models.FlightStatus) error
}

// Downlink envia rajadas e transições para a estação em solo (MQTT)
type Downlink interface {
	PublishBurst(b models.TelemetryBurst) error
	PublishTransition(tr models.Transition) error
}

// Mirror espelha o estado da missão em um equipamento externo (PLC)
type Mirror interface {
	Update(frame plc.MirrorFrame)
}

// Deps são os colaboradores do serviço; apenas Suite e Actuator são obrigatórios.
// Sinks são gravados no próprio tick; RemoteSinks (rede) passam pela fila de saída.
type Deps struct {
	Clock       sensors.Clock
	Suite       sensors.Suite
	Actuator    sequencer.Actuator
	Sinks       []telemetry.Sink
	RemoteSinks []telemetry.Sink
	Feed        LiveFeed
	Store       Store
	Downlink    Downlink
	Mirror      Mirror
	SessionID   string
}

// Service dirige o sequenciador a partir de um único loop
type Service struct {
	cfg  *config.Config
	deps Deps

	aggregator *telemetry.Aggregator
	estimator  *dynamics.Estimator
	seq        *sequencer.Sequencer
	sinks      *telemetry.MultiSink
	remote     *telemetry.MultiSink

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	flushed chan struct{}
	running bool
	outbox  chan func()

	// publicado a cada tick para leitores concorrentes (API, hub)
	mutex       sync.RWMutex
	snapshot    models.Snapshot
	lastSample  *models.FlightSample
	lastDerived models.DerivedSignals
	transitions []models.Transition
	lastBurst   *models.TelemetryBurst
	status      models.FlightStatus

	stats struct {
		totalTicks      int64
		tickDurations   []time.Duration
		sinkFailures    int64
		lastSinkErr     string
		avgTickDuration time.Duration
	}
	statsLock sync.Mutex
}

// ThresholdsFrom converte a configuração de dinâmica nos limiares do detector
func ThresholdsFrom(cfg config.DynamicsConfig) dynamics.Thresholds {
	return dynamics.Thresholds{
		LaunchAccelG:      cfg.LaunchAccelG,
		MinFlightAltitude: cfg.MinFlightAltitude,
		ApogeeVelocity:    cfg.ApogeeVelocity,
		LandingVelocity:   cfg.LandingVelocity,
		LandingAccelG:     cfg.LandingAccelG,
	}
}

// NewService cria o serviço de voo e o sequenciador no primeiro estado
func NewService(cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Suite == nil || deps.Actuator == nil {
		return nil, errors.New("serviço de voo exige sensores e atuador")
	}
	if deps.Clock == nil {
		deps.Clock = sensors.SystemClock{}
	}
	if deps.SessionID == "" {
		deps.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:        cfg,
		deps:       deps,
		aggregator: telemetry.NewAggregator(deps.Suite, cfg.Sensors.ReadTimeout),
		estimator:  dynamics.NewEstimator(cfg.Dynamics.VelocityWindow),
		sinks:      telemetry.NewMultiSink(deps.Sinks...),
		remote:     telemetry.NewMultiSink(deps.RemoteSinks...),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		flushed:    make(chan struct{}),
		outbox:     make(chan func(), outboxSize),
	}

	detector := dynamics.NewDetector(ThresholdsFrom(cfg.Dynamics))
	monitor := sequencer.NewMonitor(deps.Actuator, cfg.Sequencer.LowBatteryVolts)
	s.seq = sequencer.New(cfg.Sequencer, detector, deps.Actuator, monitor, s, deps.Clock.Now())
	s.snapshot = s.seq.Snapshot()
	s.status = models.FlightStatus{
		Status:    "inicializando",
		Timestamp: deps.Clock.Now(),
		State:     s.snapshot.StateName,
		Phase:     s.snapshot.PhaseName,
		SessionID: deps.SessionID,
	}
	s.stats.tickDurations = make([]time.Duration, 0, statsWindow)

	return s, nil
}

// SessionID identifica esta execução nos registros e no downlink
func (s *Service) SessionID() string {
	return s.deps.SessionID
}

// Start inicia o loop de voo e a fila de saída
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	log.Infof("Iniciando computador de voo (sessão %s, tick %v, sensores %s, atuação %s)",
		s.deps.SessionID, s.cfg.Sequencer.TickPeriod, s.cfg.Sensors.Mode, s.cfg.Actuation.Mode)

	go s.runOutbox()
	go s.runLoop()
	go s.monitorStats()

	s.running = true
	s.setStatusLocked("ok", "")
	return nil
}

// Stop para o loop de voo e a fila de saída; ao retornar nenhuma publicação
// está em andamento e os destinos de rede podem ser fechados
func (s *Service) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.running = false
	s.mutex.Unlock()

	log.Infof("Parando computador de voo")
	s.cancel()
	<-s.done
	<-s.flushed
}

// Done é fechado quando o loop de voo termina
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// IsRunning verifica se o loop está ativo
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

func (s *Service) runLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Sequencer.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Step(s.ctx); err != nil {
				if errors.Is(err, sequencer.ErrFrozen) {
					log.Infof("Sequência encerrada; loop de voo finalizado")
					s.mutex.Lock()
					s.setStatusLocked("encerrado", "")
					s.mutex.Unlock()
				}
				return
			}
		}
	}
}

// Step executa um tick completo. Retorna sequencer.ErrFrozen depois do encerramento.
func (s *Service) Step(ctx context.Context) error {
	start := time.Now()
	now := s.deps.Clock.Now()

	sample := s.aggregator.Collect(ctx, now)
	derived := s.estimator.Update(sample)

	if err := s.seq.Tick(sample, derived); err != nil {
		return err
	}
	snap := s.seq.Snapshot()

	record := telemetry.NewRecord(sample, derived, snap)
	s.recordSinkError(s.sinks.Append(record))
	if s.remote.Len() > 0 {
		s.enqueue(func() {
			s.recordSinkError(s.remote.Append(record))
		})
	}
	s.publish(sample, derived, snap)

	elapsed := time.Since(start)
	s.recordTick(elapsed)
	return nil
}

// recordSinkError contabiliza falhas de gravação por destino; nunca para o loop
func (s *Service) recordSinkError(err error) {
	if err == nil {
		return
	}

	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var se *telemetry.SinkError
		name := "desconhecido"
		if errors.As(e, &se) {
			name = se.Sink
		}
		sinkFailures.WithLabelValues(name).Inc()
	}

	s.statsLock.Lock()
	s.stats.sinkFailures++
	first := s.stats.lastSinkErr != err.Error()
	s.stats.lastSinkErr = err.Error()
	s.statsLock.Unlock()

	if first {
		log.Warnf("Falha ao registrar telemetria: %v", err)
	}
}

// publish atualiza o snapshot publicado e distribui a amostra
func (s *Service) publish(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) {
	s.mutex.Lock()
	s.snapshot = snap
	s.lastSample = &sample
	s.lastDerived = derived
	s.mutex.Unlock()

	if s.deps.Feed != nil {
		s.deps.Feed.BroadcastSample(sample, derived, snap)
	}
	if s.deps.Mirror != nil {
		s.deps.Mirror.Update(plc.MirrorFrame{Snapshot: snap, Sample: sample, Derived: derived})
	}
	if store := s.deps.Store; store != nil {
		s.enqueue(func() {
			if err := store.WriteSample(sample, derived, snap); err != nil {
				log.Debugf("Erro ao escrever amostra no Redis: %v", err)
			}
		})
	}
}

// OnTransition implementa sequencer.Observer
func (s *Service) OnTransition(tr models.Transition) {
	s.mutex.Lock()
	s.transitions = append(s.transitions, tr)
	if len(s.transitions) > maxTransitionLog {
		s.transitions = s.transitions[len(s.transitions)-maxTransitionLog:]
	}
	s.status.State = tr.ToName
	s.status.Phase = tr.PhaseName
	if tr.Abort {
		s.setStatusLocked("abortado", "")
	}
	s.mutex.Unlock()

	if s.deps.Feed != nil {
		s.deps.Feed.BroadcastTransition(tr)
	}
	if store := s.deps.Store; store != nil {
		s.enqueue(func() {
			if err := store.WriteTransition(tr); err != nil {
				log.Warnf("Erro ao registrar transição no Redis: %v", err)
			}
		})
	}
	if dl := s.deps.Downlink; dl != nil {
		s.enqueue(func() {
			if err := dl.PublishTransition(tr); err != nil {
				log.Debugf("Transição não enviada pelo downlink: %v", err)
			}
		})
	}
}

// OnBurst implementa sequencer.Observer (o log da rajada fica no sequenciador)
func (s *Service) OnBurst(b models.TelemetryBurst) {
	s.mutex.Lock()
	s.lastBurst = &b
	s.mutex.Unlock()

	if s.deps.Feed != nil {
		s.deps.Feed.BroadcastBurst(b)
	}
	if store := s.deps.Store; store != nil {
		s.enqueue(func() {
			if err := store.WriteBurst(b); err != nil {
				log.Debugf("Erro ao gravar rajada no Redis: %v", err)
			}
		})
	}
	if dl := s.deps.Downlink; dl != nil {
		s.enqueue(func() {
			if err := dl.PublishBurst(b); err != nil {
				log.Debugf("Rajada não enviada pelo downlink: %v", err)
			}
		})
	}
}

// enqueue agenda uma publicação lenta (rede) fora do loop de voo
func (s *Service) enqueue(job func()) {
	select {
	case s.outbox <- job:
	default:
		outboxDropped.Inc()
	}
}

// runOutbox executa as publicações na ordem em que foram geradas
func (s *Service) runOutbox() {
	defer close(s.flushed)

	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.outbox:
			job()
		}
	}
}

// RequestAbort pede o aborto da missão; seguro para qualquer goroutine.
// O sequenciador age no próximo tick.
func (s *Service) RequestAbort(source string) {
	log.Warnf("Pedido de aborto recebido de %s", source)
	s.seq.Monitor().RequestAbort()
}

// Snapshot retorna o último snapshot publicado
func (s *Service) Snapshot() models.Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.snapshot
}

// LastSample retorna a última amostra e os sinais derivados
func (s *Service) LastSample() (models.FlightSample, models.DerivedSignals, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastSample == nil {
		return models.FlightSample{}, models.DerivedSignals{}, false
	}
	return *s.lastSample, s.lastDerived, true
}

// Transitions retorna até limit transições, da mais recente para a mais antiga
func (s *Service) Transitions(limit int) []models.Transition {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := len(s.transitions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Transition, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.transitions[i])
	}
	return out
}

// LastBurst retorna a última rajada emitida
func (s *Service) LastBurst() (models.TelemetryBurst, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastBurst == nil {
		return models.TelemetryBurst{}, false
	}
	return *s.lastBurst, true
}

// GetStatus retorna o status operacional atual
func (s *Service) GetStatus() models.FlightStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	status := s.status
	status.Abort = s.snapshot.Abort
	status.AbortReason = string(s.snapshot.AbortReason)

	s.statsLock.Lock()
	status.ErrorCount = int(s.stats.sinkFailures)
	status.LastError = s.stats.lastSinkErr
	s.statsLock.Unlock()
	return status
}

// setStatusLocked atualiza o status e o distribui; exige s.mutex
func (s *Service) setStatusLocked(status, errorMsg string) {
	s.status.Status = status
	s.status.Timestamp = s.deps.Clock.Now()
	s.status.LastError = errorMsg
	current := s.status
	snap := s.snapshot

	if store := s.deps.Store; store != nil {
		s.enqueue(func() {
			if err := store.WriteStatus(current); err != nil {
				log.Debugf("Erro ao escrever status no Redis: %v", err)
			}
		})
	}
	if s.deps.Feed != nil {
		s.deps.Feed.BroadcastStatus(snap)
	}

	if status != "ok" {
		log.Warnf("Status do computador de voo alterado para %s", status)
	}
}

func (s *Service) recordTick(elapsed time.Duration) {
	ticksTotal.Inc()
	tickDuration.Observe(elapsed.Seconds())
	if elapsed > s.cfg.Sequencer.TickPeriod {
		tickOverruns.Inc()
	}

	s.statsLock.Lock()
	defer s.statsLock.Unlock()
	s.stats.totalTicks++
	s.stats.tickDurations = append(s.stats.tickDurations, elapsed)
	if len(s.stats.tickDurations) > statsWindow {
		s.stats.tickDurations = s.stats.tickDurations[1:]
	}
}

// monitorStats registra estatísticas de desempenho a cada minuto
func (s *Service) monitorStats() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.logPerformanceStats()
		}
	}
}

func (s *Service) logPerformanceStats() {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()

	var avg time.Duration
	if len(s.stats.tickDurations) > 0 {
		var sum time.Duration
		for _, d := range s.stats.tickDurations {
			sum += d
		}
		avg = sum / time.Duration(len(s.stats.tickDurations))
		s.stats.avgTickDuration = avg
	}

	log.Infof("Estatísticas de desempenho: %d ticks, duração média: %v, falhas de registro: %d",
		s.stats.totalTicks, avg, s.stats.sinkFailures)
}
