package flight

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
	"rocket_go/internal/plc"
	"rocket_go/internal/sensors"
	"rocket_go/internal/sequencer"
	"rocket_go/internal/telemetry"
	"rocket_go/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Redis.Enabled = false
	return cfg
}

func TestRunSimulationNominalFlight(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	csvSink, err := telemetry.NewCSVSink(dir, "voo.csv")
	require.NoError(t, err)

	summary, err := RunSimulation(context.Background(), cfg, 10*time.Minute, []telemetry.Sink{csvSink})
	require.NoError(t, err)
	require.NoError(t, csvSink.Close())

	assert.Equal(t, models.StateKillAll, summary.FinalState)
	assert.False(t, summary.Abort)
	assert.InDelta(t, cfg.Sensors.Simulation.TargetApogee, summary.MaxAltitude, 15)
	assert.ElementsMatch(t, []models.Channel{
		models.ChannelBooster, models.ChannelNoseFairing, models.ChannelStageSeparation,
		models.ChannelPayload, models.ChannelParachute,
	}, summary.Fired)

	// cada estado visitado uma única vez, em ordem crescente
	require.NotEmpty(t, summary.Transitions)
	prev := models.StateInitSeqIMU
	for _, tr := range summary.Transitions {
		assert.Equal(t, prev, tr.From)
		assert.Greater(t, tr.To, tr.From)
		prev = tr.To
	}
	assert.Equal(t, models.StateKillAll, prev)

	f, err := os.Open(csvSink.Path())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, telemetry.Header(), rows[0])
	assert.Len(t, rows, summary.Ticks+1)
}

func TestRunSimulationSensorFaultAbortsDuringStartup(t *testing.T) {
	cfg := testConfig()

	summary, err := RunSimulation(context.Background(), cfg, 10*time.Minute, nil, WithFault(sensors.CapabilityBaro))
	require.NoError(t, err)

	assert.Equal(t, models.StateKillAll, summary.FinalState)
	assert.True(t, summary.Abort)
	assert.Equal(t, models.AbortStartupTimeout, summary.AbortReason)
	assert.Empty(t, summary.Fired, "nenhum canal pirotécnico no solo")
	assert.Greater(t, summary.Elapsed, time.Duration(cfg.Sequencer.MaxRetries)*cfg.Sequencer.StateTimeout)
}

func TestRunSimulationStopsAtMaxDuration(t *testing.T) {
	cfg := testConfig()

	summary, err := RunSimulation(context.Background(), cfg, 2*time.Second, nil)
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, models.StateIgniteReady, summary.FinalState, "ainda no pad")
}

func TestRunSimulationHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunSimulation(ctx, testConfig(), time.Minute, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// recorder implementa todos os colaboradores de saída do serviço
type recorder struct {
	mu          sync.Mutex
	samples     int
	transitions []models.Transition
	bursts      []models.TelemetryBurst
	statuses    []models.FlightStatus
	stored      []models.Transition
	downlinked  int
	mirrored    int
}

func (r *recorder) BroadcastSample(models.FlightSample, models.DerivedSignals, models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples++
}

func (r *recorder) BroadcastBurst(b models.TelemetryBurst) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bursts = append(r.bursts, b)
}

func (r *recorder) BroadcastTransition(tr models.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) BroadcastStatus(models.Snapshot) {}

func (r *recorder) WriteSample(models.FlightSample, models.DerivedSignals, models.Snapshot) error {
	return nil
}

func (r *recorder) WriteTransition(tr models.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, tr)
	return nil
}

func (r *recorder) WriteBurst(models.TelemetryBurst) error { return nil }

func (r *recorder) WriteStatus(st models.FlightStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
	return nil
}

func (r *recorder) PublishBurst(models.TelemetryBurst) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downlinked++
	return nil
}

func (r *recorder) PublishTransition(models.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downlinked++
	return nil
}

func (r *recorder) Update(plc.MirrorFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirrored++
}

func (r *recorder) storedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

type failingSink struct{}

func (failingSink) Name() string { return "falho" }
func (failingSink) Append(models.TelemetryRecord) error { return assert.AnError }

type countingSink struct{ n atomic.Int64 }

func (c *countingSink) Name() string { return "contador" }

func (c *countingSink) Append(models.TelemetryRecord) error {
	c.n.Add(1)
	return nil
}

func TestServiceLoopReachesPadAndAbortsOnRequest(t *testing.T) {
	cfg := testConfig()
	cfg.Sequencer.TickPeriod = 5 * time.Millisecond

	clock := sensors.SystemClock{}
	sim := sensors.NewSimulator(cfg.Sensors.Simulation, clock)
	act := sequencer.NewSimActuator(clock, cfg.Actuation.PulseWidth)
	act.OnPayloadPower(sim.SetPayloadPower)
	rec := &recorder{}
	remote := &countingSink{}

	svc, err := NewService(cfg, Deps{
		Clock:       clock,
		Suite:       sim,
		Actuator:    act,
		Sinks:       []telemetry.Sink{failingSink{}},
		RemoteSinks: []telemetry.Sink{remote},
		Feed:        rec,
		Store:       rec,
		Downlink:    rec,
		Mirror:      rec,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	defer svc.Stop()
	assert.True(t, svc.IsRunning())

	require.Eventually(t, func() bool {
		return svc.Snapshot().State == models.StateIgniteReady
	}, 2*time.Second, 5*time.Millisecond)

	svc.RequestAbort("teste")

	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop de voo não terminou após o aborto")
	}

	snap := svc.Snapshot()
	assert.Equal(t, models.StateKillAll, snap.State)
	assert.Equal(t, models.AbortExternal, snap.AbortReason)
	assert.False(t, snap.SequenceActive)
	assert.Zero(t, act.FireCount(models.ChannelParachute), "aborto no pad não abre o paraquedas")

	transitions := svc.Transitions(2)
	require.Len(t, transitions, 2)
	assert.Equal(t, models.StateKillAll, transitions[0].To, "mais recente primeiro")

	status := svc.GetStatus()
	assert.Equal(t, "encerrado", status.Status)
	assert.True(t, status.Abort)
	assert.Positive(t, status.ErrorCount, "falhas do sink contabilizadas sem parar o loop")
	assert.Positive(t, remote.n.Load(), "sinks de rede gravados pela fila de saída")
	assert.NotEmpty(t, status.SessionID)

	_, _, ok := svc.LastSample()
	assert.True(t, ok)
	burst, ok := svc.LastBurst()
	assert.True(t, ok)
	assert.Contains(t, burst.Reason, "aborto")

	assert.Eventually(t, func() bool { return rec.storedCount() == len(svc.Transitions(0)) }, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Positive(t, rec.samples)
	assert.Positive(t, rec.mirrored)
	assert.Positive(t, rec.downlinked)
	assert.Len(t, rec.transitions, len(rec.stored))
	assert.NotEmpty(t, rec.bursts)
}

// slowStore simula um Redis lento e conta escritas em andamento
type slowStore struct {
	active atomic.Int32
	calls  atomic.Int32
}

func (s *slowStore) write() error {
	s.active.Add(1)
	time.Sleep(10 * time.Millisecond)
	s.calls.Add(1)
	s.active.Add(-1)
	return nil
}

func (s *slowStore) WriteSample(models.FlightSample, models.DerivedSignals, models.Snapshot) error {
	return s.write()
}

func (s *slowStore) WriteTransition(models.Transition) error { return s.write() }
func (s *slowStore) WriteBurst(models.TelemetryBurst) error { return s.write() }
func (s *slowStore) WriteStatus(models.FlightStatus) error { return s.write() }

func TestStopWaitsForOutbox(t *testing.T) {
	cfg := testConfig()
	cfg.Sequencer.TickPeriod = 5 * time.Millisecond

	clock := sensors.SystemClock{}
	store := &slowStore{}
	svc, err := NewService(cfg, Deps{
		Clock:    clock,
		Suite:    sensors.NewSimulator(cfg.Sensors.Simulation, clock),
		Actuator: sequencer.NewSimActuator(clock, cfg.Actuation.PulseWidth),
		Store:    store,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	require.Eventually(t, func() bool { return store.calls.Load() > 3 }, 2*time.Second, 5*time.Millisecond)
	svc.Stop()

	assert.Zero(t, store.active.Load(), "nenhuma escrita em andamento após Stop")
	after := store.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, store.calls.Load(), "fila de saída parada")
}

func TestBurstLoggedOncePerTransition(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	prev := logger.GetLevel()
	logger.SetLevel(logger.INFO)
	t.Cleanup(func() {
		logger.SetLevel(prev)
		logger.SetOutput(os.Stdout)
	})

	cfg := testConfig()
	clock := sensors.SystemClock{}
	svc, err := NewService(cfg, Deps{
		Clock:    clock,
		Suite:    sensors.NewSimulator(cfg.Sensors.Simulation, clock),
		Actuator: sequencer.NewSimActuator(clock, cfg.Actuation.PulseWidth),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Step(context.Background()))
	}

	transitions := svc.Transitions(0)
	require.NotEmpty(t, transitions)
	_, ok := svc.LastBurst()
	assert.True(t, ok)
	assert.Equal(t, len(transitions), strings.Count(buf.String(), "=== TELEMETRIA CRÍTICA"))
}

func TestNewServiceRequiresHardware(t *testing.T) {
	_, err := NewService(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestNewHardwareModes(t *testing.T) {
	cfg := testConfig()
	hw, err := NewHardware(cfg, sensors.SystemClock{})
	require.NoError(t, err)
	assert.NotNil(t, hw.Simulator)
	assert.IsType(t, &sequencer.SimActuator{}, hw.Actuator)

	// a alimentação do payload comandada pelo atuador chega ao simulador
	hw.Actuator.SetPayloadPower(true)
	power, err := hw.Simulator.ReadPower(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Sensors.Simulation.PayloadVolts, power.PayloadVolts)
	hw.Close()

	cfg.Sensors.Mode = config.SensorModeHIL
	cfg.PLC.Enabled = true
	cfg.Actuation.Mode = config.ActuationModePLC
	hw, err = NewHardware(cfg, sensors.SystemClock{})
	require.NoError(t, err)
	assert.NotNil(t, hw.HIL)
	assert.IsType(t, &plc.Actuator{}, hw.Actuator)
	hw.Close()

	cfg.Actuation.Mode = "laser"
	_, err = NewHardware(cfg, sensors.SystemClock{})
	assert.Error(t, err)
}
