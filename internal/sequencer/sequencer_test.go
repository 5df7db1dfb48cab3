package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/config"
	"rocket_go/internal/dynamics"
	"rocket_go/internal/models"
	"rocket_go/internal/sensors"
	"rocket_go/internal/telemetry"
)

const tickPeriod = 100 * time.Millisecond

type recordingObserver struct {
	transitions []models.Transition
	bursts      []models.TelemetryBurst
}

func (r *recordingObserver) OnTransition(tr models.Transition) {
	r.transitions = append(r.transitions, tr)
}

func (r *recordingObserver) OnBurst(b models.TelemetryBurst) {
	r.bursts = append(r.bursts, b)
}

func (r *recordingObserver) visits(state models.SequencerState) int {
	n := 0
	for _, tr := range r.transitions {
		if tr.To == state {
			n++
		}
	}
	return n
}

type fixture struct {
	t     *testing.T
	clock *sensors.VirtualClock
	act   *SimActuator
	obs   *recordingObserver
	seq   *Sequencer
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPulse(t, 100*time.Millisecond)
}

func newFixtureWithPulse(t *testing.T, pulse time.Duration) *fixture {
	clock := sensors.NewVirtualClock(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	act := NewSimActuator(clock, pulse)
	obs := &recordingObserver{}
	cfg := config.Default().Sequencer
	seq := New(cfg, dynamics.NewDetector(dynamics.DefaultThresholds()), act,
		NewMonitor(act, cfg.LowBatteryVolts), obs, clock.Now())
	return &fixture{t: t, clock: clock, act: act, obs: obs, seq: seq}
}

// padSample é uma amostra com todas as fontes válidas, parado no pad
func padSample() models.FlightSample {
	return models.FlightSample{
		Altitude:       100,
		AccelZ:         1,
		AccelMagnitude: 1,
		BatteryVolts:   4.1,
		PayloadVolts:   4.0,
		GPS:            models.GPSFix{Satellites: 8, Valid: true},
		Sources: models.SourceStatus{
			BaroValid: true, IMUValid: true, GPSValid: true, BatteryValid: true,
		},
	}
}

// tick executa um passo com a amostra e a velocidade informadas e avança o relógio
func (f *fixture) tick(sample models.FlightSample, velocity float64) error {
	sample.Timestamp = f.clock.Now()
	err := f.seq.Tick(sample, models.DerivedSignals{
		VerticalVelocity:      velocity,
		AccelerationMagnitude: sample.AccelMagnitude,
	})
	f.clock.Advance(tickPeriod)
	return err
}

func (f *fixture) mustTick(sample models.FlightSample, velocity float64) {
	require.NoError(f.t, f.tick(sample, velocity))
}

func (f *fixture) toIgniteReady() {
	for i := 0; i < 6; i++ {
		f.mustTick(padSample(), 0)
	}
	require.Equal(f.t, models.StateIgniteReady, f.seq.CurrentState())
}

func (f *fixture) toPostLaunch() {
	f.toIgniteReady()
	boost := padSample()
	boost.AccelZ, boost.AccelMagnitude = 8, 8
	f.mustTick(boost, 0)
	require.Equal(f.t, models.StateLaunch, f.seq.CurrentState())

	climb := boost
	climb.Altitude = 160
	f.mustTick(climb, 40)
	require.Equal(f.t, models.StatePostLaunchReport, f.seq.CurrentState())
}

func (f *fixture) toPopFairing() {
	f.toPostLaunch()
	top := padSample()
	top.Altitude, top.AccelZ, top.AccelMagnitude = 400, 0, 0
	f.mustTick(top, -3)
	require.Equal(f.t, models.StateApogeeReport, f.seq.CurrentState())
	f.mustTick(top, -3)
	require.Equal(f.t, models.StatePopNoseFairing, f.seq.CurrentState())
}

func TestStartupAdvancesOneStatePerTick(t *testing.T) {
	f := newFixture(t)

	expected := []models.SequencerState{
		models.StateStartupBattery,
		models.StateStartupTelemetry,
		models.StateStartupPayload,
		models.StatePayloadTelemetry,
		models.StateRBSafeCheck,
		models.StateIgniteReady,
	}
	for _, want := range expected {
		f.mustTick(padSample(), 0)
		assert.Equal(t, want, f.seq.CurrentState())
	}

	assert.True(t, f.act.PayloadPowered())
	snap := f.seq.Snapshot()
	assert.Equal(t, models.PhasePreflight, snap.Phase)
	assert.Equal(t, 500*time.Millisecond, snap.BlinkInterval)
	assert.Len(t, f.obs.transitions, 6)
	assert.Len(t, f.obs.bursts, 6, "uma rajada por transição")
}

func TestSensorFaultBlocksStartup(t *testing.T) {
	f := newFixture(t)
	bad := padSample()
	bad.Sources.IMUValid = false

	for i := 0; i < 20; i++ {
		f.mustTick(bad, 0)
	}
	assert.Equal(t, models.StateInitSeqIMU, f.seq.CurrentState())
	assert.False(t, f.seq.Snapshot().Abort)
}

func TestTransitionResetsRetryCountAndEntryTime(t *testing.T) {
	f := newFixture(t)
	low := padSample()
	low.BatteryVolts = 3.0

	f.mustTick(low, 0) // init -> battery
	require.Equal(t, models.StateStartupBattery, f.seq.CurrentState())

	for i := 0; i < 320; i++ {
		f.mustTick(low, 0)
	}
	snap := f.seq.Snapshot()
	require.Equal(t, 1, snap.RetryCount)
	require.Equal(t, models.StateStartupBattery, snap.State)

	now := f.clock.Now()
	f.mustTick(padSample(), 0)
	snap = f.seq.Snapshot()
	assert.Equal(t, models.StateStartupTelemetry, snap.State)
	assert.Zero(t, snap.RetryCount)
	assert.Equal(t, now, snap.StateEntryTime)
}

func TestStartupTimeoutAbortsOnFourthExpiry(t *testing.T) {
	f := newFixture(t)
	low := padSample()
	low.BatteryVolts = 3.0

	// três expirações: ainda em inicialização
	for f.clock.Now().Sub(f.seq.Snapshot().StateEntryTime) < 100*time.Second {
		f.mustTick(low, 0)
	}
	snap := f.seq.Snapshot()
	require.Equal(t, models.StateStartupBattery, snap.State)
	require.Equal(t, 3, snap.RetryCount)
	require.False(t, snap.Abort)

	for i := 0; i < 250 && !f.seq.Frozen(); i++ {
		f.mustTick(low, 0)
	}
	snap = f.seq.Snapshot()
	assert.Equal(t, models.StateKillAll, snap.State)
	assert.Equal(t, models.PhaseAbort, snap.Phase)
	assert.True(t, snap.Abort)
	assert.Equal(t, models.AbortStartupTimeout, snap.AbortReason)
	assert.False(t, snap.SequenceActive)
	assert.Zero(t, f.act.FireCount(models.ChannelParachute), "no solo não há paraquedas")
}

func TestExternalAbortTakesEffectOnNextTick(t *testing.T) {
	f := newFixture(t)
	f.toIgniteReady()

	f.seq.RequestAbort()
	f.mustTick(padSample(), 0)
	snap := f.seq.Snapshot()
	assert.True(t, snap.Abort)
	assert.Equal(t, models.AbortExternal, snap.AbortReason)
	assert.Equal(t, models.StateIgniteReady, snap.State)

	f.mustTick(padSample(), 0)
	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.True(t, f.seq.Frozen())
	assert.Equal(t, 1, f.act.SafeCalls())
	assert.Zero(t, f.act.FireCount(models.ChannelParachute))

	assert.ErrorIs(t, f.tick(padSample(), 0), ErrFrozen)
	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
}

func TestAbortSwitchInFlightDeploysParachute(t *testing.T) {
	f := newFixture(t)
	f.toPostLaunch()

	f.act.SetAbortSwitch(true)
	climb := padSample()
	climb.Altitude = 200
	f.mustTick(climb, 30)
	f.mustTick(climb, 30)

	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.Equal(t, 1, f.act.FireCount(models.ChannelParachute))
	assert.Equal(t, models.AbortExternal, f.seq.Snapshot().AbortReason)
}

func TestCriticalBatteryInFlightFiresParachuteImmediately(t *testing.T) {
	f := newFixture(t)
	f.toPostLaunch()

	dying := padSample()
	dying.Altitude = 220
	dying.BatteryVolts = 3.3
	f.mustTick(dying, 25)

	snap := f.seq.Snapshot()
	assert.True(t, snap.Abort)
	assert.Equal(t, models.AbortCriticalBattery, snap.AbortReason)
	assert.Equal(t, models.StatePostLaunchReport, snap.State)
	assert.Equal(t, 1, f.act.FireCount(models.ChannelParachute))

	f.mustTick(dying, 25)
	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.Equal(t, 1, f.act.FireCount(models.ChannelParachute), "caminho de aborto não repete o disparo")
}

func TestKillAllWaitsForParachutePulseInFlight(t *testing.T) {
	f := newFixtureWithPulse(t, 300*time.Millisecond)
	f.toPostLaunch()

	dying := padSample()
	dying.Altitude = 220
	dying.BatteryVolts = 3.3
	f.mustTick(dying, 25) // paraquedas disparado em T
	f.mustTick(dying, 25) // ABIT em T+100ms

	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.False(t, f.seq.Frozen(), "desarme aguarda o fim do pulso")
	assert.Zero(t, f.act.SafeCalls())
	assert.True(t, f.act.ChannelLevels()[models.ChannelParachute], "pulso segue ativo em T+200ms")

	f.mustTick(dying, 25) // T+200ms, pulso ainda em curso
	assert.True(t, f.act.ChannelLevels()[models.ChannelParachute])
	assert.False(t, f.seq.Frozen())

	f.mustTick(dying, 25) // T+300ms, fim do pulso
	assert.True(t, f.seq.Frozen())
	assert.Equal(t, 1, f.act.SafeCalls())
	assert.Equal(t, 1, f.act.FireCount(models.ChannelParachute))
	assert.Equal(t, [models.ChannelCount]bool{}, f.act.ChannelLevels())

	assert.ErrorIs(t, f.tick(dying, 25), ErrFrozen)
}

func TestKillAllWithoutPulseFreezesImmediately(t *testing.T) {
	f := newFixtureWithPulse(t, 300*time.Millisecond)
	f.toIgniteReady()

	f.seq.RequestAbort()
	f.mustTick(padSample(), 0)
	f.mustTick(padSample(), 0)

	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.True(t, f.seq.Frozen())
	assert.Equal(t, 1, f.act.SafeCalls())
}

func TestCriticalBatteryOnPadBlocksWithoutAbort(t *testing.T) {
	f := newFixture(t)
	f.toIgniteReady()

	low := padSample()
	low.BatteryVolts = 3.1
	low.AccelZ, low.AccelMagnitude = 3, 3
	for i := 0; i < 10; i++ {
		f.mustTick(low, 0)
	}

	snap := f.seq.Snapshot()
	assert.Equal(t, models.StateIgniteReady, snap.State)
	assert.False(t, snap.Abort)
	assert.False(t, snap.Readiness.BatteryOK)
}

func TestLaunchThresholdIsStrict(t *testing.T) {
	f := newFixture(t)
	f.toIgniteReady()

	edge := padSample()
	edge.AccelZ, edge.AccelMagnitude = 2.0, 2.0
	f.mustTick(edge, 0)
	assert.Equal(t, models.StateIgniteReady, f.seq.CurrentState())

	edge.AccelMagnitude = 2.01
	f.mustTick(edge, 0)
	assert.Equal(t, models.StateLaunch, f.seq.CurrentState())
	assert.Equal(t, 1, f.act.FireCount(models.ChannelBooster))
	assert.Equal(t, 100.0, f.seq.Snapshot().LaunchAltitude)
}

func TestDeployStatesFireOnceAndWaitForSettle(t *testing.T) {
	f := newFixture(t)
	f.toPopFairing()

	descent := padSample()
	descent.Altitude = 390

	// acomodação de 2 s: 19 ticks ainda no estado
	for i := 0; i < 19; i++ {
		f.mustTick(descent, -5)
		require.Equal(t, models.StatePopNoseFairing, f.seq.CurrentState(), "tick %d", i)
	}
	f.mustTick(descent, -5)
	assert.Equal(t, models.StateStageSeparation, f.seq.CurrentState())
	assert.Equal(t, 1, f.act.FireCount(models.ChannelNoseFairing))
	assert.Equal(t, 1, f.act.FireCount(models.ChannelStageSeparation))
}

func TestAbortIsHonouredDuringSettleWait(t *testing.T) {
	f := newFixture(t)
	f.toPopFairing()

	f.seq.RequestAbort()
	f.mustTick(padSample(), -5)
	f.mustTick(padSample(), -5)

	assert.Equal(t, models.StateKillAll, f.seq.CurrentState())
	assert.Zero(t, f.act.FireCount(models.ChannelStageSeparation))
	assert.Equal(t, 1, f.act.FireCount(models.ChannelParachute), "DEPLOY ainda é fase em voo")
}

func TestFailedFireIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.act.FailChannel(models.ChannelNoseFairing)
	f.toPopFairing()

	for i := 0; i < 25; i++ {
		f.mustTick(padSample(), -5)
	}
	assert.Zero(t, f.act.FireCount(models.ChannelNoseFairing))
	assert.Equal(t, models.StateStageSeparation, f.seq.CurrentState(), "falha de atuação não trava a sequência")
	assert.Contains(t, f.seq.Snapshot().Fired, models.ChannelNoseFairing)
}

func TestAbortIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.toPostLaunch()
	before := len(f.obs.transitions)

	f.seq.RequestAbort()
	for i := 0; i < 10; i++ {
		_ = f.tick(padSample(), 0)
	}

	after := f.obs.transitions[before:]
	require.NotEmpty(t, after)
	for _, tr := range after {
		assert.Equal(t, models.StateKillAll, tr.To)
		assert.True(t, tr.Abort)
	}
}

func TestTimeoutOutsideStartupOnlyWarns(t *testing.T) {
	f := newFixture(t)
	f.toIgniteReady()
	for i := 0; i < 700; i++ {
		f.mustTick(padSample(), 0)
	}
	assert.Equal(t, models.StateIgniteReady, f.seq.CurrentState())

	f.toPostLaunch()
	hover := padSample()
	hover.Altitude = 200
	for i := 0; i < 700; i++ {
		f.mustTick(hover, 1)
	}
	snap := f.seq.Snapshot()
	assert.Equal(t, models.StatePostLaunchReport, snap.State)
	assert.False(t, snap.Abort)
}

func TestSafeAllIsIdempotent(t *testing.T) {
	clock := sensors.NewVirtualClock(time.Now())
	act := NewSimActuator(clock, time.Second)
	require.True(t, act.Fire(models.ChannelPayload))
	require.True(t, act.ChannelLevels()[models.ChannelPayload])

	act.SafeAll()
	first := act.ChannelLevels()
	act.SafeAll()
	second := act.ChannelLevels()

	assert.Equal(t, first, second)
	assert.Equal(t, [models.ChannelCount]bool{}, second)
}

func TestSimulatedFlightEndToEnd(t *testing.T) {
	clock := sensors.NewVirtualClock(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	simCfg := config.Default().Sensors.Simulation
	simCfg.PadAltitude = 0
	sim := sensors.NewSimulator(simCfg, clock)

	act := NewSimActuator(clock, 100*time.Millisecond)
	act.OnPayloadPower(sim.SetPayloadPower)

	obs := &recordingObserver{}
	cfg := config.Default().Sequencer
	seq := New(cfg, dynamics.NewDetector(dynamics.DefaultThresholds()), act, nil, obs, clock.Now())
	agg := telemetry.NewAggregator(sim, 50*time.Millisecond)
	est := dynamics.NewEstimator(dynamics.DefaultVelocityWindow)

	ctx := context.Background()
	for i := 0; i < 2000 && !seq.Frozen(); i++ {
		sample := agg.Collect(ctx, clock.Now())
		require.NoError(t, seq.Tick(sample, est.Update(sample)))
		clock.Advance(cfg.TickPeriod)
	}

	snap := seq.Snapshot()
	require.True(t, seq.Frozen(), "voo deve terminar em KillAll")
	assert.Equal(t, models.StateKillAll, snap.State)
	assert.False(t, snap.Abort)
	assert.True(t, snap.ApogeeDetected)
	assert.InDelta(t, 300.0, snap.MaxAltitude, 15.0)
	assert.False(t, snap.LandedAt.IsZero())

	for _, s := range []models.SequencerState{
		models.StateIgniteReady, models.StateLaunch,
		models.StatePostLaunchReport, models.StateApogeeReport,
	} {
		assert.Equal(t, 1, obs.visits(s), "estado %s", s)
	}

	for ch := 0; ch < models.ChannelCount; ch++ {
		assert.Equal(t, 1, act.FireCount(models.Channel(ch)), "canal %s", models.Channel(ch))
	}

	// sequência estritamente crescente de estados
	for i := 1; i < len(obs.transitions); i++ {
		assert.Greater(t, obs.transitions[i].To, obs.transitions[i-1].To)
	}
}
