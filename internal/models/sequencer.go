package models

import (
	"fmt"
	"time"
)

// SequencerState identifica um dos 17 estados do sequenciador
type SequencerState int

const (
	// SBIT - sequência de inicialização (0-5)
	StateInitSeqIMU SequencerState = iota
	StateStartupBattery
	StateStartupTelemetry
	StateStartupPayload
	StatePayloadTelemetry
	StateRBSafeCheck

	// LBIT - sequência de lançamento (6-9)
	StateIgniteReady
	StateLaunch
	StatePostLaunchReport
	StateApogeeReport

	// DBIT - sequência de deploy (10-15)
	StatePopNoseFairing
	StateStageSeparation
	StateDeployPayload
	StateFinalMode
	StateDeployParachute
	StateSendAllTelemetry

	// ABIT - aborto / encerramento (16)
	StateKillAll
)

// StateCount é o número total de estados
const StateCount = int(StateKillAll) + 1

var stateNames = [StateCount]string{
	"SBIT-0: Init Seq/IMU",
	"SBIT-1: Startup Battery",
	"SBIT-2: Startup Telemetry",
	"SBIT-3: Startup Payload",
	"SBIT-4: Payload Telemetry",
	"SBIT-5: RBSAFE Check",
	"LBIT-6: Ignit Booster",
	"LBIT-7: Launch",
	"LBIT-8: Post Launch",
	"LBIT-9: Apogee Report",
	"DBIT-10: Pop Nose Fairing",
	"DBIT-11: Stage Separation",
	"DBIT-12: Boom Payload",
	"DBIT-13: Final Mode",
	"DBIT-14: Deploy Parachute",
	"DBIT-15: Send All Telemetry",
	"ABIT-16: Kill All Processes",
}

// String retorna o nome do estado no formato do log de voo
func (s SequencerState) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Valid verifica se o identificador corresponde a um estado conhecido
func (s SequencerState) Valid() bool {
	return s >= StateInitSeqIMU && s <= StateKillAll
}

// Band retorna a banda de BIT à qual o estado pertence
func (s SequencerState) Band() Band {
	switch {
	case s <= StateRBSafeCheck:
		return BandStartup
	case s <= StateApogeeReport:
		return BandLaunch
	case s <= StateSendAllTelemetry:
		return BandDeploy
	default:
		return BandAbort
	}
}

// Phase retorna a fase de missão do estado (função total e fixa)
func (s SequencerState) Phase() MissionPhase {
	switch {
	case s <= StateRBSafeCheck:
		return PhaseStartup
	case s == StateIgniteReady:
		return PhasePreflight
	case s == StateLaunch:
		return PhaseLaunch
	case s <= StateApogeeReport:
		return PhaseFlight
	case s <= StateDeployParachute:
		return PhaseDeploy
	case s == StateSendAllTelemetry:
		return PhaseRecovery
	default:
		return PhaseAbort
	}
}

// Band agrupa os estados em SBIT, LBIT, DBIT e ABIT
type Band int

const (
	BandStartup Band = iota
	BandLaunch
	BandDeploy
	BandAbort
)

func (b Band) String() string {
	switch b {
	case BandStartup:
		return "SBIT"
	case BandLaunch:
		return "LBIT"
	case BandDeploy:
		return "DBIT"
	case BandAbort:
		return "ABIT"
	}
	return "UNKNOWN"
}

// MissionPhase é a fase de alto nível da missão (ordenada)
type MissionPhase int

const (
	PhaseStartup MissionPhase = iota
	PhasePreflight
	PhaseLaunch
	PhaseFlight
	PhaseDeploy
	PhaseRecovery
	PhaseAbort
)

func (p MissionPhase) String() string {
	switch p {
	case PhaseStartup:
		return "STARTUP"
	case PhasePreflight:
		return "PREFLIGHT"
	case PhaseLaunch:
		return "LAUNCH"
	case PhaseFlight:
		return "FLIGHT"
	case PhaseDeploy:
		return "DEPLOY"
	case PhaseRecovery:
		return "RECOVERY"
	case PhaseAbort:
		return "ABORT"
	}
	return "UNKNOWN"
}

// Airborne indica se a fase implica veículo em voo sem paraquedas aberto
func (p MissionPhase) Airborne() bool {
	return p == PhaseLaunch || p == PhaseFlight || p == PhaseDeploy
}

// BlinkInterval retorna o período do LED de status para a fase
func (p MissionPhase) BlinkInterval() time.Duration {
	switch p {
	case PhaseStartup:
		return 2000 * time.Millisecond
	case PhasePreflight:
		return 500 * time.Millisecond
	case PhaseLaunch, PhaseFlight:
		return 100 * time.Millisecond
	case PhaseDeploy:
		return 200 * time.Millisecond
	case PhaseAbort:
		return 50 * time.Millisecond
	}
	return 1000 * time.Millisecond
}

// Channel identifica uma saída pirotécnica
type Channel int

const (
	ChannelBooster Channel = iota
	ChannelNoseFairing
	ChannelStageSeparation
	ChannelPayload
	ChannelParachute
)

// ChannelCount é o número de canais pirotécnicos
const ChannelCount = int(ChannelParachute) + 1

func (c Channel) String() string {
	switch c {
	case ChannelBooster:
		return "booster"
	case ChannelNoseFairing:
		return "nose_fairing"
	case ChannelStageSeparation:
		return "stage_separation"
	case ChannelPayload:
		return "payload"
	case ChannelParachute:
		return "parachute"
	}
	return fmt.Sprintf("channel_%d", int(c))
}

// AbortReason descreve o gatilho de um aborto
type AbortReason string

const (
	AbortNone            AbortReason = ""
	AbortExternal        AbortReason = "external_abort"
	AbortCriticalBattery AbortReason = "critical_battery"
	AbortStartupTimeout  AbortReason = "startup_timeout"
)

// Readiness reúne as flags de prontidão usadas pelas portas do SBIT
type Readiness struct {
	BatteryOK bool `json:"batteryOK"`
	SensorsOK bool `json:"sensorsOK"`
	PayloadOK bool `json:"payloadOK"`
	GPSLock   bool `json:"gpsLock"`
}

// Snapshot é uma cópia somente-leitura do contexto do sequenciador
type Snapshot struct {
	State          SequencerState `json:"state"`
	StateName      string         `json:"stateName"`
	Phase          MissionPhase   `json:"phase"`
	PhaseName      string         `json:"phaseName"`
	StateEntryTime time.Time      `json:"stateEntryTime"`
	RetryCount     int            `json:"retryCount"`
	LaunchAltitude float64        `json:"launchAltitude"`
	MaxAltitude    float64        `json:"maxAltitude"`
	ApogeeDetected bool           `json:"apogeeDetected"`
	Abort          bool           `json:"abort"`
	AbortReason    AbortReason    `json:"abortReason,omitempty"`
	SequenceActive bool           `json:"sequenceActive"`
	Readiness      Readiness      `json:"readiness"`
	Fired          []Channel      `json:"fired,omitempty"`
	BlinkInterval  time.Duration  `json:"blinkInterval"`
	LandedAt       time.Time      `json:"landedAt,omitempty"`
}

// Transition registra uma mudança de estado do sequenciador
type Transition struct {
	From      SequencerState `json:"from"`
	To        SequencerState `json:"to"`
	FromName  string         `json:"fromName"`
	ToName    string         `json:"toName"`
	Phase     MissionPhase   `json:"phase"`
	PhaseName string         `json:"phaseName"`
	Timestamp time.Time      `json:"timestamp"`
	Abort     bool           `json:"abort"`
}

// Failures lista as flags de prontidão em falso (GPS é apenas consultivo)
func (r Readiness) Failures() []string {
	var failed []string
	if !r.BatteryOK {
		failed = append(failed, "bateria")
	}
	if !r.SensorsOK {
		failed = append(failed, "sensores")
	}
	if !r.PayloadOK {
		failed = append(failed, "payload")
	}
	if !r.GPSLock {
		failed = append(failed, "gps (consultivo)")
	}
	return failed
}

// Ready indica se todas as flags obrigatórias do RBSAFE estão verdadeiras
func (r Readiness) Ready() bool {
	return r.BatteryOK && r.SensorsOK && r.PayloadOK
}
