package sequencer

import (
	"time"

	"rocket_go/internal/models"
)

// Context é o estado mutável do sequenciador. Só o Sequencer o altera;
// os demais componentes recebem cópias via Snapshot.
type Context struct {
	State          models.SequencerState
	Phase          models.MissionPhase
	StateEntryTime time.Time
	RetryCount     int
	LaunchAltitude float64
	MaxAltitude    float64
	ApogeeDetected bool
	Abort          bool
	AbortReason    models.AbortReason
	SequenceActive bool
	Readiness      models.Readiness

	// fase no instante do aborto, decide o paraquedas no caminho de aborto
	abortPhase models.MissionPhase

	// subestado de espera: elegível para sair a partir de waitUntil
	waitUntil time.Time
	// início da janela de timeout da banda de inicialização
	windowStart time.Time
	// aviso de timeout fora da inicialização já emitido nesta entrada
	timeoutWarned bool
	// instante em que o pouso foi detectado
	landedAt time.Time

	// canais já disparados nesta sessão
	fired [models.ChannelCount]bool
	// fim do último pulso emitido; SafeAll no ABIT espera por ele
	pulseEnd time.Time
	// ABIT aguardando o fim do pulso para desarmar e encerrar
	safePending bool
}

func newContext(now time.Time) *Context {
	return &Context{
		State:          models.StateInitSeqIMU,
		Phase:          models.StateInitSeqIMU.Phase(),
		StateEntryTime: now,
		SequenceActive: true,
		windowStart:    now,
	}
}

// snapshot copia o contexto para leitura externa
func (c *Context) snapshot() models.Snapshot {
	var fired []models.Channel
	for ch, ok := range c.fired {
		if ok {
			fired = append(fired, models.Channel(ch))
		}
	}

	return models.Snapshot{
		State:          c.State,
		StateName:      c.State.String(),
		Phase:          c.Phase,
		PhaseName:      c.Phase.String(),
		StateEntryTime: c.StateEntryTime,
		RetryCount:     c.RetryCount,
		LaunchAltitude: c.LaunchAltitude,
		MaxAltitude:    c.MaxAltitude,
		ApogeeDetected: c.ApogeeDetected,
		Abort:          c.Abort,
		AbortReason:    c.AbortReason,
		SequenceActive: c.SequenceActive,
		Readiness:      c.Readiness,
		Fired:          fired,
		BlinkInterval:  c.Phase.BlinkInterval(),
		LandedAt:       c.landedAt,
	}
}
