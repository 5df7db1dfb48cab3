package plc

import (
	"sync"
	"time"

	"rocket_go/internal/models"
)

// Mapa do bloco de dados da bancada (DB configurável, padrão DB10)
const (
	offsetPyro    = 0 // bits 0-4: canais pirotécnicos (índice = models.Channel)
	offsetControl = 1 // bit 0: chave de aborto (entrada), bit 1: alimentação do payload
	bitAbort      = 0
	bitPayload    = 1
)

// Actuator aciona os canais da bancada de ensaio através de bits do PLC
type Actuator struct {
	io         BlockIO
	dbNumber   int
	pulseWidth time.Duration

	mu     sync.Mutex
	timers [models.ChannelCount]*time.Timer
}

// NewActuator cria o atuador sobre um bloco de dados do PLC
func NewActuator(io BlockIO, dbNumber int, pulseWidth time.Duration) *Actuator {
	return &Actuator{io: io, dbNumber: dbNumber, pulseWidth: pulseWidth}
}

// Fire liga o bit do canal e agenda o desligamento ao fim do pulso
func (a *Actuator) Fire(ch models.Channel) bool {
	if int(ch) < 0 || int(ch) >= models.ChannelCount {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := WriteBool(a.io, a.dbNumber, offsetPyro, int(ch), true); err != nil {
		log.Errorf("Falha ao acionar canal %s: %v", ch, err)
		return false
	}

	if t := a.timers[ch]; t != nil {
		t.Stop()
	}
	a.timers[ch] = time.AfterFunc(a.pulseWidth, func() { a.endPulse(ch) })
	log.Infof("Canal %s acionado por %v", ch, a.pulseWidth)
	return true
}

func (a *Actuator) endPulse(ch models.Channel) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.timers[ch] = nil
	if err := WriteBool(a.io, a.dbNumber, offsetPyro, int(ch), false); err != nil {
		log.Errorf("Falha ao encerrar pulso do canal %s: %v", ch, err)
	}
}

// SafeAll zera todos os canais e cancela pulsos pendentes
func (a *Actuator) SafeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, t := range a.timers {
		if t != nil {
			t.Stop()
			a.timers[i] = nil
		}
	}
	if err := a.io.WriteDB(a.dbNumber, offsetPyro, []byte{0}); err != nil {
		log.Errorf("Falha ao desarmar canais: %v", err)
	}
}

// PulseWidth retorna a duração dos pulsos
func (a *Actuator) PulseWidth() time.Duration {
	return a.pulseWidth
}

// ReadAbortSwitch lê a chave de aborto; falha de leitura conta como chave solta
func (a *Actuator) ReadAbortSwitch() bool {
	on, err := ReadBool(a.io, a.dbNumber, offsetControl, bitAbort)
	if err != nil {
		log.Debugf("Falha ao ler chave de aborto: %v", err)
		return false
	}
	return on
}

// SetPayloadPower liga ou desliga a alimentação do payload
func (a *Actuator) SetPayloadPower(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := WriteBool(a.io, a.dbNumber, offsetControl, bitPayload, on); err != nil {
		log.Errorf("Falha ao alterar alimentação do payload: %v", err)
	}
}
