package sequencer

import (
	"sync"
	"time"

	"rocket_go/internal/models"
	"rocket_go/internal/sensors"
)

// Actuator é o contrato com o hardware de atuação
type Actuator interface {
	// Fire pulsa o canal pelo tempo configurado e informa se o pulso foi emitido
	Fire(ch models.Channel) bool
	// SafeAll leva todos os canais ao nível inativo (idempotente)
	SafeAll()
	// ReadAbortSwitch lê a chave física de aborto
	ReadAbortSwitch() bool
	// SetPayloadPower liga ou desliga a alimentação do payload
	SetPayloadPower(on bool)
	// PulseWidth é a duração de cada pulso emitido por Fire
	PulseWidth() time.Duration
}

// SimActuator é um atuador em memória para simulação e testes.
// O nível de um canal fica ativo até o fim do pulso ou até SafeAll.
type SimActuator struct {
	mu          sync.Mutex
	clock       sensors.Clock
	pulseWidth  time.Duration
	activeUntil [models.ChannelCount]time.Time
	fireCount   [models.ChannelCount]int
	failing     [models.ChannelCount]bool
	abortSwitch bool
	payloadOn   bool
	safeCalls   int

	onPayloadPower func(on bool)
}

// NewSimActuator cria o atuador simulado
func NewSimActuator(clock sensors.Clock, pulseWidth time.Duration) *SimActuator {
	if clock == nil {
		clock = sensors.SystemClock{}
	}
	return &SimActuator{clock: clock, pulseWidth: pulseWidth}
}

// OnPayloadPower registra quem deve ser avisado da alimentação do payload
// (no modo simulado, o próprio simulador de sensores)
func (a *SimActuator) OnPayloadPower(fn func(on bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPayloadPower = fn
}

// Fire implementa Actuator
func (a *SimActuator) Fire(ch models.Channel) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(ch) < 0 || int(ch) >= models.ChannelCount || a.failing[ch] {
		return false
	}
	a.fireCount[ch]++
	a.activeUntil[ch] = a.clock.Now().Add(a.pulseWidth)
	return true
}

// SafeAll implementa Actuator
func (a *SimActuator) SafeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.activeUntil {
		a.activeUntil[i] = time.Time{}
	}
	a.safeCalls++
}

// PulseWidth implementa Actuator
func (a *SimActuator) PulseWidth() time.Duration {
	return a.pulseWidth
}

// ReadAbortSwitch implementa Actuator
func (a *SimActuator) ReadAbortSwitch() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.abortSwitch
}

// SetPayloadPower implementa Actuator
func (a *SimActuator) SetPayloadPower(on bool) {
	a.mu.Lock()
	a.payloadOn = on
	fn := a.onPayloadPower
	a.mu.Unlock()

	if fn != nil {
		fn(on)
	}
}

// SetAbortSwitch aciona ou libera a chave de aborto simulada
func (a *SimActuator) SetAbortSwitch(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abortSwitch = on
}

// FailChannel faz os próximos disparos do canal falharem
func (a *SimActuator) FailChannel(ch models.Channel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failing[ch] = true
}

// FireCount retorna quantas vezes o canal foi pulsado
func (a *SimActuator) FireCount(ch models.Channel) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fireCount[ch]
}

// ChannelLevels retorna o nível atual de cada canal
func (a *SimActuator) ChannelLevels() [models.ChannelCount]bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	var levels [models.ChannelCount]bool
	now := a.clock.Now()
	for i, until := range a.activeUntil {
		levels[i] = now.Before(until)
	}
	return levels
}

// PayloadPowered indica se o payload está alimentado
func (a *SimActuator) PayloadPowered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payloadOn
}

// SafeCalls retorna quantas vezes SafeAll foi chamado
func (a *SimActuator) SafeCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.safeCalls
}
