package websocket

import (
	"encoding/json"
	"time"

	"rocket_go/internal/models"
)

// Tipos de mensagem enviados aos clientes
const (
	TypeSample     = "sample"
	TypeBurst      = "burst"
	TypeTransition = "transition"
	TypeAbort      = "abort"
	TypeStatus     = "status"
	TypeWelcome    = "welcome"
	TypePong       = "pong"
	TypePing       = "ping"
	TypeError      = "error"
	TypeAck        = "ack"
)

func header(kind string) models.WebSocketMessage {
	return models.WebSocketMessage{Type: kind, Timestamp: time.Now()}
}

// NewSampleMessage cria a mensagem de amostra do tick
func NewSampleMessage(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) *models.SampleMessage {
	return &models.SampleMessage{
		WebSocketMessage: header(TypeSample),
		Sample:           sample,
		Derived:          derived,
		State:            snap.StateName,
		Phase:            snap.PhaseName,
	}
}

// NewBurstMessage cria a mensagem de rajada de telemetria crítica
func NewBurstMessage(b models.TelemetryBurst) *models.BurstMessage {
	return &models.BurstMessage{WebSocketMessage: header(TypeBurst), Burst: b}
}

// NewTransitionMessage cria a mensagem de transição; transições para aborto usam o tipo "abort"
func NewTransitionMessage(tr models.Transition) *models.TransitionMessage {
	kind := TypeTransition
	if tr.Abort && tr.To == models.StateKillAll {
		kind = TypeAbort
	}
	return &models.TransitionMessage{WebSocketMessage: header(kind), Transition: tr}
}

// NewStatusMessage cria a mensagem com o snapshot do sequenciador
func NewStatusMessage(snap models.Snapshot) *models.StatusMessage {
	return &models.StatusMessage{WebSocketMessage: header(TypeStatus), Snapshot: snap}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	msg := header(TypeError)
	msg.Error = message
	msg.Data = map[string]string{"code": errorCode}
	return msg
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: header(TypePong),
		Time:             pingTime,
		ServerTime:       time.Now().UnixNano() / int64(time.Millisecond),
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	err := json.Unmarshal(data, &command)
	return command, err
}

// paramString extrai um parâmetro textual de um comando
func paramString(params interface{}, key string) string {
	if m, ok := params.(map[string]interface{}); ok {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}
