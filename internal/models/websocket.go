package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "sample", "burst", "transition", "abort", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// SampleMessage leva a amostra do tick e os sinais derivados
type SampleMessage struct {
	WebSocketMessage
	Sample  FlightSample   `json:"sample"`
	Derived DerivedSignals `json:"derived"`
	State   string         `json:"state"`
	Phase   string         `json:"phase"`
}

// BurstMessage leva uma rajada de telemetria crítica
type BurstMessage struct {
	WebSocketMessage
	Burst TelemetryBurst `json:"burst"`
}

// TransitionMessage notifica uma mudança de estado
type TransitionMessage struct {
	WebSocketMessage
	Transition Transition `json:"transition"`
}

// StatusMessage leva o snapshot atual do sequenciador
type StatusMessage struct {
	WebSocketMessage
	Snapshot Snapshot `json:"snapshot"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // Tipo de comando: "ping", "get_status", "abort"
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command   string      `json:"command"`
	Params    interface{} `json:"params,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	ClientID  string      `json:"-"` // Usado internamente, não enviado no JSON
}

// PingMessage representa um ping enviado pelo servidor
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
