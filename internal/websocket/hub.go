package websocket

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rocket_go/internal/models"
	"rocket_go/pkg/logger"
)

var log = logger.For("websocket")

// Controller é o lado do computador de voo que atende os comandos dos clientes
type Controller interface {
	Snapshot() models.Snapshot
	RequestAbort(source string)
}

// Hub gerencia todas as conexões WebSocket e a distribuição da telemetria.
// Nenhum método de broadcast bloqueia quem chama: o loop de voo nunca espera por clientes lentos.
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	commands   chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	controller   Controller
	controlLock  sync.RWMutex
	sampleLimit  *rate.Limiter
	droppedTotal int64

	stats struct {
		totalMessages      int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria o hub; sampleHz limita a taxa de amostras enviadas (0 desativa o limite)
func NewHub(sampleHz float64) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	limit := rate.Inf
	if sampleHz > 0 {
		limit = rate.Limit(sampleHz)
	}

	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 256),
		commands:    make(chan models.ClientCommand, 100),
		sampleLimit: rate.NewLimiter(limit, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
	h.stats.lastStatsReset = time.Now()
	return h
}

// SetController associa o computador de voo que responde get_status e abort
func (h *Hub) SetController(c Controller) {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	h.controller = c
}

func (h *Hub) getController() Controller {
	h.controlLock.RLock()
	defer h.controlLock.RUnlock()
	return h.controller
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	log.Infof("Iniciando WebSocket Hub")

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			log.Infof("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			log.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.RLock()
			deadClients := make([]*Client, 0, 4)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				log.Warnf("Cliente %s não acompanha a telemetria, desconectando", client.id)
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.logStats()
		}
	}
}

func (h *Hub) logStats() {
	h.statsLock.Lock()
	elapsed := time.Since(h.stats.lastStatsReset).Seconds()
	if elapsed > 0 {
		h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
	}
	h.stats.messagesSinceReset = 0
	h.stats.lastStatsReset = time.Now()
	mps := h.stats.messagesPerSecond
	total := h.stats.totalMessages
	dropped := h.droppedTotal
	h.statsLock.Unlock()

	log.Infof("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens, %d descartadas",
		h.ClientCount(), mps, total, dropped)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		log.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) submitCommand(cmd models.ClientCommand) {
	select {
	case h.commands <- cmd:
	default:
		log.Warnf("Fila de comandos cheia, descartando %s do cliente %s", cmd.Command, cmd.ClientID)
	}
}

// publish coloca a mensagem na fila de broadcast sem bloquear
func (h *Hub) publish(kind string, message interface{}) {
	if h.ClientCount() == 0 {
		return
	}

	data, err := SerializeMessage(message)
	if err != nil {
		log.Error("Erro ao serializar mensagem "+kind, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.statsLock.Lock()
		h.droppedTotal++
		h.statsLock.Unlock()
	}
}

// BroadcastSample envia a amostra do tick, limitada à taxa configurada
func (h *Hub) BroadcastSample(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) {
	if !h.sampleLimit.Allow() {
		return
	}
	h.publish(TypeSample, NewSampleMessage(sample, derived, snap))
}

// BroadcastBurst envia uma rajada de telemetria crítica
func (h *Hub) BroadcastBurst(b models.TelemetryBurst) {
	h.publish(TypeBurst, NewBurstMessage(b))
}

// BroadcastTransition notifica uma mudança de estado
func (h *Hub) BroadcastTransition(tr models.Transition) {
	h.publish(TypeTransition, NewTransitionMessage(tr))
}

// BroadcastStatus envia o snapshot atual do sequenciador
func (h *Hub) BroadcastStatus(snap models.Snapshot) {
	h.publish(TypeStatus, NewStatusMessage(snap))
}

// handleClientCommand processa comandos encaminhados pelos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	log.Infof("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	controller := h.getController()
	if controller == nil {
		h.sendMessage(client, NewErrorMessage("Computador de voo indisponível", "unavailable"))
		return
	}

	switch cmd.Command {
	case "get_status":
		h.sendMessage(client, NewStatusMessage(controller.Snapshot()))
	case "abort":
		source := "websocket:" + cmd.ClientID
		if reason := paramString(cmd.Params, "reason"); reason != "" {
			source += " (" + reason + ")"
		}
		controller.RequestAbort(source)

		ack := header(TypeAck)
		ack.Data = map[string]string{"command": "abort", "requestId": cmd.RequestID}
		h.sendMessage(client, ack)
	default:
		log.Warnf("Comando desconhecido: %s", cmd.Command)
	}
}

func (h *Hub) sendMessage(client *Client, message interface{}) {
	if data, err := SerializeMessage(message); err == nil {
		h.sendTo(client, data)
	}
}

// sendTo envia para um único cliente, ignorando clientes já removidos
func (h *Hub) sendTo(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Warnf("Buffer do cliente %s cheio, mensagem descartada", client.id)
	}
}

// sendInitialDataToClient envia boas-vindas e o status atual para um novo cliente
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := header(TypeWelcome)
	welcome.Data = map[string]interface{}{
		"message":  "Conectado ao computador de voo",
		"clientId": client.id,
	}
	h.sendMessage(client, welcome)

	if controller := h.getController(); controller != nil {
		h.sendMessage(client, NewStatusMessage(controller.Snapshot()))
	}
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Infof("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}
