// Package downlink envia a telemetria de voo para a estação em solo via MQTT.
package downlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"golang.org/x/time/rate"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
	"rocket_go/pkg/logger"
)

var log = logger.For("downlink")

// ErrOffline indica que o downlink não tem conexão com o broker
var ErrOffline = errors.New("downlink MQTT desconectado")

const (
	publishTimeout    = 2 * time.Second
	reconnectInterval = 5 * time.Second
)

// Tópicos publicados abaixo de <prefixo>/<sessão>/
const (
	TopicTelemetry  = "telemetry"
	TopicBurst      = "burst"
	TopicTransition = "transition"
	TopicState      = "state"
)

// Downlink publica registros, rajadas e transições em um broker MQTT.
// Os registros por tick passam por um limitador de taxa; rajadas e transições nunca são descartadas.
type Downlink struct {
	cfg       config.MQTTConfig
	sessionID string
	limiter   *rate.Limiter

	mu          sync.Mutex
	client      *paho.Client
	lastAttempt time.Time
	connected   atomic.Bool
	closed      atomic.Bool

	published atomic.Int64
	dropped   atomic.Int64
}

// New cria o downlink sem conectar
func New(cfg config.MQTTConfig, sessionID string) *Downlink {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Downlink{
		cfg:       cfg,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Limit(cfg.MaxRate), burst),
	}
}

// Topic monta o tópico completo de um tipo de mensagem
func (d *Downlink) Topic(kind string) string {
	return fmt.Sprintf("%s/%s/%s", d.cfg.TopicPrefix, d.sessionID, kind)
}

func (d *Downlink) clientID() string {
	if d.cfg.ClientID != "" {
		return d.cfg.ClientID
	}
	id := d.sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "rocket-fc-" + id
}

// Connect abre a conexão TCP e a sessão MQTT
func (d *Downlink) Connect(ctx context.Context) error {
	if !d.cfg.Enabled {
		return fmt.Errorf("downlink MQTT desabilitado por configuração")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectLocked(ctx)
}

func (d *Downlink) connectLocked(ctx context.Context) error {
	d.lastAttempt = time.Now()
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("erro ao conectar ao broker %s: %w", addr, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: d.clientID(),
		Conn:     conn,
		OnClientError: func(err error) {
			d.markDisconnected(err)
		},
		OnServerDisconnect: func(p *paho.Disconnect) {
			d.markDisconnected(fmt.Errorf("broker encerrou a sessão (código %d)", p.ReasonCode))
		},
	})

	keepAlive := uint16(d.cfg.KeepAlive / time.Second)
	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   d.clientID(),
		KeepAlive:  keepAlive,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("erro no handshake MQTT com %s: %w", addr, err)
	}
	if ack.ReasonCode != 0 {
		conn.Close()
		return fmt.Errorf("broker recusou a conexão (código %d)", ack.ReasonCode)
	}

	d.client = client
	d.connected.Store(true)
	log.Infof("Downlink MQTT conectado a %s (cliente %s)", addr, d.clientID())
	return nil
}

// markDisconnected é chamado também pelas goroutines do paho e não pode travar d.mu
func (d *Downlink) markDisconnected(err error) {
	if d.connected.Swap(false) {
		log.Warnf("Downlink MQTT perdido: %v", err)
	}
}

// IsConnected informa se há sessão ativa; desconectado, tenta reconectar no máximo a cada 5 s
func (d *Downlink) IsConnected() bool {
	if !d.cfg.Enabled || d.closed.Load() {
		return false
	}

	if d.connected.Load() {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected.Load() && time.Since(d.lastAttempt) >= reconnectInterval {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := d.connectLocked(ctx); err != nil {
			log.Debugf("Broker MQTT indisponível: %v", err)
		}
	}
	return d.connected.Load()
}

func (d *Downlink) publish(kind string, qos byte, retain bool, v interface{}) error {
	if !d.IsConnected() {
		return ErrOffline
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("erro ao serializar %s: %w", kind, err)
	}

	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return ErrOffline
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	_, err = client.Publish(ctx, &paho.Publish{
		QoS:     qos,
		Retain:  retain,
		Topic:   d.Topic(kind),
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
		},
	})
	if err != nil {
		d.markDisconnected(err)
		return fmt.Errorf("erro ao publicar %s: %w", kind, err)
	}
	d.published.Add(1)
	return nil
}

// Name implementa telemetry.Sink
func (d *Downlink) Name() string { return "mqtt" }

// Append implementa telemetry.Sink; registros acima da taxa configurada são descartados
func (d *Downlink) Append(record models.TelemetryRecord) error {
	if !d.limiter.Allow() {
		d.dropped.Add(1)
		return nil
	}
	return d.publish(TopicTelemetry, 0, false, record)
}

// PublishBurst envia uma rajada de telemetria crítica (QoS 1)
func (d *Downlink) PublishBurst(b models.TelemetryBurst) error {
	return d.publish(TopicBurst, 1, false, b)
}

// PublishTransition envia a transição e atualiza o estado retido do tópico state
func (d *Downlink) PublishTransition(tr models.Transition) error {
	if err := d.publish(TopicTransition, 1, false, tr); err != nil {
		return err
	}
	return d.publish(TopicState, 1, true, map[string]interface{}{
		"state":     tr.ToName,
		"phase":     tr.PhaseName,
		"abort":     tr.Abort,
		"timestamp": tr.Timestamp,
	})
}

// Stats retorna o total publicado e o total descartado pelo limitador
func (d *Downlink) Stats() (published, dropped int64) {
	return d.published.Load(), d.dropped.Load()
}

// Close encerra a sessão MQTT
func (d *Downlink) Close() error {
	d.closed.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	err := d.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	d.client = nil
	d.connected.Store(false)
	if err != nil {
		return fmt.Errorf("erro ao encerrar sessão MQTT: %w", err)
	}
	log.Infof("Downlink MQTT encerrado")
	return nil
}
