package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"rocket_go/internal/config"
	"rocket_go/pkg/logger"
)

// reconnectInterval limita as tentativas de reconexão feitas por IsConnected
const reconnectInterval = 5 * time.Second

// Client encapsula a conexão com o Redis, o prefixo de chaves e a reconexão
type Client struct {
	client *redis.Client
	ctx    context.Context
	prefix string
	config config.RedisConfig

	mutex       sync.Mutex
	connected   bool
	lastAttempt time.Time
}

// NewClient cria um novo cliente Redis (sem conectar)
func NewClient(cfg config.RedisConfig) *Client {
	c := &Client{
		ctx:    context.Background(),
		config: cfg,
		prefix: cfg.Prefix,
	}

	if !cfg.Enabled {
		logger.Info("Cliente Redis desabilitado por configuração")
		return c
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	return c
}

// Connect testa a conexão com ping
func (c *Client) Connect() error {
	if !c.config.Enabled {
		return fmt.Errorf("cliente Redis desabilitado por configuração")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pingLocked(5 * time.Second)
}

func (c *Client) pingLocked(timeout time.Duration) error {
	c.lastAttempt = time.Now()

	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		c.connected = false
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	if !c.connected {
		logger.Infof("Conexão estabelecida com Redis em %s:%d", c.config.Host, c.config.Port)
	}
	c.connected = true
	return nil
}

// IsConnected informa se há conexão; desconectado, tenta reconectar no máximo a cada 5 s
func (c *Client) IsConnected() bool {
	if !c.config.Enabled || c.client == nil {
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.connected && time.Since(c.lastAttempt) >= reconnectInterval {
		if err := c.pingLocked(time.Second); err != nil {
			logger.Debugf("Redis indisponível: %v", err)
		}
	}
	return c.connected
}

// MarkDisconnected registra uma falha de escrita; a próxima verificação tenta reconectar
func (c *Client) MarkDisconnected(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.connected {
		logger.Warnf("Conexão com Redis perdida: %v", err)
	}
	c.connected = false
	c.lastAttempt = time.Now()
}

// Close fecha a conexão com o Redis
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("erro ao fechar conexão Redis: %w", err)
	}
	c.connected = false
	logger.Info("Conexão com Redis fechada")
	return nil
}

// Pipeline cria uma nova pipeline de comandos Redis
func (c *Client) Pipeline() redis.Pipeliner {
	return c.client.Pipeline()
}

// Raw retorna o cliente go-redis subjacente
func (c *Client) Raw() *redis.Client {
	return c.client
}

// Context retorna o contexto base do cliente
func (c *Client) Context() context.Context {
	return c.ctx
}

// FormatKey formata uma chave com o prefixo configurado
func (c *Client) FormatKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}
