package plc

import (
	"fmt"
	"sync"
	"time"

	"github.com/robinson/gos7"

	"rocket_go/internal/config"
	"rocket_go/pkg/logger"
	"rocket_go/pkg/utils"
)

var log = logger.For("plc")

// BlockIO é o acesso a um bloco de dados do PLC usado pelo atuador e pelo espelho
type BlockIO interface {
	ReadDB(dbNumber, offset, size int) ([]byte, error)
	WriteDB(dbNumber, offset int, data []byte) error
}

// S7Client encapsula a comunicação com o PLC S7 da bancada de ensaio
type S7Client struct {
	client       gos7.Client
	handler      *gos7.TCPClientHandler
	config       config.PLCConfig
	connected    bool
	lastError    error
	connectMutex sync.Mutex
}

// NewS7Client cria um novo cliente para PLC S7
func NewS7Client(cfg config.PLCConfig) *S7Client {
	return &S7Client{config: cfg}
}

// Connect estabelece conexão com o PLC
func (c *S7Client) Connect() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.connectLocked()
}

func (c *S7Client) connectLocked() error {
	if c.connected {
		return nil
	}

	if c.handler != nil {
		c.handler.Close()
	}

	handler := gos7.NewTCPClientHandler(c.config.Host, c.config.Rack, c.config.Slot)
	handler.Timeout = c.config.ReadTimeout
	handler.IdleTimeout = 70 * time.Second

	if err := handler.Connect(); err != nil {
		c.lastError = fmt.Errorf("erro ao conectar ao PLC: %w", err)
		log.Error("Falha ao conectar ao PLC", err)
		return c.lastError
	}

	c.handler = handler
	c.client = gos7.NewClient(handler)
	c.connected = true
	log.Infof("Conectado ao PLC em %s (Rack: %d, Slot: %d)", c.config.Host, c.config.Rack, c.config.Slot)
	return nil
}

// Disconnect fecha a conexão com o PLC
func (c *S7Client) Disconnect() {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if c.handler != nil {
		c.handler.Close()
		c.handler = nil
		c.client = nil
		c.connected = false
		log.Infof("Desconectado do PLC")
	}
}

// IsConnected verifica se o cliente está conectado
func (c *S7Client) IsConnected() bool {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.connected
}

// ReadDB lê size bytes de um bloco de dados, reconectando se preciso
func (c *S7Client) ReadDB(dbNumber, offset, size int) ([]byte, error) {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	buffer := make([]byte, size)
	if err := c.client.AGReadDB(dbNumber, offset, size, buffer); err != nil {
		c.connected = false
		c.lastError = fmt.Errorf("erro ao ler DB%d: %w", dbNumber, err)
		return nil, c.lastError
	}
	return buffer, nil
}

// WriteDB escreve bytes em um bloco de dados, reconectando se preciso
func (c *S7Client) WriteDB(dbNumber, offset int, data []byte) error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if err := c.connectLocked(); err != nil {
		return err
	}

	if err := c.client.AGWriteDB(dbNumber, offset, len(data), data); err != nil {
		c.connected = false
		c.lastError = fmt.Errorf("erro ao escrever DB%d: %w", dbNumber, err)
		return c.lastError
	}
	return nil
}

// GetLastError retorna o último erro ocorrido
func (c *S7Client) GetLastError() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()
	return c.lastError
}

// ReadBool lê um bit (BOOL) de um bloco
func ReadBool(io BlockIO, dbNumber, offset, bitIndex int) (bool, error) {
	if bitIndex < 0 || bitIndex > 7 {
		return false, fmt.Errorf("índice de bit inválido: %d (deve ser 0-7)", bitIndex)
	}

	data, err := io.ReadDB(dbNumber, offset, 1)
	if err != nil {
		return false, err
	}
	return data[0]&(1<<bitIndex) != 0, nil
}

// WriteBool escreve um bit (BOOL) preservando os demais bits do byte
func WriteBool(io BlockIO, dbNumber, offset, bitIndex int, value bool) error {
	if bitIndex < 0 || bitIndex > 7 {
		return fmt.Errorf("índice de bit inválido: %d (deve ser 0-7)", bitIndex)
	}

	data, err := io.ReadDB(dbNumber, offset, 1)
	if err != nil {
		return err
	}

	if value {
		data[0] |= 1 << bitIndex
	} else {
		data[0] &^= 1 << bitIndex
	}
	return io.WriteDB(dbNumber, offset, data)
}

// WriteReal escreve um REAL (float32 big-endian)
func WriteReal(io BlockIO, dbNumber, offset int, value float32) error {
	return io.WriteDB(dbNumber, offset, utils.Float32ToBytes(value))
}

// ReadReal lê um REAL (float32 big-endian)
func ReadReal(io BlockIO, dbNumber, offset int) (float32, error) {
	data, err := io.ReadDB(dbNumber, offset, 4)
	if err != nil {
		return 0, err
	}
	return utils.BytesToFloat32(data), nil
}
