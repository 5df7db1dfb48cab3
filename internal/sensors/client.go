package sensors

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"rocket_go/internal/models"
	"rocket_go/pkg/logger"
)

const (
	stx = 0x02
	etx = 0x03
)

var log = logger.For("sensors")

// Client lê os sensores de uma bancada hardware-in-the-loop via TCP.
// Cada leitura envia "\x02sRN <BLOCO>\x03" e aguarda um quadro
// "\x02sRA <BLOCO> ...\x03" dentro do prazo do contexto.
type Client struct {
	host        string
	port        int
	readTimeout time.Duration

	mutex     sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

// NewClient cria o cliente da bancada HIL
func NewClient(host string, port int, readTimeout time.Duration) *Client {
	if readTimeout <= 0 {
		readTimeout = 50 * time.Millisecond
	}
	return &Client{
		host:        host,
		port:        port,
		readTimeout: readTimeout,
	}
}

// Connect estabelece conexão com a bancada
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.connected {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	log.Infof("Conectando à bancada HIL em %s...", addr)

	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("erro ao conectar à bancada HIL: %w", ErrNotConnected)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true
	log.Infof("Conectado à bancada HIL em %s", addr)
	return nil
}

// SendCommand envia um comando enquadrado e lê o quadro de resposta
func (c *Client) SendCommand(ctx context.Context, cmd string) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)

	if _, err := c.conn.Write([]byte(fmt.Sprintf("%c%s%c", stx, cmd, etx))); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("erro ao enviar comando %q: %w", cmd, err)
	}

	frame, err := c.reader.ReadString(etx)
	if err != nil {
		c.dropLocked()
		return "", fmt.Errorf("erro ao ler resposta de %q: %w", cmd, err)
	}
	return frame, nil
}

// dropLocked descarta a conexão; a próxima leitura tenta reconectar
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
	c.connected = false
}

// IsConnected verifica se o cliente está conectado
func (c *Client) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

// Close fecha a conexão com a bancada
func (c *Client) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn != nil {
		c.dropLocked()
		log.Infof("Conexão com a bancada HIL fechada")
	}
}

func (c *Client) read(ctx context.Context, block string) (string, error) {
	return c.SendCommand(ctx, "sRN "+block)
}

// ReadBaro implementa Barometer
func (c *Client) ReadBaro(ctx context.Context) (models.BaroReading, error) {
	resp, err := c.read(ctx, blockBaro)
	if err != nil {
		return models.BaroReading{}, err
	}
	return DecodeBaro(resp)
}

// ReadIMU implementa IMU
func (c *Client) ReadIMU(ctx context.Context) (models.IMUReading, error) {
	resp, err := c.read(ctx, blockIMU)
	if err != nil {
		return models.IMUReading{}, err
	}
	return DecodeIMU(resp)
}

// ReadGPS implementa GPSReceiver
func (c *Client) ReadGPS(ctx context.Context) (models.GPSFix, error) {
	resp, err := c.read(ctx, blockGPS)
	if err != nil {
		return models.GPSFix{}, err
	}
	return DecodeGPS(resp)
}

// ReadPower implementa PowerMonitor
func (c *Client) ReadPower(ctx context.Context) (models.PowerReading, error) {
	resp, err := c.read(ctx, blockPower)
	if err != nil {
		return models.PowerReading{}, err
	}
	return DecodePower(resp)
}
