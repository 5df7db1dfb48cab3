package sensors

import (
	"context"
	"errors"
	"sync"
	"time"

	"rocket_go/internal/models"
)

var (
	// ErrSensorFault indica leitura inválida ou ausente de um sensor
	ErrSensorFault = errors.New("falha de sensor")
	// ErrNotConnected indica que a bancada HIL não está conectada
	ErrNotConnected = errors.New("sensor não conectado")
)

// Barometer fornece temperatura, pressão e altitude barométrica
type Barometer interface {
	ReadBaro(ctx context.Context) (models.BaroReading, error)
}

// IMU fornece aceleração (G) e rotação (°/s) em 3 eixos
type IMU interface {
	ReadIMU(ctx context.Context) (models.IMUReading, error)
}

// GPSReceiver fornece a última posição do GPS
type GPSReceiver interface {
	ReadGPS(ctx context.Context) (models.GPSFix, error)
}

// PowerMonitor fornece as tensões das baterias de voo e de payload
type PowerMonitor interface {
	ReadPower(ctx context.Context) (models.PowerReading, error)
}

// Suite reúne todas as capacidades de sensoriamento do computador de voo
type Suite interface {
	Barometer
	IMU
	GPSReceiver
	PowerMonitor
}

// Clock fornece o instante atual. O loop de voo e o simulador
// compartilham o mesmo relógio para que o perfil seja determinístico.
type Clock interface {
	Now() time.Time
}

// SystemClock usa o relógio do sistema
type SystemClock struct{}

// Now retorna time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// VirtualClock é um relógio avançado manualmente (simulação headless e testes)
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock cria um relógio virtual parado em start
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now retorna o instante virtual atual
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance avança o relógio em d e retorna o novo instante
func (c *VirtualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
