package sensors

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
)

const gravity = 9.80665 // m/s²

// Capability identifica uma fonte de dados do simulador para injeção de falhas
type Capability string

const (
	CapabilityBaro  Capability = "baro"
	CapabilityIMU   Capability = "imu"
	CapabilityGPS   Capability = "gps"
	CapabilityPower Capability = "power"
)

// Simulator gera um perfil de voo balístico de um estágio:
// espera no pad, queima com empuxo constante, coast até o apogeu,
// queda livre até a velocidade de descida e descida constante até o solo.
type Simulator struct {
	cfg   config.SimulationConfig
	clock Clock
	start time.Time

	// perfil derivado
	netAccel     float64 // m/s² líquidos durante a queima
	burnoutVel   float64
	burnoutAlt   float64
	apogeeAGL    float64
	coastTime    time.Duration
	fallTime     time.Duration
	fallDistance float64

	mu           sync.Mutex
	faults       map[Capability]error
	batteryVolts float64
	payloadVolts float64
	payloadPower bool
}

// NewSimulator cria o simulador. O perfil começa no instante atual do relógio.
func NewSimulator(cfg config.SimulationConfig, clock Clock) *Simulator {
	if clock == nil {
		clock = SystemClock{}
	}

	s := &Simulator{
		cfg:          cfg,
		clock:        clock,
		start:        clock.Now(),
		faults:       make(map[Capability]error),
		batteryVolts: cfg.BatteryVolts,
		payloadVolts: cfg.PayloadVolts,
	}
	s.solveProfile()
	return s
}

// solveProfile encontra a aceleração líquida de queima que leva ao apogeu alvo.
// Com queima tb e aceleração a: apogeu = a·tb²/2 + (a·tb)²/(2g).
func (s *Simulator) solveProfile() {
	tb := s.cfg.BurnTime.Seconds()
	h := s.cfg.TargetApogee
	if tb <= 0 || h <= 0 {
		return
	}

	qa := tb * tb / (2 * gravity)
	qb := tb * tb / 2
	s.netAccel = (-qb + math.Sqrt(qb*qb+4*qa*h)) / (2 * qa)
	s.burnoutVel = s.netAccel * tb
	s.burnoutAlt = s.netAccel * tb * tb / 2
	s.apogeeAGL = s.burnoutAlt + s.burnoutVel*s.burnoutVel/(2*gravity)
	s.coastTime = time.Duration(s.burnoutVel / gravity * float64(time.Second))

	descent := math.Abs(s.cfg.DescentRate)
	s.fallTime = time.Duration(descent / gravity * float64(time.Second))
	s.fallDistance = descent * descent / (2 * gravity)
}

// ApogeeAGL retorna o apogeu previsto acima do pad
func (s *Simulator) ApogeeAGL() float64 {
	return s.apogeeAGL
}

// LaunchTime retorna o instante de ignição simulado
func (s *Simulator) LaunchTime() time.Time {
	return s.start.Add(s.cfg.PadTime)
}

// kinematics retorna altitude AGL, velocidade vertical e aceleração
// medida (G, eixo Z) no tempo t após a ignição
func (s *Simulator) kinematics(t time.Duration) (alt, vel, accelG float64) {
	if t < 0 {
		return 0, 0, 1.0
	}

	sec := t.Seconds()
	tb := s.cfg.BurnTime.Seconds()

	// Queima: o acelerômetro lê o empuxo nominal
	if t < s.cfg.BurnTime {
		return s.netAccel * sec * sec / 2, s.netAccel * sec, s.cfg.ThrustG
	}

	// Coast até o apogeu: queda livre, acelerômetro em ~0 G
	tc := sec - tb
	if t < s.cfg.BurnTime+s.coastTime {
		return s.burnoutAlt + s.burnoutVel*tc - gravity*tc*tc/2, s.burnoutVel - gravity*tc, 0
	}

	// Após o apogeu: queda livre até atingir a velocidade de descida
	td := tc - s.coastTime.Seconds()
	if td < s.fallTime.Seconds() {
		return s.apogeeAGL - gravity*td*td/2, -gravity * td, 0
	}

	// Descida constante, 1 G medido
	descent := math.Abs(s.cfg.DescentRate)
	tf := td - s.fallTime.Seconds()
	alt = s.apogeeAGL - s.fallDistance - descent*tf
	if alt <= 0 {
		return 0, 0, 1.0
	}
	return alt, -descent, 1.0
}

func (s *Simulator) sinceLaunch() time.Duration {
	return s.clock.Now().Sub(s.LaunchTime())
}

func (s *Simulator) fault(c Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.faults[c]; ok {
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// InjectFault faz a capacidade retornar err até ClearFault
func (s *Simulator) InjectFault(c Capability, err error) {
	if err == nil {
		err = ErrSensorFault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[c] = err
}

// ClearFault remove a falha injetada na capacidade
func (s *Simulator) ClearFault(c Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, c)
}

// SetBatteryVolts altera a tensão simulada da bateria de voo
func (s *Simulator) SetBatteryVolts(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batteryVolts = v
}

// SetPayloadVolts altera a tensão simulada da bateria do payload
func (s *Simulator) SetPayloadVolts(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloadVolts = v
}

// SetPayloadPower liga ou desliga a alimentação simulada do payload
func (s *Simulator) SetPayloadPower(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloadPower = on
}

// ReadBaro implementa Barometer com atmosfera padrão sobre a altitude do pad
func (s *Simulator) ReadBaro(ctx context.Context) (models.BaroReading, error) {
	if err := ctx.Err(); err != nil {
		return models.BaroReading{}, err
	}
	if err := s.fault(CapabilityBaro); err != nil {
		return models.BaroReading{}, err
	}

	agl, _, _ := s.kinematics(s.sinceLaunch())
	alt := s.cfg.PadAltitude + agl
	tempK := 288.15 - 0.0065*alt
	return models.BaroReading{
		Temperature: tempK - 273.15,
		Pressure:    1013.25 * math.Pow(tempK/288.15, 5.25588),
		Altitude:    alt,
	}, nil
}

// ReadIMU implementa IMU com o eixo Z alinhado ao eixo do foguete
func (s *Simulator) ReadIMU(ctx context.Context) (models.IMUReading, error) {
	if err := ctx.Err(); err != nil {
		return models.IMUReading{}, err
	}
	if err := s.fault(CapabilityIMU); err != nil {
		return models.IMUReading{}, err
	}

	_, _, accel := s.kinematics(s.sinceLaunch())
	return models.IMUReading{AccelZ: accel}, nil
}

// ReadGPS implementa GPSReceiver com posição fixa e altitude MSL
func (s *Simulator) ReadGPS(ctx context.Context) (models.GPSFix, error) {
	if err := ctx.Err(); err != nil {
		return models.GPSFix{}, err
	}
	if err := s.fault(CapabilityGPS); err != nil {
		return models.GPSFix{}, err
	}

	agl, _, _ := s.kinematics(s.sinceLaunch())
	return models.GPSFix{
		Latitude:   s.cfg.Latitude,
		Longitude:  s.cfg.Longitude,
		Altitude:   s.cfg.PadAltitude + agl,
		Satellites: 8,
		Valid:      true,
	}, nil
}

// ReadPower implementa PowerMonitor. Sem alimentação, o payload lê 0 V.
func (s *Simulator) ReadPower(ctx context.Context) (models.PowerReading, error) {
	if err := ctx.Err(); err != nil {
		return models.PowerReading{}, err
	}
	if err := s.fault(CapabilityPower); err != nil {
		return models.PowerReading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reading := models.PowerReading{BatteryVolts: s.batteryVolts}
	if s.payloadPower {
		reading.PayloadVolts = s.payloadVolts
	}
	return reading, nil
}
