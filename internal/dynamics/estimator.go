package dynamics

import (
	"math"
	"time"

	"rocket_go/internal/models"
)

// DefaultVelocityWindow é a janela padrão da diferença finita de altitude
const DefaultVelocityWindow = 1000 * time.Millisecond

// Estimator deriva velocidade vertical e módulo da aceleração das amostras.
// Não é seguro para uso concorrente: pertence ao loop de voo.
type Estimator struct {
	window time.Duration

	primed         bool
	lastAltitude   float64
	lastUpdateTime time.Time
	velocity       float64
}

// NewEstimator cria um estimador com a janela de atualização informada
func NewEstimator(window time.Duration) *Estimator {
	if window <= 0 {
		window = DefaultVelocityWindow
	}
	return &Estimator{window: window}
}

// Window retorna a janela de atualização da velocidade
func (e *Estimator) Window() time.Duration {
	return e.window
}

// VerticalVelocity atualiza a velocidade vertical se a janela já passou
// desde a última atualização; caso contrário devolve o valor anterior.
// A primeira chamada apenas fixa a referência e devolve 0.
func (e *Estimator) VerticalVelocity(sample models.FlightSample) float64 {
	if !e.primed {
		e.primed = true
		e.lastAltitude = sample.Altitude
		e.lastUpdateTime = sample.Timestamp
		return e.velocity
	}

	elapsed := sample.Timestamp.Sub(e.lastUpdateTime)
	if elapsed < e.window {
		return e.velocity
	}

	e.velocity = (sample.Altitude - e.lastAltitude) / elapsed.Seconds()
	e.lastAltitude = sample.Altitude
	e.lastUpdateTime = sample.Timestamp
	return e.velocity
}

// LastUpdate retorna o instante da última atualização da velocidade
func (e *Estimator) LastUpdate() time.Time {
	return e.lastUpdateTime
}

// Update calcula todos os sinais derivados do tick
func (e *Estimator) Update(sample models.FlightSample) models.DerivedSignals {
	v := e.VerticalVelocity(sample)
	return models.DerivedSignals{
		VerticalVelocity:      v,
		AccelerationMagnitude: AccelerationMagnitude(sample),
		VelocityUpdatedAt:     e.lastUpdateTime,
	}
}

// Reset descarta a referência de altitude
func (e *Estimator) Reset() {
	e.primed = false
	e.velocity = 0
	e.lastAltitude = 0
	e.lastUpdateTime = time.Time{}
}

// AccelerationMagnitude retorna a norma euclidiana da aceleração em 3 eixos (G)
func AccelerationMagnitude(sample models.FlightSample) float64 {
	return math.Sqrt(sample.AccelX*sample.AccelX +
		sample.AccelY*sample.AccelY +
		sample.AccelZ*sample.AccelZ)
}
