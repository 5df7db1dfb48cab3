package dynamics

import "math"

// Limiares padrão de detecção de eventos de voo
const (
	LaunchAccelThresholdG    = 2.0  // G, comparação estrita
	MinimumFlightAltitudeM   = 30.0 // m
	ApogeeVelocityThreshold  = -2.0 // m/s
	LandingVelocityThreshold = 5.0  // m/s, em módulo
	LandingAccelThresholdG   = 1.5  // G
)

// Thresholds agrupa os limiares usados pelo detector
type Thresholds struct {
	LaunchAccelG      float64
	MinFlightAltitude float64
	ApogeeVelocity    float64
	LandingVelocity   float64
	LandingAccelG     float64
}

// DefaultThresholds retorna os limiares de voo padrão
func DefaultThresholds() Thresholds {
	return Thresholds{
		LaunchAccelG:      LaunchAccelThresholdG,
		MinFlightAltitude: MinimumFlightAltitudeM,
		ApogeeVelocity:    ApogeeVelocityThreshold,
		LandingVelocity:   LandingVelocityThreshold,
		LandingAccelG:     LandingAccelThresholdG,
	}
}

// Detector avalia os predicados de lançamento, apogeu e pouso.
// Os predicados são puros; quem registra a detecção é o sequenciador.
type Detector struct {
	t Thresholds
}

// NewDetector cria um detector com os limiares informados
func NewDetector(t Thresholds) Detector {
	return Detector{t: t}
}

// Thresholds retorna os limiares em uso
func (d Detector) Thresholds() Thresholds {
	return d.t
}

// LaunchDetected é verdadeiro quando a aceleração excede o limiar (estrito: 2.0 G exato não dispara)
func (d Detector) LaunchDetected(accelMagnitude float64) bool {
	return accelMagnitude > d.t.LaunchAccelG
}

// ApogeeDetected exige altitude acima do piso de voo e velocidade abaixo do limiar negativo
func (d Detector) ApogeeDetected(altitude, verticalVelocity float64) bool {
	return altitude > d.t.MinFlightAltitude && verticalVelocity < d.t.ApogeeVelocity
}

// LandingDetected exige velocidade e aceleração baixas
func (d Detector) LandingDetected(verticalVelocity, accelMagnitude float64) bool {
	return math.Abs(verticalVelocity) < d.t.LandingVelocity && accelMagnitude < d.t.LandingAccelG
}
