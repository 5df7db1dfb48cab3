package sensors

import (
	"fmt"
	"strconv"
	"strings"

	"rocket_go/internal/models"
	"rocket_go/pkg/logger"
	"rocket_go/pkg/utils"
)

// Blocos de resposta da bancada HIL. Formato de cada bloco:
//
//	<NOME> <escala IEEE-754 hex> <quantidade> <v1> ... <vn>
//
// Cada valor é um inteiro de 32 bits com sinal em hexadecimal,
// e o valor físico é inteiro × escala.
const (
	blockBaro  = "BARO" // temperatura, pressão, altitude
	blockIMU   = "IMU"  // ax, ay, az, gx, gy, gz
	blockGPS   = "GPS"  // lat, lon, alt, satélites, fix (escala só nos 3 primeiros)
	blockPower = "PWR"  // bateria de voo, bateria do payload
)

// tokenize remove STX/ETX e caracteres de controle e divide a resposta
func tokenize(response string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return ' '
		}
		return r
	}, response)
	return strings.Fields(cleaned)
}

// decodeBlock localiza o bloco e devolve os valores brutos e a escala
func decodeBlock(tokens []string, name string, want int) ([]int32, float64, error) {
	idx := -1
	for i, token := range tokens {
		if token == name {
			idx = i
			break
		}
	}
	if idx == -1 || idx+2 >= len(tokens) {
		return nil, 0, fmt.Errorf("bloco %s não encontrado ou formato inesperado: %w", name, ErrSensorFault)
	}

	scale, err := utils.HexStringToFloat32(tokens[idx+1])
	if err != nil {
		return nil, 0, fmt.Errorf("escala do bloco %s: %w", name, ErrSensorFault)
	}

	count, err := strconv.Atoi(tokens[idx+2])
	if err != nil || count < want {
		return nil, 0, fmt.Errorf("bloco %s com %s valores, esperado %d: %w", name, tokens[idx+2], want, ErrSensorFault)
	}
	if idx+2+want >= len(tokens) {
		return nil, 0, fmt.Errorf("bloco %s truncado: %w", name, ErrSensorFault)
	}

	values := make([]int32, want)
	for i := 0; i < want; i++ {
		v, err := utils.HexToInt32(tokens[idx+3+i])
		if err != nil {
			return nil, 0, fmt.Errorf("valor %d do bloco %s: %w", i+1, name, ErrSensorFault)
		}
		values[i] = v
	}

	logger.Debugf("Bloco %s: escala %g, valores %v", name, scale, values)
	return values, float64(scale), nil
}

// DecodeBaro decodifica o bloco BARO
func DecodeBaro(response string) (models.BaroReading, error) {
	v, scale, err := decodeBlock(tokenize(response), blockBaro, 3)
	if err != nil {
		return models.BaroReading{}, err
	}
	return models.BaroReading{
		Temperature: float64(v[0]) * scale,
		Pressure:    float64(v[1]) * scale,
		Altitude:    float64(v[2]) * scale,
	}, nil
}

// DecodeIMU decodifica o bloco IMU
func DecodeIMU(response string) (models.IMUReading, error) {
	v, scale, err := decodeBlock(tokenize(response), blockIMU, 6)
	if err != nil {
		return models.IMUReading{}, err
	}
	return models.IMUReading{
		AccelX: float64(v[0]) * scale,
		AccelY: float64(v[1]) * scale,
		AccelZ: float64(v[2]) * scale,
		GyroX:  float64(v[3]) * scale,
		GyroY:  float64(v[4]) * scale,
		GyroZ:  float64(v[5]) * scale,
	}, nil
}

// DecodeGPS decodifica o bloco GPS. Sem fix, a leitura é marcada inválida.
func DecodeGPS(response string) (models.GPSFix, error) {
	v, scale, err := decodeBlock(tokenize(response), blockGPS, 5)
	if err != nil {
		return models.GPSFix{}, err
	}
	return models.GPSFix{
		Latitude:   float64(v[0]) * scale,
		Longitude:  float64(v[1]) * scale,
		Altitude:   float64(v[2]) * scale,
		Satellites: int(v[3]),
		Valid:      v[4] != 0,
	}, nil
}

// DecodePower decodifica o bloco PWR
func DecodePower(response string) (models.PowerReading, error) {
	v, scale, err := decodeBlock(tokenize(response), blockPower, 2)
	if err != nil {
		return models.PowerReading{}, err
	}
	return models.PowerReading{
		BatteryVolts: float64(v[0]) * scale,
		PayloadVolts: float64(v[1]) * scale,
	}, nil
}
