package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Modos de sensores e de atuação
const (
	SensorModeSim    = "sim"
	SensorModeHIL    = "hil"
	ActuationModeSim = "sim"
	ActuationModePLC = "plc"
)

// Config representa a configuração completa do computador de voo
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Sequencer SequencerConfig `json:"sequencer" yaml:"sequencer"`
	Dynamics  DynamicsConfig  `json:"dynamics" yaml:"dynamics"`
	Sensors   SensorsConfig   `json:"sensors" yaml:"sensors"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Actuation ActuationConfig `json:"actuation" yaml:"actuation"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	PLC       PLCConfig       `json:"plc" yaml:"plc"`
	MQTT      MQTTConfig      `json:"mqtt" yaml:"mqtt"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket da estação de solo
type ServerConfig struct {
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// SequencerConfig contém os tempos e limites do sequenciador de missão
type SequencerConfig struct {
	TickPeriod          time.Duration `json:"tickPeriod" yaml:"tickPeriod"`
	StateTimeout        time.Duration `json:"stateTimeout" yaml:"stateTimeout"`
	MaxRetries          int           `json:"maxRetries" yaml:"maxRetries"`
	FairingSettle       time.Duration `json:"fairingSettle" yaml:"fairingSettle"`
	StageSepSettle      time.Duration `json:"stageSepSettle" yaml:"stageSepSettle"`
	PayloadSettle       time.Duration `json:"payloadSettle" yaml:"payloadSettle"`
	ParachuteSettle     time.Duration `json:"parachuteSettle" yaml:"parachuteSettle"`
	FinalModeWait       time.Duration `json:"finalModeWait" yaml:"finalModeWait"`
	LandingHold         time.Duration `json:"landingHold" yaml:"landingHold"`
	LaunchConfirmMargin float64       `json:"launchConfirmMargin" yaml:"launchConfirmMargin"`
	LowBatteryVolts     float64       `json:"lowBatteryVolts" yaml:"lowBatteryVolts"`
	LowPayloadVolts     float64       `json:"lowPayloadVolts" yaml:"lowPayloadVolts"`
}

// DynamicsConfig contém os limiares de detecção de eventos de voo
type DynamicsConfig struct {
	VelocityWindow    time.Duration `json:"velocityWindow" yaml:"velocityWindow"`
	LaunchAccelG      float64       `json:"launchAccelG" yaml:"launchAccelG"`
	MinFlightAltitude float64       `json:"minFlightAltitude" yaml:"minFlightAltitude"`
	ApogeeVelocity    float64       `json:"apogeeVelocity" yaml:"apogeeVelocity"`
	LandingVelocity   float64       `json:"landingVelocity" yaml:"landingVelocity"`
	LandingAccelG     float64       `json:"landingAccelG" yaml:"landingAccelG"`
}

// SensorsConfig define a origem das leituras: simulador ou bancada HIL via TCP
type SensorsConfig struct {
	Mode        string           `json:"mode" yaml:"mode"` // "sim" ou "hil"
	Host        string           `json:"host" yaml:"host"`
	Port        int              `json:"port" yaml:"port"`
	ReadTimeout time.Duration    `json:"readTimeout" yaml:"readTimeout"`
	Simulation  SimulationConfig `json:"simulation" yaml:"simulation"`
}

// SimulationConfig descreve o perfil de voo simulado
type SimulationConfig struct {
	TargetApogee float64       `json:"targetApogee" yaml:"targetApogee"`
	BurnTime     time.Duration `json:"burnTime" yaml:"burnTime"`
	ThrustG      float64       `json:"thrustG" yaml:"thrustG"`
	PadTime      time.Duration `json:"padTime" yaml:"padTime"`
	DescentRate  float64       `json:"descentRate" yaml:"descentRate"`
	PadAltitude  float64       `json:"padAltitude" yaml:"padAltitude"`
	BatteryVolts float64       `json:"batteryVolts" yaml:"batteryVolts"`
	PayloadVolts float64       `json:"payloadVolts" yaml:"payloadVolts"`
	Latitude     float64       `json:"latitude" yaml:"latitude"`
	Longitude    float64       `json:"longitude" yaml:"longitude"`
}

// TelemetryConfig contém configurações do log persistido e das rajadas
type TelemetryConfig struct {
	LogDir            string  `json:"logDir" yaml:"logDir"`
	FileName          string  `json:"fileName" yaml:"fileName"`
	SampleBroadcastHz float64 `json:"sampleBroadcastHz" yaml:"sampleBroadcastHz"`
}

// ActuationConfig define o driver dos canais pirotécnicos
type ActuationConfig struct {
	Mode       string        `json:"mode" yaml:"mode"` // "sim" ou "plc"
	PulseWidth time.Duration `json:"pulseWidth" yaml:"pulseWidth"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	Password     string `json:"password" yaml:"password"`
	DB           int    `json:"db" yaml:"db"`
	Prefix       string `json:"prefix" yaml:"prefix"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	HistorySize  int64  `json:"historySize" yaml:"historySize"`
	StreamMaxLen int64  `json:"streamMaxLen" yaml:"streamMaxLen"`
}

// PLCConfig contém configurações para a bancada de atuação S7
type PLCConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Host         string        `json:"host" yaml:"host"`
	Rack         int           `json:"rack" yaml:"rack"`
	Slot         int           `json:"slot" yaml:"slot"`
	DBNumber     int           `json:"dbNumber" yaml:"dbNumber"`
	UpdateRate   time.Duration `json:"updateRate" yaml:"updateRate"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// MQTTConfig contém configurações do downlink de telemetria
type MQTTConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Host        string        `json:"host" yaml:"host"`
	Port        int           `json:"port" yaml:"port"`
	TopicPrefix string        `json:"topicPrefix" yaml:"topicPrefix"`
	ClientID    string        `json:"clientId" yaml:"clientId"`
	KeepAlive   time.Duration `json:"keepAlive" yaml:"keepAlive"`
	MaxRate     float64       `json:"maxRate" yaml:"maxRate"` // mensagens por segundo
	Burst       int           `json:"burst" yaml:"burst"`
}

// DiscoveryConfig contém configurações do anúncio mDNS
type DiscoveryConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	InstanceName string `json:"instanceName" yaml:"instanceName"`
}

// LogConfig contém configurações do logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Dir    string `json:"dir" yaml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Load carrega a configuração do arquivo (JSON ou YAML) ou usa valores padrão.
// Com path vazio, procura config.json e depois config.yaml no diretório atual.
func Load(path string) (*Config, error) {
	config := getDefaultConfig()

	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return nil, err
		}
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadFile decodifica o arquivo de acordo com a extensão
func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler arquivo de configuração %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("erro ao decodificar YAML %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("erro ao decodificar JSON %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(config *Config) error {
	if v := os.Getenv("ROCKET_SENSOR_MODE"); v != "" {
		config.Sensors.Mode = v
	}
	if v := os.Getenv("ROCKET_ACTUATION_MODE"); v != "" {
		config.Actuation.Mode = v
	}
	if v := os.Getenv("ROCKET_REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("ROCKET_LOG_DIR"); v != "" {
		config.Log.Dir = v
		config.Telemetry.LogDir = v
	}

	ints := map[string]*int{
		"ROCKET_REDIS_PORT":  &config.Redis.Port,
		"ROCKET_SERVER_PORT": &config.Server.Port,
	}
	for name, target := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("valor inválido em %s: %w", name, err)
		}
		*target = n
	}

	bools := map[string]*bool{
		"ROCKET_REDIS_ENABLED": &config.Redis.Enabled,
		"ROCKET_PLC_ENABLED":   &config.PLC.Enabled,
		"ROCKET_MQTT_ENABLED":  &config.MQTT.Enabled,
	}
	for name, target := range bools {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("valor inválido em %s: %w", name, err)
		}
		*target = b
	}

	return nil
}

// Validate verifica se a configuração é utilizável
func (c *Config) Validate() error {
	if c.Sequencer.TickPeriod <= 0 {
		return fmt.Errorf("sequencer.tickPeriod deve ser positivo")
	}
	if c.Sequencer.StateTimeout <= 0 {
		return fmt.Errorf("sequencer.stateTimeout deve ser positivo")
	}
	if c.Sequencer.MaxRetries < 0 {
		return fmt.Errorf("sequencer.maxRetries não pode ser negativo")
	}
	if c.Dynamics.VelocityWindow <= 0 {
		return fmt.Errorf("dynamics.velocityWindow deve ser positivo")
	}
	if c.Actuation.PulseWidth <= 0 {
		return fmt.Errorf("actuation.pulseWidth deve ser positivo")
	}

	waits := []struct {
		name  string
		value time.Duration
	}{
		{"sequencer.fairingSettle", c.Sequencer.FairingSettle},
		{"sequencer.stageSepSettle", c.Sequencer.StageSepSettle},
		{"sequencer.payloadSettle", c.Sequencer.PayloadSettle},
		{"sequencer.parachuteSettle", c.Sequencer.ParachuteSettle},
		{"sequencer.finalModeWait", c.Sequencer.FinalModeWait},
		{"sequencer.landingHold", c.Sequencer.LandingHold},
	}
	for _, w := range waits {
		if w.value < 0 {
			return fmt.Errorf("%s não pode ser negativo", w.name)
		}
	}

	switch c.Sensors.Mode {
	case SensorModeSim, SensorModeHIL:
	default:
		return fmt.Errorf("sensors.mode desconhecido: %q", c.Sensors.Mode)
	}

	switch c.Actuation.Mode {
	case ActuationModeSim:
	case ActuationModePLC:
		if !c.PLC.Enabled {
			return fmt.Errorf("actuation.mode=plc exige plc.enabled=true")
		}
	default:
		return fmt.Errorf("actuation.mode desconhecido: %q", c.Actuation.Mode)
	}

	if c.Sensors.Mode == SensorModeSim && c.Sensors.Simulation.TargetApogee <= 0 {
		return fmt.Errorf("sensors.simulation.targetApogee deve ser positivo")
	}

	return nil
}
