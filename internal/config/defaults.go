package config

import "time"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Sequencer: SequencerConfig{
			TickPeriod:          100 * time.Millisecond, // 10 Hz
			StateTimeout:        30 * time.Second,
			MaxRetries:          3,
			FairingSettle:       2 * time.Second,
			StageSepSettle:      3 * time.Second,
			PayloadSettle:       1 * time.Second,
			ParachuteSettle:     1 * time.Second,
			FinalModeWait:       5 * time.Second,
			LandingHold:         30 * time.Second,
			LaunchConfirmMargin: 50.0,
			LowBatteryVolts:     3.3,
			LowPayloadVolts:     3.3,
		},
		Dynamics: DynamicsConfig{
			VelocityWindow:    1000 * time.Millisecond,
			LaunchAccelG:      2.0,
			MinFlightAltitude: 30.0,
			ApogeeVelocity:    -2.0,
			LandingVelocity:   5.0,
			LandingAccelG:     1.5,
		},
		Sensors: SensorsConfig{
			Mode:        "sim",
			Host:        "192.168.1.84",
			Port:        2111,
			ReadTimeout: 50 * time.Millisecond,
			Simulation: SimulationConfig{
				TargetApogee: 300.0,
				BurnTime:     2 * time.Second,
				ThrustG:      8.0,
				PadTime:      5 * time.Second,
				DescentRate:  10.0,
				PadAltitude:  0.0,
				BatteryVolts: 4.1,
				PayloadVolts: 4.0,
				Latitude:     -22.905560,
				Longitude:    -47.060830,
			},
		},
		Telemetry: TelemetryConfig{
			LogDir:            "logs",
			FileName:          "flight.csv",
			SampleBroadcastHz: 10,
		},
		Actuation: ActuationConfig{
			Mode:       "sim",
			PulseWidth: 100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			Password:     "",
			DB:           0,
			Prefix:       "rocket_fc",
			Enabled:      true,
			HistorySize:  1000,
			StreamMaxLen: 10000,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     10,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        1883,
			TopicPrefix: "rocket",
			KeepAlive:   30 * time.Second,
			MaxRate:     5,
			Burst:       10,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "debug",
			Dir:    "logs",
			Prefix: "flight",
		},
	}
}

// Default retorna uma cópia da configuração padrão
func Default() *Config {
	cfg := getDefaultConfig()
	return &cfg
}
