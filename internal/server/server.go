package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rocket_go/internal/config"
	"rocket_go/internal/discovery"
	"rocket_go/internal/downlink"
	"rocket_go/internal/flight"
	"rocket_go/internal/plc"
	"rocket_go/internal/redis"
	"rocket_go/internal/sensors"
	"rocket_go/internal/telemetry"
	"rocket_go/internal/websocket"
	"rocket_go/pkg/logger"
)

// Version é a versão anunciada pelo servidor
const Version = "1.0.0"

var log = logger.For("server")

// Server encapsula o servidor HTTP da estação em solo e o computador de voo
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	handler          http.Handler
	hardware         *flight.Hardware
	flightService    *flight.Service
	redisService     *redis.Service
	mirrorService    *plc.MirrorService
	downlink         *downlink.Downlink
	csvSink          *telemetry.CSVSink
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	SessionID    string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor com todos os componentes
func NewServer(cfg *config.Config) (*Server, error) {
	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
			SessionID: uuid.NewString(),
		},
	}

	ip, err := discovery.LocalIP()
	if err != nil {
		log.Warnf("Usando localhost: %v", err)
		ip = "localhost"
	}
	server.serverInfo.IP = ip
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		server.closeComponents()
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	sessionID := s.serverInfo.SessionID

	s.wsHub = websocket.NewHub(s.config.Telemetry.SampleBroadcastHz)
	go s.wsHub.Run()

	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	hw, err := flight.NewHardware(s.config, sensors.SystemClock{})
	if err != nil {
		return fmt.Errorf("erro ao inicializar hardware: %w", err)
	}
	s.hardware = hw

	csvSink, err := telemetry.NewCSVSink(s.config.Telemetry.LogDir, s.config.Telemetry.FileName)
	if err != nil {
		return fmt.Errorf("erro ao abrir log de telemetria: %w", err)
	}
	s.csvSink = csvSink

	deps := flight.Deps{
		Clock:     sensors.SystemClock{},
		Suite:     hw.Suite,
		Actuator:  hw.Actuator,
		Sinks:     []telemetry.Sink{csvSink},
		Feed:      s.wsHub,
		SessionID: sessionID,
	}

	// interfaces só recebem os serviços habilitados
	if s.config.Redis.Enabled {
		deps.RemoteSinks = append(deps.RemoteSinks, redisService)
		deps.Store = redisService
	}

	if s.config.MQTT.Enabled {
		s.downlink = downlink.New(s.config.MQTT, sessionID)
		deps.RemoteSinks = append(deps.RemoteSinks, s.downlink)
		deps.Downlink = s.downlink
	}

	if s.config.PLC.Enabled && hw.PLC != nil {
		s.mirrorService = plc.NewMirrorService(s.config.PLC, hw.PLC)
		deps.Mirror = s.mirrorService
	}

	flightService, err := flight.NewService(s.config, deps)
	if err != nil {
		return fmt.Errorf("erro ao inicializar computador de voo: %w", err)
	}
	s.flightService = flightService
	s.wsHub.SetController(flightService)

	if s.config.Discovery.Enabled {
		s.discoveryService = discovery.NewDiscoveryService(s.config.Discovery.InstanceName, s.config.Server.Port, discovery.Info{
			Version:   Version,
			SessionID: sessionID,
			WSPath:    "/ws",
			APIPath:   "/api",
		})
	}

	return nil
}

// Start inicia os serviços e bloqueia no servidor HTTP
func (s *Server) Start() error {
	if s.discoveryService != nil {
		if err := s.discoveryService.Start(); err != nil {
			log.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		}
	}

	if s.downlink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.downlink.Connect(ctx); err != nil {
			log.Warnf("Downlink MQTT indisponível, nova tentativa em segundo plano: %v", err)
		}
		cancel()
	}

	if s.mirrorService != nil {
		if err := s.mirrorService.Start(); err != nil {
			log.Errorf("Erro ao iniciar espelho PLC: %v", err)
		}
	}

	if err := s.flightService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar computador de voo: %w", err)
	}

	s.logServerInfo()

	log.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	log.Infof("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error("Erro ao encerrar servidor HTTP", err)
	}

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	if s.flightService != nil {
		s.flightService.Stop()
	}

	s.closeComponents()

	log.Infof("Shutdown completo")
	return nil
}

// closeComponents libera os recursos na ordem inversa da criação
func (s *Server) closeComponents() {
	if s.mirrorService != nil {
		s.mirrorService.Stop()
	}
	if s.downlink != nil {
		if err := s.downlink.Close(); err != nil {
			log.Warnf("Erro ao fechar downlink: %v", err)
		}
	}
	if s.csvSink != nil {
		if err := s.csvSink.Close(); err != nil {
			log.Warnf("Erro ao fechar log de telemetria: %v", err)
		}
	}
	if s.hardware != nil {
		s.hardware.Close()
	}
	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}
	if s.redisService != nil {
		s.redisService.Shutdown()
	}
}

// Handler retorna o handler HTTP completo (com middleware)
func (s *Server) Handler() http.Handler {
	return s.handler
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	log.Infof("===============================================")
	log.Infof("            Rocket Flight Computer             ")
	log.Infof("===============================================")
	log.Infof("Versão: %s", s.serverInfo.Version)
	log.Infof("Sessão: %s", s.serverInfo.SessionID)
	log.Infof("Endereço IP: %s", s.serverInfo.IP)
	log.Infof("Porta HTTP: %d", s.serverInfo.Port)
	log.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	log.Infof("API URL: %s", s.serverInfo.APIURL)
	log.Infof("Sensores: %s | Atuação: %s", s.config.Sensors.Mode, s.config.Actuation.Mode)
	if s.discoveryService != nil {
		log.Infof("mDNS: %s.%s.%s",
			s.discoveryService.GetInstanceName(),
			discovery.ServiceType,
			discovery.ServiceDomain)
	}
	log.Infof("===============================================")
	log.Infof("Computador de voo pronto!")
}
