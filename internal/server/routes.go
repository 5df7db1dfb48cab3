package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rocket_go/internal/api"
	"rocket_go/internal/discovery"
	"rocket_go/internal/websocket"
	"rocket_go/pkg/utils"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub)
	apiRouter := api.NewRouter(s.flightService, s.redisService, "/api")
	apiRouter.Setup()

	// Saúde e informações
	s.router.HandleFunc("/health", s.healthHandler)
	s.router.HandleFunc("/info", s.infoHandler)
	s.router.HandleFunc("/api/discover", s.discoverHandler)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler)

	// Métricas Prometheus
	s.router.Handle("/metrics", promhttp.Handler())

	// WebSocket
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	// API REST
	s.router.Handle("/api/", apiRouter)

	// Painel estático da estação em solo (opcional)
	s.router.Handle("/", http.FileServer(http.Dir("./static")))

	s.handler = api.Chain(api.RecoveryMiddleware, api.CorsMiddleware)(s.router)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Erro ao codificar resposta", err)
	}
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	flightStatus := s.flightService.GetStatus()

	flight := flightStatus.Status
	if !s.flightService.IsRunning() {
		flight = "offline"
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "offline"
		if s.redisService.IsConnected() {
			redisStatus = "ok"
		}
	}

	plcStatus := "disabled"
	if s.config.PLC.Enabled {
		plcStatus = "offline"
		if s.mirrorService != nil && s.mirrorService.IsRunning() {
			plcStatus = "ok"
		}
	}

	mqttStatus := "disabled"
	if s.downlink != nil {
		mqttStatus = "offline"
		if s.downlink.IsConnected() {
			mqttStatus = "ok"
		}
	}

	discoveryStatus := "disabled"
	if s.discoveryService != nil {
		discoveryStatus = "offline"
		if s.discoveryService.IsRunning() {
			discoveryStatus = "ok"
		}
	}

	status := "ok"
	if flight == "offline" || redisStatus == "offline" || mqttStatus == "offline" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"state":     flightStatus.State,
		"phase":     flightStatus.Phase,
		"abort":     flightStatus.Abort,
		"services": map[string]string{
			"flight":    flight,
			"redis":     redisStatus,
			"plc":       plcStatus,
			"mqtt":      mqttStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	})
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        discovery.ServiceName,
		"version":     info.Version,
		"sessionId":   info.SessionID,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      utils.FormatDuration(time.Since(info.StartTime)),
		"connections": info.Connections,
	})
}

// serverInfoHandler retorna informações completas sobre o servidor e os serviços
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	discoveryInfo := map[string]interface{}{
		"enabled":     s.discoveryService != nil,
		"running":     s.discoveryService != nil && s.discoveryService.IsRunning(),
		"serviceType": discovery.ServiceType,
	}
	if s.discoveryService != nil {
		discoveryInfo["instanceName"] = s.discoveryService.GetInstanceName()
	}

	mqttInfo := map[string]interface{}{
		"enabled": s.config.MQTT.Enabled,
		"host":    s.config.MQTT.Host,
		"port":    s.config.MQTT.Port,
	}
	if s.downlink != nil {
		published, dropped := s.downlink.Stats()
		mqttInfo["connected"] = s.downlink.IsConnected()
		mqttInfo["published"] = published
		mqttInfo["dropped"] = dropped
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"name":        discovery.ServiceName,
			"version":     info.Version,
			"sessionId":   info.SessionID,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      utils.FormatDuration(time.Since(info.StartTime)),
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"flight": map[string]interface{}{
				"running":    s.flightService.IsRunning(),
				"sensorMode": s.config.Sensors.Mode,
				"actuation":  s.config.Actuation.Mode,
				"tickPeriod": s.config.Sequencer.TickPeriod.String(),
				"csvLog":     s.csvSink.Path(),
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.mirrorService != nil && s.mirrorService.IsRunning(),
				"host":    s.config.PLC.Host,
			},
			"mqtt": mqttInfo,
		},
	})
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	info := s.GetServerInfo()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        discovery.ServiceName,
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"sessionId":   info.SessionID,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
	})
}
