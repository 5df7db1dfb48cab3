package discovery

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"

	"rocket_go/pkg/logger"
)

var log = logger.For("discovery")

const (
	// ServiceName é o nome exibido para a estação em solo
	ServiceName = "rocket-flight-computer"

	// ServiceDomain é o domínio para descoberta na rede
	ServiceDomain = "local."

	// ServiceType define o tipo de serviço
	ServiceType = "_rocketfc._tcp"
)

// Info descreve o que é anunciado junto ao serviço
type Info struct {
	Version   string
	SessionID string
	WSPath    string
	APIPath   string
}

// DiscoveryService anuncia o computador de voo na rede local via mDNS
type DiscoveryService struct {
	server       *zeroconf.Server
	mutex        sync.Mutex
	instanceName string
	port         int
	info         Info
	running      bool
	serverIP     string
}

// NewDiscoveryService cria o serviço; instanceName vazio usa <hostname>-rocketfc
func NewDiscoveryService(instanceName string, port int, info Info) *DiscoveryService {
	return &DiscoveryService{
		port:         port,
		instanceName: resolveInstanceName(instanceName),
		info:         info,
	}
}

func resolveInstanceName(name string) string {
	if name != "" {
		return name
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "rocket"
	}
	return hostname + "-rocketfc"
}

// txtRecords monta os metadados TXT do anúncio
func txtRecords(ip string, info Info) []string {
	records := []string{
		"name=" + ServiceName,
		"ip=" + ip,
	}
	if info.Version != "" {
		records = append(records, "version="+info.Version)
	}
	if info.SessionID != "" {
		records = append(records, "session="+info.SessionID)
	}
	if info.WSPath != "" {
		records = append(records, "ws="+info.WSPath)
	}
	if info.APIPath != "" {
		records = append(records, "api="+info.APIPath)
	}
	return records
}

// Start registra o serviço mDNS
func (s *DiscoveryService) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := LocalIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := zeroconf.Register(s.instanceName, ServiceType, ServiceDomain, s.port, txtRecords(ip, s.info), nil)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true
	log.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s)", ip, s.port, s.instanceName, ServiceType)
	return nil
}

// Stop remove o anúncio mDNS
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false
	log.Infof("Serviço de descoberta parado")
}

// GetServerIP retorna o IP anunciado
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetPort retorna a porta anunciada
func (s *DiscoveryService) GetPort() int {
	return s.port
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// LocalIP obtém o primeiro endereço IPv4 que não seja de loopback
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
