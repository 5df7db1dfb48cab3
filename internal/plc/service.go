package plc

import (
	"context"
	"sync"
	"time"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
	"rocket_go/pkg/utils"
)

// Espelho do estado da missão no mesmo bloco, após a área de controle
const (
	offsetMirror = 2
	mirrorSize   = 18
)

// MirrorFrame é o conteúdo escrito no PLC a cada atualização
type MirrorFrame struct {
	Snapshot models.Snapshot
	Sample   models.FlightSample
	Derived  models.DerivedSignals
}

// encodeMirror monta o bloco espelho:
//
//	+0  INT  estado
//	+2  INT  fase
//	+4  REAL altitude
//	+8  REAL velocidade vertical
//	+12 REAL altitude máxima
//	+16 BYTE flags (bit0 aborto, bit1 sequência ativa, bit2 apogeu)
//	+17 BYTE canais já acionados
func encodeMirror(f MirrorFrame) []byte {
	buf := make([]byte, 0, mirrorSize)
	buf = append(buf, utils.Int16ToBytes(int16(f.Snapshot.State))...)
	buf = append(buf, utils.Int16ToBytes(int16(f.Snapshot.Phase))...)
	buf = append(buf, utils.Float32ToBytes(float32(f.Sample.Altitude))...)
	buf = append(buf, utils.Float32ToBytes(float32(f.Derived.VerticalVelocity))...)
	buf = append(buf, utils.Float32ToBytes(float32(f.Snapshot.MaxAltitude))...)

	var flags byte
	if f.Snapshot.Abort {
		flags |= 1 << 0
	}
	if f.Snapshot.SequenceActive {
		flags |= 1 << 1
	}
	if f.Snapshot.ApogeeDetected {
		flags |= 1 << 2
	}

	var fired byte
	for _, ch := range f.Snapshot.Fired {
		fired |= 1 << uint(ch)
	}
	return append(buf, flags, fired)
}

// MirrorService publica o estado da missão no PLC em taxa fixa
type MirrorService struct {
	io      BlockIO
	config  config.PLCConfig
	ctx     context.Context
	cancel  context.CancelFunc
	updates chan MirrorFrame
	last    *MirrorFrame
	mutex   sync.RWMutex
	running bool
}

// NewMirrorService cria o serviço de espelhamento
func NewMirrorService(cfg config.PLCConfig, io BlockIO) *MirrorService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MirrorService{
		io:      io,
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan MirrorFrame, 10),
	}
}

// Start inicia o loop de atualização
func (s *MirrorService) Start() error {
	if !s.config.Enabled {
		log.Infof("Espelho PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	go s.runUpdateLoop()
	s.running = true
	log.Infof("Espelho PLC iniciado (DB%d, a cada %v)", s.config.DBNumber, s.config.UpdateRate)
	return nil
}

// Stop para o loop de atualização
func (s *MirrorService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.running = false
	log.Infof("Espelho PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *MirrorService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Update entrega um novo quadro sem bloquear o loop de voo
func (s *MirrorService) Update(frame MirrorFrame) {
	if !s.IsRunning() {
		return
	}

	select {
	case s.updates <- frame:
	default:
		log.Warnf("Canal do espelho PLC cheio, descartando atualização")
	}
}

// LastFrame retorna o último quadro recebido
func (s *MirrorService) LastFrame() (MirrorFrame, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.last == nil {
		return MirrorFrame{}, false
	}
	return *s.last, true
}

func (s *MirrorService) runUpdateLoop() {
	rate := s.config.UpdateRate
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	var pending bool
	for {
		select {
		case <-s.ctx.Done():
			return

		case frame := <-s.updates:
			s.mutex.Lock()
			s.last = &frame
			s.mutex.Unlock()
			pending = true

		case <-ticker.C:
			if !pending {
				continue
			}
			frame, _ := s.LastFrame()
			if err := s.io.WriteDB(s.config.DBNumber, offsetMirror, encodeMirror(frame)); err != nil {
				log.Errorf("Falha ao escrever espelho no PLC: %v", err)
				continue
			}
			pending = false
		}
	}
}
