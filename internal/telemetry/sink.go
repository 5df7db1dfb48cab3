package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rocket_go/internal/models"
)

// Sink recebe as linhas do log de telemetria.
// Falhas são reportadas mas nunca bloqueiam o sequenciamento.
type Sink interface {
	Name() string
	Append(record models.TelemetryRecord) error
}

// MultiSink repassa cada registro a todos os sinks e acumula os erros
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewMultiSink cria um MultiSink com os sinks informados (nil são ignorados)
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add registra mais um sink
func (m *MultiSink) Add(s Sink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Name implementa Sink
func (m *MultiSink) Name() string { return "multi" }

// Len retorna o número de sinks registrados
func (m *MultiSink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

// Append entrega o registro a todos os sinks, mesmo que algum falhe
func (m *MultiSink) Append(record models.TelemetryRecord) error {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Append(record); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// SinkError identifica qual sink falhou
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// CSVSink grava o log de voo em arquivo CSV com cabeçalho
type CSVSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink abre (ou cria) o arquivo e escreve o cabeçalho se estiver vazio
func NewCSVSink(dir, name string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("erro ao criar diretório de telemetria: %w", err)
	}

	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir log de telemetria: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("erro ao inspecionar log de telemetria: %w", err)
	}

	s := &CSVSink{path: path, file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := s.writeRow(Header()); err != nil {
			file.Close()
			return nil, err
		}
	}
	log.Infof("Log de telemetria em %s", path)
	return s, nil
}

// Name implementa Sink
func (s *CSVSink) Name() string { return "csv" }

// Path retorna o caminho do arquivo
func (s *CSVSink) Path() string { return s.path }

// Append grava a linha e descarrega o buffer
func (s *CSVSink) Append(record models.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("log de telemetria fechado")
	}
	return s.writeRow(Format(record))
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("erro ao escrever linha: %w", err)
	}
	s.writer.Flush()
	return s.writer.Error()
}

// Close fecha o arquivo
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}
