package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"rocket_go/internal/config"
	"rocket_go/internal/models"
	"rocket_go/internal/telemetry"
	"rocket_go/pkg/logger"
)

// Chaves usadas pelo serviço (sempre com o prefixo configurado)
const (
	keySampleCurrent = "sample:current"
	keyStatus        = "status"
	keyState         = "state"
	keyTransitions   = "transitions"
	keyBurstLast     = "burst:last"
	keyStream        = "telemetry"
	maxTransitions   = 200
)

// HistoryFields são os campos da amostra com histórico em conjunto ordenado
var HistoryFields = map[string]func(models.FlightSample, models.DerivedSignals) float64{
	"altitude":          func(s models.FlightSample, _ models.DerivedSignals) float64 { return s.Altitude },
	"vertical_velocity": func(_ models.FlightSample, d models.DerivedSignals) float64 { return d.VerticalVelocity },
	"accel_magnitude":   func(_ models.FlightSample, d models.DerivedSignals) float64 { return d.AccelerationMagnitude },
	"battery_volts":     func(s models.FlightSample, _ models.DerivedSignals) float64 { return s.BatteryVolts },
	"temperature":       func(s models.FlightSample, _ models.DerivedSignals) float64 { return s.Temperature },
}

// Service grava a telemetria de voo no Redis e atende consultas da API
type Service struct {
	client *Client
	config config.RedisConfig
}

// NewService cria o serviço; sem Redis disponível, opera em modo offline
func NewService(cfg config.RedisConfig) (*Service, error) {
	s := &Service{client: NewClient(cfg), config: cfg}
	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return s, nil
	}

	if err := s.client.Connect(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
	}
	return s, nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	return s.client.IsConnected()
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func (s *Service) exec(pipe redis.Pipeliner, what string) error {
	if _, err := pipe.Exec(s.client.Context()); err != nil {
		s.client.MarkDisconnected(err)
		return fmt.Errorf("erro ao escrever %s no Redis: %w", what, err)
	}
	return nil
}

// WriteSample grava a amostra atual e o histórico dos campos principais
func (s *Service) WriteSample(sample models.FlightSample, derived models.DerivedSignals, snap models.Snapshot) error {
	if !s.IsConnected() {
		return nil
	}

	payload, err := json.Marshal(models.SampleMessage{
		Sample:  sample,
		Derived: derived,
		State:   snap.StateName,
		Phase:   snap.PhaseName,
	})
	if err != nil {
		return fmt.Errorf("erro ao serializar amostra: %w", err)
	}

	ctx := s.client.Context()
	ts := millis(sample.Timestamp)
	pipe := s.client.Pipeline()

	pipe.Set(ctx, s.client.FormatKey(keySampleCurrent), payload, 0)
	pipe.Set(ctx, s.client.FormatKey(keyState), int(snap.State), 0)

	for field, value := range HistoryFields {
		histKey := s.client.FormatKey("history:" + field)
		// membro "ts:valor" para que valores repetidos não se fundam no ZSET
		member := fmt.Sprintf("%d:%g", ts, value(sample, derived))
		pipe.ZAdd(ctx, histKey, &redis.Z{Score: float64(ts), Member: member})
		pipe.ZRemRangeByRank(ctx, histKey, 0, -(s.config.HistorySize + 1))
	}

	return s.exec(pipe, "amostra")
}

// Name implementa telemetry.Sink
func (s *Service) Name() string { return "redis" }

// Append implementa telemetry.Sink gravando a linha em um stream limitado
func (s *Service) Append(record models.TelemetryRecord) error {
	if !s.IsConnected() {
		return fmt.Errorf("Redis não conectado")
	}

	row := telemetry.Format(record)
	values := make([]interface{}, 0, 2*len(row))
	for i, col := range telemetry.Columns {
		values = append(values, col, row[i])
	}

	err := s.client.Raw().XAdd(s.client.Context(), &redis.XAddArgs{
		Stream: s.client.FormatKey(keyStream),
		MaxLen: s.config.StreamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		s.client.MarkDisconnected(err)
		return fmt.Errorf("erro ao anexar registro ao stream: %w", err)
	}
	return nil
}

// WriteTransition registra a transição no log recente (mais nova primeiro)
func (s *Service) WriteTransition(tr models.Transition) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("erro ao serializar transição: %w", err)
	}

	ctx := s.client.Context()
	key := s.client.FormatKey(keyTransitions)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxTransitions-1)
	pipe.Set(ctx, s.client.FormatKey(keyState), int(tr.To), 0)
	return s.exec(pipe, "transição")
}

// WriteBurst guarda a última rajada de telemetria crítica
func (s *Service) WriteBurst(b models.TelemetryBurst) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("erro ao serializar rajada: %w", err)
	}
	if err := s.client.Raw().Set(s.client.Context(), s.client.FormatKey(keyBurstLast), data, 0).Err(); err != nil {
		s.client.MarkDisconnected(err)
		return fmt.Errorf("erro ao escrever rajada no Redis: %w", err)
	}
	return nil
}

// WriteStatus escreve o status operacional do computador de voo
func (s *Service) WriteStatus(status models.FlightStatus) error {
	if !s.IsConnected() {
		return nil
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("erro ao serializar status: %w", err)
	}
	if err := s.client.Raw().Set(s.client.Context(), s.client.FormatKey(keyStatus), data, 0).Err(); err != nil {
		s.client.MarkDisconnected(err)
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}
	return nil
}

func (s *Service) getJSON(key string, out interface{}) error {
	if !s.IsConnected() {
		return fmt.Errorf("Redis não conectado ou desabilitado")
	}

	data, err := s.client.Raw().Get(s.client.Context(), s.client.FormatKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("chave %s ainda não gravada", key)
		}
		return fmt.Errorf("erro ao ler %s: %w", key, err)
	}
	return json.Unmarshal(data, out)
}

// GetStatus obtém o último status gravado
func (s *Service) GetStatus() (*models.FlightStatus, error) {
	var status models.FlightStatus
	if err := s.getJSON(keyStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetCurrentSample obtém a última amostra gravada
func (s *Service) GetCurrentSample() (*models.SampleMessage, error) {
	var msg models.SampleMessage
	if err := s.getJSON(keySampleCurrent, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetLastBurst obtém a última rajada de telemetria crítica
func (s *Service) GetLastBurst() (*models.TelemetryBurst, error) {
	var b models.TelemetryBurst
	if err := s.getJSON(keyBurstLast, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetTransitions obtém até limit transições, da mais recente para a mais antiga
func (s *Service) GetTransitions(limit int64) ([]models.Transition, error) {
	if !s.IsConnected() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}
	if limit <= 0 || limit > maxTransitions {
		limit = maxTransitions
	}

	items, err := s.client.Raw().LRange(s.client.Context(), s.client.FormatKey(keyTransitions), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter transições: %w", err)
	}

	transitions := make([]models.Transition, 0, len(items))
	for _, item := range items {
		var tr models.Transition
		if err := json.Unmarshal([]byte(item), &tr); err != nil {
			continue
		}
		transitions = append(transitions, tr)
	}
	return transitions, nil
}

// GetHistory obtém o histórico de um campo de HistoryFields
func (s *Service) GetHistory(field string) ([]models.HistoryPoint, error) {
	if _, ok := HistoryFields[field]; !ok {
		return nil, fmt.Errorf("campo de histórico inválido: %s", field)
	}
	if !s.IsConnected() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	results, err := s.client.Raw().ZRangeWithScores(s.client.Context(), s.client.FormatKey("history:"+field), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao obter histórico de %s: %w", field, err)
	}

	history := make([]models.HistoryPoint, 0, len(results))
	for _, item := range results {
		member, ok := item.Member.(string)
		if !ok {
			continue
		}
		point, err := parseHistoryMember(member, item.Score)
		if err != nil {
			continue
		}
		history = append(history, point)
	}
	return history, nil
}

// parseHistoryMember decodifica um membro "ts:valor" do histórico
func parseHistoryMember(member string, score float64) (models.HistoryPoint, error) {
	idx := strings.IndexByte(member, ':')
	if idx < 0 {
		return models.HistoryPoint{}, fmt.Errorf("membro de histórico inválido: %q", member)
	}
	val, err := strconv.ParseFloat(member[idx+1:], 64)
	if err != nil {
		return models.HistoryPoint{}, fmt.Errorf("valor de histórico inválido: %q", member)
	}
	return models.HistoryPoint{
		Value:     val,
		Timestamp: time.Unix(0, int64(score)*int64(time.Millisecond)),
	}, nil
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	if err := s.client.Close(); err != nil {
		logger.Error("Erro ao fechar conexão com Redis", err)
	}
}
