package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rocket_go/internal/models"
	"rocket_go/pkg/logger"
	"rocket_go/pkg/utils"
)

var log = logger.For("api")

// FlightComputer é a visão do computador de voo usada pela API
type FlightComputer interface {
	Snapshot() models.Snapshot
	GetStatus() models.FlightStatus
	LastSample() (models.FlightSample, models.DerivedSignals, bool)
	Transitions(limit int) []models.Transition
	LastBurst() (models.TelemetryBurst, bool)
	RequestAbort(source string)
}

// HistoryStore é o armazenamento de histórico (Redis)
type HistoryStore interface {
	IsConnected() bool
	GetHistory(field string) ([]models.HistoryPoint, error)
	GetTransitions(limit int64) ([]models.Transition, error)
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	flight FlightComputer
	store  HistoryStore
}

// NewHandler cria um novo handler de API; store pode ser nil
func NewHandler(flight FlightComputer, store HistoryStore) *Handler {
	return &Handler{flight: flight, store: store}
}

func (h *Handler) storeAvailable() bool {
	return h.store != nil && h.store.IsConnected()
}

// GetStatus retorna o status operacional e o snapshot do sequenciador
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	status := h.flight.GetStatus()
	snap := h.flight.Snapshot()

	response := map[string]interface{}{
		"status":    status.Status,
		"timestamp": status.Timestamp.UnixNano() / int64(time.Millisecond),
		"sessionId": status.SessionID,
		"snapshot":  snap,
		"elapsed":   utils.MissionElapsed(launchTime(h.flight.Transitions(0)), time.Now()),
	}

	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}
	if failures := snap.Readiness.Failures(); len(failures) > 0 {
		response["readinessFailures"] = failures
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// launchTime procura o instante da transição para o estado de lançamento
func launchTime(transitions []models.Transition) time.Time {
	for _, tr := range transitions {
		if tr.To == models.StateLaunch {
			return tr.Timestamp
		}
	}
	return time.Time{}
}

// GetCurrentData retorna a última amostra com os sinais derivados
func (h *Handler) GetCurrentData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	sample, derived, ok := h.flight.LastSample()
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}

	snap := h.flight.Snapshot()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sample":    sample,
		"derived":   derived,
		"state":     snap.StateName,
		"phase":     snap.PhaseName,
		"timestamp": sample.Timestamp.UnixNano() / int64(time.Millisecond),
	})
}

// GetTransitions retorna as transições recentes (?limit=N), da mais nova para a mais antiga
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "Parâmetro limit inválido")
			return
		}
		limit = n
	}

	var transitions []models.Transition
	if h.storeAvailable() {
		stored, err := h.store.GetTransitions(int64(limit))
		if err == nil {
			transitions = stored
		} else {
			log.Debugf("Transições indisponíveis no Redis: %v", err)
		}
	}
	if len(transitions) == 0 {
		transitions = h.flight.Transitions(limit)
	}
	if transitions == nil {
		transitions = []models.Transition{}
	}

	h.respondWithJSON(w, http.StatusOK, transitions)
}

// GetHistory retorna o histórico de um campo (/history/{campo})
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	field := parts[len(parts)-1]
	if field == "" || field == "history" {
		h.respondWithError(w, http.StatusBadRequest, "Campo de histórico não fornecido")
		return
	}

	history := []models.HistoryPoint{}
	if h.storeAvailable() {
		stored, err := h.store.GetHistory(field)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		history = stored
	}

	h.respondWithJSON(w, http.StatusOK, history)
}

// GetLastBurst retorna a última rajada de telemetria crítica
func (h *Handler) GetLastBurst(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	burst, ok := h.flight.LastBurst()
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Nenhuma rajada emitida")
		return
	}
	h.respondWithJSON(w, http.StatusOK, burst)
}

// PostAbort pede o aborto da missão; o sequenciador age no próximo tick
func (h *Handler) PostAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	snap := h.flight.Snapshot()
	if !snap.SequenceActive {
		h.respondWithError(w, http.StatusConflict, "Sequência já encerrada")
		return
	}

	h.flight.RequestAbort("api:" + r.RemoteAddr)
	h.respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
		"state":    snap.StateName,
		"message":  "Aborto solicitado; efetivo no próximo tick",
	})
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Erro ao codificar resposta JSON: %v", err)
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
