package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rocket_sequencer_transitions_total",
		Help: "Transições de estado do sequenciador",
	}, []string{"from", "to"})

	abortsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rocket_sequencer_aborts_total",
		Help: "Abortos disparados, por motivo",
	}, []string{"reason"})

	actuationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rocket_sequencer_actuations_total",
		Help: "Disparos de canais pirotécnicos, por resultado",
	}, []string{"channel", "result"})

	stateTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rocket_sequencer_state_timeouts_total",
		Help: "Estados que excederam o tempo limite, por banda",
	}, []string{"band"})

	currentState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rocket_sequencer_state",
		Help: "Identificador do estado atual do sequenciador",
	})
)
