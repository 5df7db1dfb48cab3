package flight

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rocket_flight_ticks_total",
		Help: "Ticks executados pelo loop de voo",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rocket_flight_tick_duration_seconds",
		Help:    "Duração de cada tick (leitura, estimativa, sequenciador e registro)",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	tickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rocket_flight_tick_overruns_total",
		Help: "Ticks que excederam o período configurado",
	})

	sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rocket_flight_sink_failures_total",
		Help: "Falhas ao anexar registros de telemetria, por destino",
	}, []string{"sink"})

	outboxDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rocket_flight_outbox_dropped_total",
		Help: "Publicações descartadas porque a fila de saída estava cheia",
	})
)
