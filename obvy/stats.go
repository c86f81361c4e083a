package livedemo

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is a private prometheus registry for livedemo itself
type StatsInternal struct {
	Registry       *prometheus.Registry
	Updates        *prometheus.CounterVec
	Clients        prometheus.Gauge
	WWW            *prometheus.CounterVec
	PollTimer      prometheus.Histogram
	CountdownFires prometheus.Counter
	RecordErrors   prometheus.Counter
}

func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Registry: reg,
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livedemo_updates_total",
			Help: "Updates broadcast to clients, by kind",
		}, []string{"kind"}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livedemo_ws_clients",
			Help: "Connected websocket clients",
		}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livedemo_www_requests_total",
			Help: "HTTP API requests",
		}, []string{"code", "method"}),
		PollTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livedemo_poll_seconds",
			Help:    "Time taken by a single poll of the HTTP source",
			Buckets: prometheus.DefBuckets,
		}),
		CountdownFires: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livedemo_countdown_fires_total",
			Help: "Countdowns that reached zero",
		}),
		RecordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livedemo_record_errors_total",
			Help: "Failed writes to an output adapter",
		}),
	}

	reg.MustRegister(
		s.Updates,
		s.Clients,
		s.WWW,
		s.PollTimer,
		s.CountdownFires,
		s.RecordErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return s
}

func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

func (s *StatsInternal) RecUpdate(kind string) {
	s.Updates.WithLabelValues(kind).Inc()
}

func (s *StatsInternal) SetClients(n int) {
	s.Clients.Set(float64(n))
}

func (s *StatsInternal) RecWWW(code, method string) {
	s.WWW.WithLabelValues(code, method).Inc()
}

func (s *StatsInternal) RecPollTimer(seconds float64) {
	s.PollTimer.Observe(seconds)
}

func (s *StatsInternal) RecCountdownFire() { s.CountdownFires.Inc() }
func (s *StatsInternal) RecRecordError()   { s.RecordErrors.Inc() }
