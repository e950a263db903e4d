package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/location"
)

// Metrics holds the service's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	gpsOutcomes  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsClients    prometheus.Gauge
	machines     prometheus.GaugeFunc
}

// New registers every collector. liveMachines, if non-nil, reports the
// number of attendance machines currently held.
func New(liveMachines func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_transitions_total",
			Help: "Check-in and check-out attempts by kind and result.",
		}, []string{"kind", "result"}),
		gpsOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_gps_outcomes_total",
			Help: "Location acquisition outcomes by GPS status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Connected websocket clients.",
		}),
	}
	if liveMachines == nil {
		liveMachines = func() int { return 0 }
	}
	m.machines = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "attendance_live_machines",
		Help: "Workers with an attendance machine in memory.",
	}, func() float64 { return float64(liveMachines()) })

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.gpsOutcomes,
		m.httpRequests,
		m.httpDuration,
		m.wsClients,
		m.machines,
	)
	return m
}

// ObserveTransition counts one attempt
func (m *Metrics) ObserveTransition(tr attendance.Transition) {
	m.transitions.WithLabelValues(tr.Outcome.Kind.String(), result(tr.Outcome)).Inc()
}

// ObserveGps counts a terminal location outcome
func (m *Metrics) ObserveGps(s location.GpsStatus) {
	if s.Terminal() {
		m.gpsOutcomes.WithLabelValues(s.String()).Inc()
	}
}

// ClientConnected and ClientDisconnected track websocket clients
func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

func result(out attendance.Outcome) string {
	switch {
	case out.Accepted:
		return "accepted"
	case errors.Is(out.Err, attendance.ErrNoWorksite):
		return "no_worksite"
	case errors.Is(out.Err, attendance.ErrWrongWorksite):
		return "wrong_worksite"
	case errors.Is(out.Err, attendance.ErrStale):
		return "stale"
	case errors.Is(out.Err, attendance.ErrOpenRecordExists):
		return "duplicate"
	case out.Err != nil && location.StatusOf(out.Err) != location.GpsError:
		return "gps_" + location.StatusOf(out.Err).String()
	case out.Err != nil:
		return "error"
	}
	return "noop"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the recorder
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request counts and durations by mux route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
