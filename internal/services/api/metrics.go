package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
)

type metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry, engine *pumpsim.Engine) *metrics {
	m := &metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pump_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pump_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pump_dosing_runs_completed_total",
			Help: "Dosing runs completed by the integrator.",
		}, []string{"motor_id"}),
	}
	reg.MustRegister(m.requests, m.latency, m.runs)
	reg.MustRegister(collectors.NewGoCollector())

	if engine == nil {
		return m
	}
	engine.OnDosingComplete(func(evt messages.DosingResultEvent) {
		m.runs.WithLabelValues(strconv.Itoa(evt.MotorID)).Inc()
	})

	// gauges read the selected motor on every scrape
	state := func(f func(messages.Snapshot) float64) func() float64 {
		return func() float64 {
			snap, err := engine.State(messages.MotorID{})
			if err != nil {
				return 0
			}
			return f(snap)
		}
	}
	boolf := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_speed_rpm", Help: "Current signed speed."},
			state(func(s messages.Snapshot) float64 { return s.SpeedRpm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_target_speed_rpm", Help: "Target signed speed."},
			state(func(s messages.Snapshot) float64 { return s.TargetSpeedRpm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_flow_lph", Help: "Current signed flow in L/h."},
			state(func(s messages.Snapshot) float64 { return s.FlowLph })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_running", Help: "1 while the drive is commanded to move."},
			state(func(s messages.Snapshot) float64 { return boolf(s.Running) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_dosing_remaining_ml", Help: "Volume left in the current dosing run."},
			state(func(s messages.Snapshot) float64 { return s.DosingRemainingMl })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pump_active_motors", Help: "Addressable virtual motors."},
			state(func(s messages.Snapshot) float64 { return float64(s.ActiveMotorCount) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{Name: "pump_pumped_liters_total", Help: "Lifetime pumped volume."},
			state(func(s messages.Snapshot) float64 { return s.TotalPumpedL })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{Name: "pump_uptime_seconds_total", Help: "Time spent moving."},
			state(func(s messages.Snapshot) float64 { return float64(s.UptimeSec) })),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// instrument counts requests by the mux pattern that served them.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
