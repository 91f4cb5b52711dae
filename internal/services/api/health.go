package api

import (
	"net/http"
	"time"
)

// minWriteErrorAge: an Influx write error younger than this marks the service degraded.
const minWriteErrorAge = 30 * time.Second

type healthStatus struct {
	Status          string   `json:"status"`
	EngineRunning   bool     `json:"engine_running"`
	MQTTConnected   *bool    `json:"mqtt_connected,omitempty"`
	LastWriteErrorS *float64 `json:"last_write_error_age_sec,omitempty"`
}

func (s *Server) health() healthStatus {
	st := healthStatus{EngineRunning: s.cfg.Engine.Started()}
	ok := st.EngineRunning
	if s.cfg.MQTT != nil {
		c := s.cfg.MQTT.IsConnectionOpen()
		st.MQTTConnected = &c
		ok = ok && c
	}
	if s.cfg.InfluxWriter != nil {
		age := s.cfg.InfluxWriter.LastErrorAge()
		secs := age.Seconds()
		st.LastWriteErrorS = &secs
		ok = ok && age > minWriteErrorAge
	}
	switch {
	case ok:
		st.Status = "ok"
	case st.EngineRunning:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	return st
}

// /healthz always answers 200 and reports the details.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.health())
}

// /readyz answers 200 only when the integrator runs and the broker, if
// configured, is connected.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.cfg.Engine.Started()
	if s.cfg.MQTT != nil {
		ready = ready && s.cfg.MQTT.IsConnectionOpen()
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]bool{"ready": ready})
}
