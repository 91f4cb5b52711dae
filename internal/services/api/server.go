package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/firmware"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/network"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/telemetry"
)

// ConnChecker reports broker connectivity; mqtt.Client satisfies it.
type ConnChecker interface {
	IsConnectionOpen() bool
}

// HistorySource reads completed dosing runs from long-term storage.
type HistorySource interface {
	Recent(ctx context.Context, minutes, limit int) ([]telemetry.DosingRecord, error)
}

type Config struct {
	Engine   *pumpsim.Engine
	Schedule *pumpsim.ScheduleStore
	Firmware *firmware.Service
	WiFi     *network.WiFi
	Zigbee   *network.Zigbee

	// optional
	History       *telemetry.History
	InfluxHistory HistorySource
	InfluxWriter  *telemetry.Writer
	MQTT          ConnChecker
	Registry      *prometheus.Registry

	Logger *zap.Logger
}

// Server is the HTTP face of the simulated controller.
type Server struct {
	cfg      Config
	prefs    *preferences
	security *security
	metrics  *metrics
	log      *zap.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Schedule == nil {
		cfg.Schedule = pumpsim.NewScheduleStore()
	}
	if cfg.WiFi == nil {
		cfg.WiFi = network.NewWiFi("TestWiFi", "127.0.0.1", cfg.Logger)
	}
	if cfg.Zigbee == nil {
		cfg.Zigbee = network.NewZigbee(nil, cfg.Logger)
	}
	if cfg.Firmware == nil {
		cfg.Firmware = firmware.NewService(pumpsim.FirmwareVersion, "", nil, cfg.Logger)
	}
	return &Server{
		cfg:      cfg,
		prefs:    newPreferences(),
		security: newSecurity(),
		metrics:  newMetrics(cfg.Registry, cfg.Engine),
		log:      cfg.Logger,
	}
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/flow", s.handleFlow)
	mux.HandleFunc("POST /api/dosing", s.handleDosing)
	mux.HandleFunc("GET /api/dosing/history", s.handleDosingHistory)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handlePostSettings)
	mux.HandleFunc("POST /api/calibration/run", s.handleCalibrationRun)
	mux.HandleFunc("POST /api/calibration/apply", s.handleCalibrationApply)

	mux.HandleFunc("GET /api/ui/preferences", s.handleGetPreferences)
	mux.HandleFunc("POST /api/ui/preferences", s.handlePostPreferences)
	mux.HandleFunc("GET /api/ui/security", s.handleGetSecurity)
	mux.HandleFunc("POST /api/ui/security", s.handlePostSecurity)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("POST /api/schedule", s.handlePostSchedule)

	mux.HandleFunc("GET /api/wifi", s.handleWiFi)
	mux.HandleFunc("POST /api/wifi/reset", s.handleWiFiReset)
	mux.HandleFunc("POST /api/zigbee/send", s.handleZigbeeSend)

	mux.HandleFunc("GET /api/firmware/config", s.handleGetFirmwareConfig)
	mux.HandleFunc("POST /api/firmware/config", s.handlePostFirmwareConfig)
	mux.HandleFunc("GET /api/firmware/releases", s.handleFirmwareReleases)
	mux.HandleFunc("GET /api/firmware/probe", s.handleFirmwareProbe)
	mux.HandleFunc("POST /api/firmware/update", s.handleFirmwareUpdate)
	mux.HandleFunc("POST /api/firmware/upload/{kind}", s.handleFirmwareUpload)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})

	return s.metrics.instrument(s.cors(s.authenticate(mux)))
}
