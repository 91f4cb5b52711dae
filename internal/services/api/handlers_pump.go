package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/telemetry"
)

func (s *Server) respondState(w http.ResponseWriter, snap messages.Snapshot, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	wifi := s.cfg.WiFi.Status()
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:      snap,
		WiFiConnected: wifi.Connected,
		SSID:          wifi.SSID,
		IP:            wifi.IP,
	})
}

// queryMotor reads ?motorId=; absent means "use the default".
func queryMotor(r *http.Request) messages.MotorID {
	if !r.URL.Query().Has("motorId") {
		return messages.MotorID{}
	}
	id := messages.ParseMotorID(r.URL.Query().Get("motorId"))
	id.Set = true
	return id
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cfg.Engine.State(queryMotor(r))
	s.respondState(w, snap, err)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req motorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.cfg.Engine.StartMotor(req.MotorID)
	s.respondState(w, snap, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.cfg.Engine.StopMotor(req.MotorID, req.Emergency)
	s.respondState(w, snap, err)
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.LitersPerHour == nil {
		writeError(w, model.Invalid("litersPerHour is required"))
		return
	}
	snap, err := s.cfg.Engine.SetFlow(req.MotorID, *req.LitersPerHour, req.Reverse)
	s.respondState(w, snap, err)
}

func (s *Server) handleDosing(w http.ResponseWriter, r *http.Request) {
	var req dosingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.VolumeMl == nil {
		writeError(w, model.Invalid("volumeMl is required"))
		return
	}
	snap, err := s.cfg.Engine.StartDosing(req.MotorID, *req.VolumeMl, req.Reverse)
	s.respondState(w, snap, err)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.cfg.Engine.Settings(queryMotor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: set, FirmwareUpdate: s.cfg.Firmware.Config()})
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.cfg.Engine.UpdateSettings(req.MotorID, req.SettingsUpdate)
	s.respondState(w, snap, err)
}

func parseDirection(d *string) (entities.Direction, error) {
	if d == nil {
		return "", model.Invalid("direction is required (cw/ccw)")
	}
	dir, ok := entities.ParseDirection(*d)
	if !ok {
		return "", model.Invalid("direction is required (cw/ccw)")
	}
	return dir, nil
}

func (s *Server) handleCalibrationRun(w http.ResponseWriter, r *http.Request) {
	var req calibrationRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	dir, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	revs := float64(pumpsim.DefaultCalibrationRevolutions)
	if req.Revolutions != nil {
		revs = *req.Revolutions
	}
	snap, err := s.cfg.Engine.CalibrationRun(req.MotorID, dir, revs)
	s.respondState(w, snap, err)
}

func (s *Server) handleCalibrationApply(w http.ResponseWriter, r *http.Request) {
	var req calibrationApplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	dir, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	measured, revs := -1.0, -1.0
	if req.MeasuredMl != nil {
		measured = *req.MeasuredMl
	}
	if req.Revolutions != nil {
		revs = *req.Revolutions
	}
	snap, err := s.cfg.Engine.CalibrationApply(req.MotorID, dir, measured, revs)
	s.respondState(w, snap, err)
}

// GET /api/dosing/history?source=auto|influx|memory&minutes=1440&limit=20
// auto tries Influx and falls back to the in-memory history.
func (s *Server) handleDosingHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := strings.ToLower(strings.TrimSpace(q.Get("source")))
	if source == "" {
		source = "auto"
	}
	minutes := queryInt(q.Get("minutes"), 1440, 1, 7*24*60)
	limit := queryInt(q.Get("limit"), 20, 1, 500)

	var (
		out  []telemetry.DosingRecord
		used string
	)
	if (source == "auto" || source == "influx") && s.cfg.InfluxHistory != nil {
		recs, err := s.cfg.InfluxHistory.Recent(r.Context(), minutes, limit)
		if err == nil {
			out, used = recs, "influx"
		} else {
			s.log.Warn("dosing history query failed", zap.Error(err))
		}
	}
	if used == "" {
		out, used = s.cfg.History.Recent(limit), "memory"
	}
	w.Header().Set("X-Data-Source", used)
	writeJSON(w, http.StatusOK, out)
}

func queryInt(v string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}
