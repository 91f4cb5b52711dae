package api

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// ===================== UI preferences =====================

type preferences struct {
	mu       sync.Mutex
	language string
	reverse  [1 + entities.MaxExpansionMotors]bool
}

func newPreferences() *preferences {
	return &preferences{language: "en"}
}

type preferencesResponse struct {
	Reverse          bool   `json:"reverse"`
	MotorID          int    `json:"motorId"`
	ActiveMotorCount int    `json:"activeMotorCount"`
	Language         string `json:"language"`
	ReverseByMotor   []bool `json:"reverseByMotor"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.cfg.Engine.State(messages.MotorID{})
	if err != nil {
		writeError(w, err)
		return
	}
	s.prefs.mu.Lock()
	defer s.prefs.mu.Unlock()
	writeJSON(w, http.StatusOK, preferencesResponse{
		Reverse:          s.prefs.reverse[snap.SelectedMotorID],
		MotorID:          snap.SelectedMotorID,
		ActiveMotorCount: snap.ActiveMotorCount,
		Language:         s.prefs.language,
		ReverseByMotor:   append([]bool{}, s.prefs.reverse[:snap.ActiveMotorCount]...),
	})
}

// handlePostPreferences validates every field before applying any. The reverse
// flag belongs to the motor selected before this request.
func (s *Server) handlePostPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Reverse == nil && !req.MotorID.Set && req.Language == nil {
		writeError(w, model.Invalid("at least one field is required: reverse, motorId or language"))
		return
	}
	if req.Language != nil && *req.Language != "en" && *req.Language != "ru" {
		writeError(w, model.Invalid("language must be en or ru"))
		return
	}

	before, err := s.cfg.Engine.State(messages.MotorID{})
	if err != nil {
		writeError(w, err)
		return
	}
	if req.MotorID.Set {
		if _, err := s.cfg.Engine.SelectMotor(req.MotorID); err != nil {
			writeError(w, err)
			return
		}
	}

	s.prefs.mu.Lock()
	if req.Reverse != nil {
		s.prefs.reverse[before.SelectedMotorID] = *req.Reverse
	}
	if req.Language != nil {
		s.prefs.language = *req.Language
	}
	s.prefs.mu.Unlock()

	snap, err := s.cfg.Engine.State(messages.MotorID{})
	s.respondState(w, snap, err)
}

// ===================== UI security =====================

type security struct {
	mu       sync.RWMutex
	enabled  bool
	username string
	password string
}

func newSecurity() *security {
	return &security{username: "admin", password: "admin"}
}

// allows reports whether the request may proceed.
func (sec *security) allows(r *http.Request) bool {
	sec.mu.RLock()
	defer sec.mu.RUnlock()
	if !sec.enabled {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(sec.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(sec.password)) == 1
	return userOK && passOK
}

type securityResponse struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username"`
}

func (s *Server) securityView() securityResponse {
	s.security.mu.RLock()
	defer s.security.mu.RUnlock()
	return securityResponse{Enabled: s.security.enabled, Username: s.security.username}
}

func (s *Server) handleGetSecurity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.securityView())
}

func (s *Server) handlePostSecurity(w http.ResponseWriter, r *http.Request) {
	var req securityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username != nil && *req.Username == "" {
		writeError(w, model.Invalid("username cannot be empty"))
		return
	}
	if req.Password != nil && *req.Password == "" {
		writeError(w, model.Invalid("password cannot be empty"))
		return
	}

	s.security.mu.Lock()
	if req.Enabled != nil {
		s.security.enabled = *req.Enabled
	}
	if req.Username != nil {
		s.security.username = *req.Username
	}
	if req.Password != nil {
		s.security.password = *req.Password
	}
	s.security.mu.Unlock()

	s.log.Info("ui security updated")
	writeJSON(w, http.StatusOK, s.securityView())
}

// ===================== dose schedule =====================

type scheduleEntryResponse struct {
	ID int `json:"id"`
	entities.ScheduleEntry
}

type scheduleResponse struct {
	TzOffsetMinutes int                     `json:"tzOffsetMinutes"`
	Entries         []scheduleEntryResponse `json:"entries"`
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	sch := s.cfg.Schedule.Get()
	out := scheduleResponse{TzOffsetMinutes: sch.TzOffsetMinutes, Entries: []scheduleEntryResponse{}}
	for i, e := range sch.Entries {
		// empty slots are not reported
		if e.VolumeMl <= 0 {
			continue
		}
		out.Entries = append(out.Entries, scheduleEntryResponse{ID: i, ScheduleEntry: e})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TzOffsetMinutes != nil && (*req.TzOffsetMinutes < -720 || *req.TzOffsetMinutes > 840) {
		writeError(w, model.Invalid("tzOffsetMinutes must be between -720 and 840"))
		return
	}

	if req.TzOffsetMinutes != nil {
		s.cfg.Schedule.SetTzOffset(*req.TzOffsetMinutes)
	}
	if req.Entries != nil {
		sch := entities.Schedule{TzOffsetMinutes: s.cfg.Schedule.Get().TzOffsetMinutes}
		for _, e := range *req.Entries {
			mask := entities.AllWeekdays
			if e.WeekdaysMask != nil {
				mask = *e.WeekdaysMask
			}
			sch.Entries = append(sch.Entries, entities.ScheduleEntry{
				Enabled:      e.Enabled,
				Hour:         e.Hour,
				Minute:       e.Minute,
				VolumeMl:     e.VolumeMl,
				Reverse:      e.Reverse,
				MotorID:      e.MotorID,
				Name:         e.Name,
				WeekdaysMask: mask,
			})
		}
		s.cfg.Schedule.Replace(sch, s.cfg.Engine.ActiveMotorCount())
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}
