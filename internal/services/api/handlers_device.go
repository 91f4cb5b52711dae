package api

import (
	"io"
	"net/http"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/firmware"
)

func (s *Server) handleWiFi(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.WiFi.Status())
}

func (s *Server) handleWiFiReset(w http.ResponseWriter, _ *http.Request) {
	s.cfg.WiFi.Reset()
	writeJSON(w, http.StatusOK, okBody{OK: true, Message: "Wi-Fi settings reset. Device will reboot to AP config portal."})
}

func (s *Server) handleZigbeeSend(w http.ResponseWriter, r *http.Request) {
	var req zigbeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Payload == nil {
		writeError(w, model.Invalid("payload is required"))
		return
	}
	if err := s.cfg.Zigbee.Send(*req.Payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// ===================== firmware =====================

type releasesResponse struct {
	firmware.Config
	Releases []firmware.Release `json:"releases"`
}

func (s *Server) handleGetFirmwareConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Firmware.Config())
}

func (s *Server) handlePostFirmwareConfig(w http.ResponseWriter, r *http.Request) {
	var req firmware.ConfigUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Firmware.UpdateConfig(req))
}

func (s *Server) handleFirmwareReleases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, releasesResponse{
		Config:   s.cfg.Firmware.Config(),
		Releases: s.cfg.Firmware.Releases(r.Context()),
	})
}

func (s *Server) handleFirmwareProbe(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Firmware.Probe(r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFirmwareUpdate(w http.ResponseWriter, r *http.Request) {
	var req firmwareUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.cfg.Firmware.Update(r.Context(), req.toUpdate())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFirmwareUpload(w http.ResponseWriter, r *http.Request) {
	n, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		writeError(w, model.Invalid("upload failed"))
		return
	}
	res, err := s.cfg.Firmware.Upload(r.PathValue("kind"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
