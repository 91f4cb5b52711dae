package network

import (
	"sync"

	"go.uber.org/zap"
)

// ConfigPortalSSID is the access point the device opens after a Wi-Fi reset.
const ConfigPortalSSID = "PeristalticPump-Setup"

type WiFiStatus struct {
	Connected        bool   `json:"wifiConnected"`
	SSID             string `json:"ssid"`
	IP               string `json:"ip"`
	ConfigPortalSSID string `json:"configPortalSsid"`
}

// WiFi simulates the station interface of the controller.
type WiFi struct {
	mu        sync.RWMutex
	connected bool
	ssid      string
	ip        string
	log       *zap.Logger
}

func NewWiFi(ssid, ip string, logger *zap.Logger) *WiFi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WiFi{connected: true, ssid: ssid, ip: ip, log: logger}
}

func (w *WiFi) Status() WiFiStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WiFiStatus{Connected: w.connected, SSID: w.ssid, IP: w.ip, ConfigPortalSSID: ConfigPortalSSID}
}

// Reset forgets the stored credentials; the station stays disconnected.
func (w *WiFi) Reset() {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	w.log.Info("wifi settings reset, config portal would open", zap.String("portal_ssid", ConfigPortalSSID))
}
