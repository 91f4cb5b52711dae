package api

import (
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/firmware"
)

type motorRequest struct {
	MotorID messages.MotorID `json:"motorId"`
}

type stopRequest struct {
	MotorID   messages.MotorID `json:"motorId"`
	Emergency bool             `json:"emergency"`
}

type flowRequest struct {
	MotorID       messages.MotorID `json:"motorId"`
	LitersPerHour *float64         `json:"litersPerHour"`
	Reverse       bool             `json:"reverse"`
}

type dosingRequest struct {
	MotorID  messages.MotorID `json:"motorId"`
	VolumeMl *float64         `json:"volumeMl"`
	Reverse  bool             `json:"reverse"`
}

type calibrationRunRequest struct {
	MotorID     messages.MotorID `json:"motorId"`
	Direction   *string          `json:"direction"`
	Revolutions *float64         `json:"revolutions"`
}

type calibrationApplyRequest struct {
	MotorID     messages.MotorID `json:"motorId"`
	Direction   *string          `json:"direction"`
	MeasuredMl  *float64         `json:"measuredMl"`
	Revolutions *float64         `json:"revolutions"`
}

type settingsRequest struct {
	MotorID messages.MotorID `json:"motorId"`
	messages.SettingsUpdate
}

type preferencesRequest struct {
	Reverse  *bool            `json:"reverse"`
	MotorID  messages.MotorID `json:"motorId"`
	Language *string          `json:"language"`
}

type securityRequest struct {
	Enabled  *bool   `json:"enabled"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type scheduleEntryRequest struct {
	Enabled      bool    `json:"enabled"`
	Hour         int     `json:"hour"`
	Minute       int     `json:"minute"`
	VolumeMl     float64 `json:"volumeMl"`
	Reverse      bool    `json:"reverse"`
	MotorID      int     `json:"motorId"`
	Name         string  `json:"name"`
	WeekdaysMask *uint8  `json:"weekdaysMask"`
}

type scheduleRequest struct {
	TzOffsetMinutes *int                    `json:"tzOffsetMinutes"`
	Entries         *[]scheduleEntryRequest `json:"entries"`
}

type zigbeeRequest struct {
	Payload *string `json:"payload"`
}

type firmwareUpdateRequest struct {
	Mode          string `json:"mode"`
	Tag           string `json:"tag"`
	URL           string `json:"url"`
	FilesystemURL string `json:"filesystemUrl"`
	FsURL         string `json:"fsUrl"` // older UI builds
}

func (r firmwareUpdateRequest) toUpdate() firmware.UpdateRequest {
	fs := r.FilesystemURL
	if fs == "" {
		fs = r.FsURL
	}
	return firmware.UpdateRequest{Mode: r.Mode, Tag: r.Tag, URL: r.URL, FilesystemURL: fs}
}

// stateResponse is the snapshot plus the network fields the UI shows next to it.
type stateResponse struct {
	messages.Snapshot
	WiFiConnected bool   `json:"wifiConnected"`
	SSID          string `json:"ssid"`
	IP            string `json:"ip"`
}

type settingsResponse struct {
	messages.Settings
	FirmwareUpdate firmware.Config `json:"firmwareUpdate"`
}
