package messages

import "github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"

// Settings is the read model for GET /api/settings.
type Settings struct {
	MotorID              int            `json:"motorId"`
	MlPerRevCw           float64        `json:"mlPerRevCw"`
	MlPerRevCcw          float64        `json:"mlPerRevCcw"`
	DosingFlowLph        float64        `json:"dosingFlowLph"`
	MaxFlowLph           float64        `json:"maxFlowLph"`
	NtpServer            string         `json:"ntpServer"`
	GrowthProgramEnabled bool           `json:"growthProgramEnabled"`
	PhRegulationEnabled  bool           `json:"phRegulationEnabled"`
	Expansion            ExpansionState `json:"expansion"`
}

// ExpansionUpdate is the optional expansion block of a settings update.
type ExpansionUpdate struct {
	Enabled    *bool                        `json:"enabled,omitempty"`
	MotorCount *int                         `json:"motorCount,omitempty"`
	Interface  *entities.ExpansionInterface `json:"interface,omitempty"`
}

// SettingsUpdate is a sparse update; nil fields are left untouched.
type SettingsUpdate struct {
	MlPerRevCw           *float64         `json:"mlPerRevCw,omitempty"`
	MlPerRevCcw          *float64         `json:"mlPerRevCcw,omitempty"`
	DosingFlowLph        *float64         `json:"dosingFlowLph,omitempty"`
	MaxFlowLph           *float64         `json:"maxFlowLph,omitempty"`
	NtpServer            *string          `json:"ntpServer,omitempty"`
	GrowthProgramEnabled *bool            `json:"growthProgramEnabled,omitempty"`
	PhRegulationEnabled  *bool            `json:"phRegulationEnabled,omitempty"`
	Expansion            *ExpansionUpdate `json:"expansion,omitempty"`
}
