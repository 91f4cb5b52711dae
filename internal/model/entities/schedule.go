package entities

// MaxScheduleEntries bounds the dose schedule table.
const MaxScheduleEntries = 8

// MaxScheduleNameLen is the maximum entry name length, in runes.
const MaxScheduleNameLen = 32

// AllWeekdays enables every day (bit0 = Monday ... bit6 = Sunday).
const AllWeekdays uint8 = 0x7F

// ScheduleEntry is a daily dosing slot.
type ScheduleEntry struct {
	Enabled      bool    `json:"enabled"`
	Hour         int     `json:"hour"`
	Minute       int     `json:"minute"`
	VolumeMl     float64 `json:"volumeMl"`
	Reverse      bool    `json:"reverse"`
	MotorID      int     `json:"motorId"`
	Name         string  `json:"name"`
	WeekdaysMask uint8   `json:"weekdaysMask"`
}

// Schedule is the full dose table plus the local time offset used to evaluate it.
type Schedule struct {
	TzOffsetMinutes int             `json:"tzOffsetMinutes"`
	Entries         []ScheduleEntry `json:"entries"`
}

// WeekdayEnabled reports whether the mask covers the given Go weekday (Sunday = 0).
func (e ScheduleEntry) WeekdayEnabled(wd int) bool {
	if wd < 0 || wd > 6 {
		return false
	}
	bit := wd - 1
	if wd == 0 {
		bit = 6
	}
	return e.WeekdaysMask&(1<<uint(bit)) != 0
}
