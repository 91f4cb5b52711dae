package messages

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MotorID is a client-supplied motor id. It accepts a JSON integer or a
// numeric string; booleans and anything else are kept as invalid so the
// caller can answer "invalid motorId" instead of a decode error.
type MotorID struct {
	Set   bool
	Valid bool
	Value int
}

// Motor builds a valid, explicitly set id.
func Motor(id int) MotorID {
	return MotorID{Set: true, Valid: true, Value: id}
}

func (m *MotorID) UnmarshalJSON(b []byte) error {
	*m = MotorID{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	m.Set = true

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && x >= 0 && x <= math.MaxInt32 {
			m.Value, m.Valid = int(x), true
		}
	case string:
		if strings.TrimSpace(x) != "" {
			*m = ParseMotorID(x)
		}
	case bool:
		// not a number, whatever the decoder thinks
	}
	return nil
}

func (m MotorID) MarshalJSON() ([]byte, error) {
	if !m.Set || !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// ParseMotorID parses a query-string value; an empty string means "not set".
func ParseMotorID(raw string) MotorID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MotorID{}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return MotorID{Set: true}
	}
	return MotorID{Set: true, Valid: true, Value: n}
}
