package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error string `json:"error"`
}

type okBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps typed errors to status codes; anything untyped is a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case model.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// typeErrors names the message returned when a required field has the wrong JSON type.
var typeErrors = map[string]string{
	"litersPerHour": "litersPerHour is required",
	"volumeMl":      "volumeMl is required",
	"direction":     "direction is required (cw/ccw)",
	"payload":       "payload is required",
}

// decodeBody reads a JSON object into dst. An empty body counts as {}.
func decodeBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return model.Invalid("invalid json")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			if msg, ok := typeErrors[te.Field]; ok {
				return model.Invalid("%s", msg)
			}
		}
		return model.Invalid("invalid json")
	}
	return nil
}
