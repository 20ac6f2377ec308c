package utils

import (
	"encoding/json"
	"net/http"
)

type Payload struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	Errors     any    `json:"errors,omitempty"`
}

// WriteJSON encodes v as the whole body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	WriteJSON(w, status, payload)
}

// ErrorResponse writes the normalized failure body {success:false, statusCode, message}.
func ErrorResponse(w http.ResponseWriter, status int, message string) {
	JSONResponse(w, status, Payload{
		Success:    false,
		StatusCode: status,
		Message:    message,
	})
}
