// Package httpx holds the JSON envelope both HTTP services answer with.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RawEnvelope is Envelope with data left undecoded, for handlers that rewrite
// an upstream body.
type RawEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func Success(w http.ResponseWriter, code int, message string, data any) {
	JSON(w, code, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

func Error(w http.ResponseWriter, code int, message string) {
	JSON(w, code, Envelope{Status: StatusError, Message: message, Error: message})
}

// DecodeJSON decodes a request body. An empty body leaves v untouched.
func DecodeJSON(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}
