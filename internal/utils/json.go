package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds request bodies; inventory documents are small.
const maxBodyBytes = 1 << 20

var ErrNotObject = errors.New("request body must be a JSON object")

type errorBody struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

func JSONError(w http.ResponseWriter, message string, status int) {
	WriteJSON(w, status, errorBody{Message: message})
}

// DecodeObject decodes a request body that must be a non-null JSON object.
// Arrays, scalars, null and empty bodies are rejected with ErrNotObject.
func DecodeObject(r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrNotObject
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ErrNotObject
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	return nil
}
