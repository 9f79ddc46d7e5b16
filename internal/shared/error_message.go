package shared

import (
	"encoding/json"
	"net/http"
)

// ErrorMessage is the JSON form of an API error.
type ErrorMessage struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// ParseErrorMessage returns the message if body is a JSON error message.
func ParseErrorMessage(body []byte) (ErrorMessage, bool) {
	var msg ErrorMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.Error == "" {
		return ErrorMessage{}, false
	}
	return msg, true
}

// WriteErrorMessage sends a JSON error message with the HTTP status.
func WriteErrorMessage(w http.ResponseWriter, code int, msg ErrorMessage) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(msg)
}
