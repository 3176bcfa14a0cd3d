package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// TelegramEnvelope is the standard upstream bot API response envelope
// (`{"ok":..., "result":...}`), reused by mocks of both the getUpdates
// long-poll endpoint and the setWebhook registration call.
type TelegramEnvelope struct {
	OK          bool        `json:"ok"`
	Result      any         `json:"result,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
	Parameters  *Parameters `json:"parameters,omitempty"`
}

// Parameters contains optional error parameters (e.g., retry_after).
type Parameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// ReplyOK writes a successful envelope response.
func ReplyOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(TelegramEnvelope{
		OK:     true,
		Result: result,
	})
}

// ReplyError writes an error envelope response with code as the HTTP status.
func ReplyError(w http.ResponseWriter, code int, description string, params *Parameters) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(TelegramEnvelope{
		OK:          false,
		ErrorCode:   code,
		Description: description,
		Parameters:  params,
	})
}

// ReplyRateLimit writes a 429 rate limit response with retry_after in both
// JSON and the HTTP header.
func ReplyRateLimit(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	ReplyError(w, 429, "Too Many Requests: retry after "+strconv.Itoa(retryAfter), &Parameters{
		RetryAfter: retryAfter,
	})
}

// ReplyServerError writes a 5xx server error response.
func ReplyServerError(w http.ResponseWriter, code int, description string) {
	ReplyError(w, code, description, nil)
}

// ReplyUpdates writes a successful getUpdates-shaped response: a JSON array
// of raw update documents under "result".
func ReplyUpdates(w http.ResponseWriter, updates []json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":[`))
	for i, u := range updates {
		if i > 0 {
			_, _ = w.Write([]byte(","))
		}
		_, _ = w.Write(u)
	}
	_, _ = w.Write([]byte("]}"))
}

// ReplyEmptyUpdates writes an empty getUpdates response.
func ReplyEmptyUpdates(w http.ResponseWriter) {
	ReplyOK(w, []json.RawMessage{})
}
