package tg

import (
	"encoding/json"
	"fmt"
)

// Update is an opaque JSON document representing one chat event from the
// upstream bot API. The routing layer never interprets its shape beyond
// extracting update_id, and only the long-poll update source does that, for
// offset tracking.
type Update struct {
	raw json.RawMessage
}

// NewUpdate wraps a decoded JSON document as an Update.
func NewUpdate(raw json.RawMessage) Update {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Update{raw: cp}
}

// Raw returns the underlying JSON document.
func (u Update) Raw() json.RawMessage { return u.raw }

// UpdateID extracts the integer update_id field, if present.
// Returns 0, false if the field is absent or not an integer.
func (u Update) UpdateID() (int, bool) {
	if len(u.raw) == 0 {
		return 0, false
	}
	var probe struct {
		UpdateID *int `json:"update_id"`
	}
	if err := json.Unmarshal(u.raw, &probe); err != nil || probe.UpdateID == nil {
		return 0, false
	}
	return *probe.UpdateID, true
}

// MarshalJSON returns the update's raw document unchanged.
func (u Update) MarshalJSON() ([]byte, error) {
	if len(u.raw) == 0 {
		return []byte("null"), nil
	}
	return u.raw, nil
}

// UnmarshalJSON stores the document verbatim without interpreting it.
func (u *Update) UnmarshalJSON(data []byte) error {
	cp := make(json.RawMessage, len(data))
	copy(cp, data)
	u.raw = cp
	return nil
}

// String renders the update for logging; it never expands nested content
// beyond what's already in the JSON document.
func (u Update) String() string {
	if len(u.raw) == 0 {
		return "<empty update>"
	}
	if id, ok := u.UpdateID(); ok {
		return fmt.Sprintf("update#%d", id)
	}
	return "update(no update_id)"
}
