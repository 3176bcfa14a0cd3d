package tg_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/tgin/tg"
)

func TestUpdate_UpdateID(t *testing.T) {
	u := tg.NewUpdate(json.RawMessage(`{"update_id":42,"message":{"text":"hi"}}`))
	id, ok := u.UpdateID()
	require.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestUpdate_UpdateID_Absent(t *testing.T) {
	u := tg.NewUpdate(json.RawMessage(`{"message":{"text":"hi"}}`))
	_, ok := u.UpdateID()
	assert.False(t, ok)
}

func TestUpdate_MarshalRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"update_id":7,"x":"y"}`)
	u := tg.NewUpdate(raw)

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))

	var u2 tg.Update
	require.NoError(t, json.Unmarshal(out, &u2))
	id, ok := u2.UpdateID()
	require.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestUpdate_OpaqueFieldsPreserved(t *testing.T) {
	raw := json.RawMessage(`{"update_id":1,"callback_query":{"id":"abc","nested":{"a":1}}}`)
	u := tg.NewUpdate(raw)
	assert.JSONEq(t, string(raw), string(u.Raw()))
}

func TestUpdate_String(t *testing.T) {
	u := tg.NewUpdate(json.RawMessage(`{"update_id":5}`))
	assert.Equal(t, "update#5", u.String())

	empty := tg.Update{}
	assert.Equal(t, "<empty update>", empty.String())
}
