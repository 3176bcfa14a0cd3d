package source_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/tgin/source"
	"github.com/prilive-com/tgin/tg"
)

func TestWebhookSource_PublishesUpdate(t *testing.T) {
	ws := source.NewWebhookSource("/bot/incoming", nil, nil)
	mux := http.NewServeMux()
	ws.Mount(mux)

	out := make(chan tg.Update, 1)
	require.NoError(t, ws.Start(t.Context(), out))

	req := httptest.NewRequest(http.MethodPost, "/bot/incoming", bytes.NewBufferString(`{"update_id":5}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case u := <-out:
		id, ok := u.UpdateID()
		require.True(t, ok)
		assert.Equal(t, 5, id)
	case <-time.After(time.Second):
		t.Fatal("expected update to be published")
	}
}

func TestWebhookSource_InvalidJSON(t *testing.T) {
	ws := source.NewWebhookSource("/bot/incoming", nil, nil)
	mux := http.NewServeMux()
	ws.Mount(mux)
	require.NoError(t, ws.Start(t.Context(), make(chan tg.Update, 1)))

	req := httptest.NewRequest(http.MethodPost, "/bot/incoming", bytes.NewBufferString(`not json`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookSource_ChannelFullStillReturns200(t *testing.T) {
	ws := source.NewWebhookSource("/bot/incoming", nil, nil)
	mux := http.NewServeMux()
	ws.Mount(mux)

	out := make(chan tg.Update) // unbuffered, nobody reading
	require.NoError(t, ws.Start(t.Context(), out))

	req := httptest.NewRequest(http.MethodPost, "/bot/incoming", bytes.NewBufferString(`{"update_id":1}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookSource_SecretRequired(t *testing.T) {
	ws := source.NewWebhookSource("/bot/incoming", nil, nil, source.WithWebhookSecret("s3cr3t"))
	mux := http.NewServeMux()
	ws.Mount(mux)
	require.NoError(t, ws.Start(t.Context(), make(chan tg.Update, 1)))

	req := httptest.NewRequest(http.MethodPost, "/bot/incoming", bytes.NewBufferString(`{"update_id":1}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/bot/incoming", bytes.NewBufferString(`{"update_id":1}`))
	req2.Header.Set("X-Tgin-Secret-Token", "s3cr3t")
	w2 := httptest.NewRecorder()
	mux.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestWebhookSource_AutoRegistration(t *testing.T) {
	var gotURL string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotURL = body["url"]
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer upstream.Close()

	ws := source.NewWebhookSource("/bot/incoming", &source.WebhookRegistration{
		SetWebhookURL: upstream.URL + "/setWebhook",
		PublicBaseURL: "https://example.com/",
		Token:         tg.SecretToken("123:ABC"),
	}, nil)

	require.NoError(t, ws.Start(t.Context(), make(chan tg.Update, 1)))
	assert.Equal(t, "https://example.com/bot/incoming", gotURL)
}
