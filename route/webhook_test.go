package route_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/tgin/internal/testutil"
	"github.com/prilive-com/tgin/route"
	"github.com/prilive-com/tgin/tg"
)

func TestWebhook_Process_PostsBody(t *testing.T) {
	server := testutil.NewMockServer(t)

	wh := route.NewWebhook(server.BaseURL()+"/sink", nil)
	wh.Process(t.Context(), tg.NewUpdate([]byte(`{"update_id":42}`)))

	require.Equal(t, 1, server.CaptureCount())
	got := server.LastCapture()
	assert.JSONEq(t, `{"update_id":42}`, string(got.Body))
}

func TestWebhook_Describe(t *testing.T) {
	wh := route.NewWebhook("http://example.com/sink", nil)
	desc := wh.Describe().(map[string]any)
	assert.Equal(t, "webhook", desc["type"])
	opts := desc["options"].(map[string]any)
	assert.Equal(t, "http://example.com/sink", opts["url"])
}

func TestWebhook_AddChild_Unsupported(t *testing.T) {
	wh := route.NewWebhook("http://example.com/sink", nil)
	_, err := wh.AddChild(route.ChildSpec{Kind: route.ChildWebhook, URL: "http://x"})
	assert.ErrorIs(t, err, tg.ErrUnsupported)
}

func TestWebhook_Process_UnreachableDoesNotPanic(t *testing.T) {
	wh := route.NewWebhook("http://127.0.0.1:1/unreachable", nil)
	assert.NotPanics(t, func() {
		wh.Process(t.Context(), tg.NewUpdate([]byte(`{"update_id":1}`)))
	})
}
