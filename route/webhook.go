package route

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/tgin/internal/httpclient"
	"github.com/prilive-com/tgin/internal/resilience"
	"github.com/prilive-com/tgin/tg"
)

// Webhook is a leaf route that forwards each update as an HTTP POST to a
// fixed downstream URL (C1), grounded on receiver's outbound client shape
// but with a single-attempt, fire-and-forget delivery contract. The
// outbound POST runs through a circuit breaker (mirroring
// source.LongPollSource's upstream GET) so a dead downstream trips open
// instead of piling up goroutines against it under Broadcast fan-out.
type Webhook struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// NewWebhook builds a webhook leaf posting to url.
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		url:    url,
		client: httpclient.NewDefault(),
		breaker: resilience.NewBreaker[struct{}](resilience.BreakerConfig{
			Name:         "tgin-webhook-route",
			MaxRequests:  5,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			Threshold:    5,
			FailureRatio: 0.6,
			MinRequests:  3,
		}),
		logger: logger,
	}
}

// Process issues one POST and ignores the response; failures (including
// an open breaker) are logged, never retried, never surfaced to the
// caller.
func (w *Webhook) Process(ctx context.Context, update tg.Update) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(update.Raw()))
	if err != nil {
		w.logger.Warn("webhook route: build request failed", "url", w.url, "error", err)
		return
	}

	_, err = w.breaker.Execute(func() (struct{}, error) {
		resp, err := httpclient.DoJSON(ctx, w.client, req)
		if err != nil {
			return struct{}{}, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
		return struct{}{}, nil
	})
	if err != nil {
		w.logger.Warn("webhook route: delivery failed", "url", w.url, "error", err)
	}
}

// Describe reports this leaf's type and target URL.
func (w *Webhook) Describe() any {
	return map[string]any{
		"type":    "webhook",
		"options": map[string]any{"url": w.url},
	}
}

// Mount contributes nothing; a webhook route is a pure outbound leaf.
func (w *Webhook) Mount(mux *http.ServeMux) {}

// AddChild always fails: leaves accept no children.
func (w *Webhook) AddChild(spec ChildSpec) (Route, error) {
	return nil, tg.ErrUnsupported
}
