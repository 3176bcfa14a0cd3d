package source

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/prilive-com/tgin/tg"
)

const defaultWebhookMaxBodySize = 1 << 20 // 1MB

// WebhookRegistration holds the one-shot auto-registration call made at
// Start, mirroring the upstream setWebhook call (spec §4.5).
type WebhookRegistration struct {
	// SetWebhookURL is the upstream endpoint to POST the registration to.
	SetWebhookURL string
	// PublicBaseURL is this engine's externally reachable base, with any
	// trailing slash stripped before concatenation with Path.
	PublicBaseURL string
	// Token is included in logs only in redacted form.
	Token tg.SecretToken
}

// WebhookOption configures a WebhookSource.
type WebhookOption func(*WebhookSource)

// WithWebhookRateLimit sets ingress rate limiting (ambient hardening, not
// required by the spec's fire-and-forget contract).
func WithWebhookRateLimit(rps float64, burst int) WebhookOption {
	return func(s *WebhookSource) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithWebhookSecret requires a matching X-Tgin-Secret-Token header,
// compared in constant time.
func WithWebhookSecret(secret string) WebhookOption {
	return func(s *WebhookSource) { s.secret = secret }
}

// WithWebhookMaxBodySize overrides the default 1MB request body cap.
func WithWebhookMaxBodySize(n int64) WebhookOption {
	return func(s *WebhookSource) { s.maxBodySize = n }
}

// WebhookSource exposes an HTTP endpoint that accepts updates pushed from
// upstream (C6), generalized from receiver.WebhookHandler.
type WebhookSource struct {
	path         string
	registration *WebhookRegistration
	logger       *slog.Logger

	limiter     *rate.Limiter
	secret      string
	maxBodySize int64
	bufferPool  sync.Pool

	out chan<- tg.Update
}

// NewWebhookSource builds a webhook update source listening on path.
// registration may be nil if auto-registration is not configured.
func NewWebhookSource(path string, registration *WebhookRegistration, logger *slog.Logger, opts ...WebhookOption) *WebhookSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WebhookSource{
		path:         path,
		registration: registration,
		logger:       logger,
		maxBodySize:  defaultWebhookMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bufferPool = sync.Pool{
		New: func() any {
			b := make([]byte, s.maxBodySize)
			return &b
		},
	}
	return s
}

// Start performs one-shot registration, if configured, then returns.
// The webhook source's ongoing work happens in the mounted HTTP handler,
// not in Start's goroutine.
func (s *WebhookSource) Start(ctx context.Context, out chan<- tg.Update) error {
	s.out = out

	if s.registration == nil {
		return nil
	}

	base := strings.TrimSuffix(s.registration.PublicBaseURL, "/")
	payload := map[string]string{"url": base + s.path}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.registration.SetWebhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("webhook registration: build request failed", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.logger.Warn("webhook registration: transport error", "error", err)
		return nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	s.logger.Info("webhook registered", "url", payload["url"], "status", resp.StatusCode)
	return nil
}

// Mount registers POST <path> on mux.
func (s *WebhookSource) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST "+s.path, s.serveHTTP)
}

func (s *WebhookSource) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if s.secret != "" {
		got := r.Header.Get("X-Tgin-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	bufPtr := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(bufPtr)
	buffer := *bufPtr

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	n := copy(buffer, body)

	var probe json.RawMessage
	if err := json.Unmarshal(buffer[:n], &probe); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	u := tg.NewUpdate(probe)
	if s.out != nil {
		select {
		case s.out <- u:
		default:
			s.logger.Warn("webhook source: update channel full, dropping", "update", u.String())
		}
	}

	w.WriteHeader(http.StatusOK)
}
