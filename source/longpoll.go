package source

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/prilive-com/tgin/internal/resilience"
	"github.com/prilive-com/tgin/internal/scrub"
	"github.com/prilive-com/tgin/tg"
)

const (
	longPollQueryTimeoutSeconds = 30
	longPollQueryLimit          = 100
	maxPollResponseSize         = 50 << 20
)

// LongPollOption configures a LongPollSource.
type LongPollOption func(*LongPollSource)

// WithLongPollHTTPClient sets a custom HTTP client.
func WithLongPollHTTPClient(client *http.Client) LongPollOption {
	return func(s *LongPollSource) { s.client = client }
}

// WithLongPollCircuitBreaker sets a custom circuit breaker.
func WithLongPollCircuitBreaker(cb *gobreaker.CircuitBreaker[[]byte]) LongPollOption {
	return func(s *LongPollSource) { s.breaker = cb }
}

// LongPollSource pulls updates from an upstream getUpdates-style endpoint
// (C5). It mirrors receiver.PollingClient's shape (functional options,
// circuit breaker, token redaction) generalized to an arbitrary upstream
// URL instead of a hardcoded Telegram API base.
type LongPollSource struct {
	token   tg.SecretToken
	url     string
	logger  *slog.Logger
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	defaultSleep time.Duration
	errorSleep   time.Duration

	offset atomic.Int64
}

// NewLongPollSource builds a long-poll update source.
//
// url is the fully-formed upstream getUpdates endpoint (e.g.
// "https://api.telegram.org/bot<token>/getUpdates" or any opaque
// getUpdates-shaped endpoint); the offset/timeout/limit query is appended
// to it as is. token is appended to logs only in redacted form — the caller
// is responsible for including it in url if the upstream requires it in
// the path.
func NewLongPollSource(token tg.SecretToken, upstreamURL string, defaultSleep, errorSleep time.Duration, logger *slog.Logger, opts ...LongPollOption) *LongPollSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LongPollSource{
		token:        token,
		url:          upstreamURL,
		logger:       logger,
		client:       defaultLongPollHTTPClient(),
		defaultSleep: defaultSleep,
		errorSleep:   errorSleep,
	}
	s.breaker = resilience.NewBreaker[[]byte](resilience.BreakerConfig{
		Name:         "tgin-longpoll-source",
		MaxRequests:  5,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		Threshold:    5,
		FailureRatio: 0.6,
		MinRequests:  3,
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultLongPollHTTPClient() *http.Client {
	return &http.Client{
		Timeout: (longPollQueryTimeoutSeconds + 10) * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: (longPollQueryTimeoutSeconds + 5) * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// Mount contributes nothing; the long-poll source is a pure outbound puller.
func (s *LongPollSource) Mount(mux *http.ServeMux) {}

// Start runs the poll loop described in spec §4.4 until ctx is cancelled.
// It does not detect a consumer that stops reading out on its own; a send
// on out waits until it is received or ctx is cancelled.
func (s *LongPollSource) Start(ctx context.Context, out chan<- tg.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		body, err := s.fetch(ctx)
		if err != nil {
			s.logger.Warn("longpoll source: transport or parse failure",
				"error", err, "sleep", s.errorSleep)
			if !s.sleep(ctx, s.errorSleep) {
				return nil
			}
			continue
		}

		var resp struct {
			OK     bool              `json:"ok"`
			Result []json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			s.logger.Warn("longpoll source: parse error", "error", err, "sleep", s.errorSleep)
			if !s.sleep(ctx, s.errorSleep) {
				return nil
			}
			continue
		}

		for _, raw := range resp.Result {
			u := tg.NewUpdate(raw)
			id, ok := u.UpdateID()
			if !ok {
				continue
			}
			s.offset.Store(int64(id) + 1)
			select {
			case out <- u:
			case <-ctx.Done():
				return nil
			}
		}

		if !s.sleep(ctx, s.defaultSleep) {
			return nil
		}
	}
}

// sleep waits for d (jittered ±10% to avoid thundering-herd alignment
// across multiple sources) or returns false if ctx is cancelled first.
func (s *LongPollSource) sleep(ctx context.Context, d time.Duration) bool {
	jittered := jitter(d)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(jittered):
		return true
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	span := int64(base) / 10 // +/-10%
	if span <= 0 {
		return base
	}
	n, err := rand.Int(rand.Reader, big.NewInt(span*2))
	if err != nil {
		return base
	}
	return base - time.Duration(span) + time.Duration(n.Int64())
}

func (s *LongPollSource) fetch(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(s.offset.Load(), 10))
	params.Set("timeout", strconv.Itoa(longPollQueryTimeoutSeconds))
	params.Set("limit", strconv.Itoa(longPollQueryLimit))

	apiURL := fmt.Sprintf("%s?%s", s.url, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", tg.ErrTransport, err)
	}

	body, err := s.breaker.Execute(func() ([]byte, error) {
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, scrub.TokenFromError(err, s.token)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		limited := io.LimitReader(resp.Body, maxPollResponseSize+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > maxPollResponseSize {
			return nil, errors.New("response too large")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tg.ErrTransport, err)
	}
	return body, nil
}

// Offset returns the current next-offset, for observability.
func (s *LongPollSource) Offset() int64 { return s.offset.Load() }
