// Package adminapi implements the admin API (C8): GET <base>/routes and
// POST <base>/route, translating requests into control messages consumed
// by the dispatch engine's control loop (spec.md §4.7).
package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/justinas/alice"

	"github.com/prilive-com/tgin/engine"
	"github.com/prilive-com/tgin/route"
)

// defaultEnqueueTimeout bounds how long a handler waits to place a
// message on the control channel before surfacing ControlEnqueueTimeout.
const defaultEnqueueTimeout = 2 * time.Second

// Option configures a Handler.
type Option func(*Handler)

// WithEnqueueTimeout overrides the default control-channel send timeout.
func WithEnqueueTimeout(d time.Duration) Option {
	return func(h *Handler) { h.enqueueTimeout = d }
}

// Handler serves the admin API's two endpoints.
type Handler struct {
	basePath       string
	control        chan<- engine.ControlMessage
	enqueueTimeout time.Duration
	logger         *slog.Logger
}

// New builds an admin API handler mounted under basePath, sending control
// messages on control.
func New(basePath string, control chan<- engine.ControlMessage, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		basePath:       basePath,
		control:        control,
		enqueueTimeout: defaultEnqueueTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount registers the admin endpoints on mux, wrapped in the same
// panic-recovery + logging middleware chain the teacher pack's reverse
// proxy uses.
func (h *Handler) Mount(mux *http.ServeMux) {
	chain := alice.New(h.recoverMiddleware, h.loggingMiddleware)
	mux.Handle("GET "+h.basePath+"/routes", chain.ThenFunc(h.getRoutes))
	mux.Handle("POST "+h.basePath+"/route", chain.ThenFunc(h.addRoute))
}

func (h *Handler) getRoutes(w http.ResponseWriter, r *http.Request) {
	reply := make(chan any, 1)
	msg := engine.GetRoutes{Reply: reply}

	if !h.enqueue(r, msg) {
		http.Error(w, "control channel unavailable", http.StatusInternalServerError)
		return
	}

	select {
	case desc := <-reply:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(desc)
	case <-time.After(h.enqueueTimeout):
		http.Error(w, "timed out waiting for route description", http.StatusInternalServerError)
	case <-r.Context().Done():
	}
}

type addRouteRequest struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
	Sublevel int    `json:"sublevel"`
}

func (h *Handler) addRoute(w http.ResponseWriter, r *http.Request) {
	var req addRouteRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	spec, err := toChildSpec(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := engine.AddRoute{Spec: spec, Sublevel: req.Sublevel}
	if !h.enqueue(r, msg) {
		http.Error(w, "control channel unavailable", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func toChildSpec(req addRouteRequest) (route.ChildSpec, error) {
	switch req.Type {
	case "webhook":
		if req.URL == "" {
			return route.ChildSpec{}, errors.New("webhook route requires url")
		}
		return route.ChildSpec{Kind: route.ChildWebhook, URL: req.URL}, nil
	case "longpoll":
		if req.Path == "" {
			return route.ChildSpec{}, errors.New("longpoll route requires path")
		}
		return route.ChildSpec{Kind: route.ChildLongPoll, Path: req.Path}, nil
	default:
		return route.ChildSpec{}, fmt.Errorf("unknown route type %q", req.Type)
	}
}

// enqueue sends msg on the control channel, bounded by enqueueTimeout and
// the request's own context. Returns false on timeout or a nil channel
// (no admin wiring configured upstream).
func (h *Handler) enqueue(r *http.Request, msg engine.ControlMessage) bool {
	if h.control == nil {
		return false
	}
	select {
	case h.control <- msg:
		return true
	case <-time.After(h.enqueueTimeout):
		return false
	case <-r.Context().Done():
		return false
	}
}
