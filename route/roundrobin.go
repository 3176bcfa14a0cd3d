package route

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prilive-com/tgin/tg"
)

// RoundRobin is an interior balancer that delivers each update to exactly
// one child, cycling through them in order (C3).
type RoundRobin struct {
	mu       sync.RWMutex
	children []Route

	counter  atomic.Uint64
	registry Registry
	logger   *slog.Logger
}

// NewRoundRobin builds a round-robin balancer over the given initial
// children.
func NewRoundRobin(registry Registry, logger *slog.Logger, children ...Route) *RoundRobin {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundRobin{
		children: append([]Route(nil), children...),
		registry: registry,
		logger:   logger,
	}
}

// Process snapshots the current children under a read lock, releases the
// lock, then invokes the chosen child synchronously so a slow downstream
// never blocks AddChild.
func (rr *RoundRobin) Process(ctx context.Context, update tg.Update) {
	rr.mu.RLock()
	n := len(rr.children)
	if n == 0 {
		rr.mu.RUnlock()
		return
	}
	idx := int(rr.counter.Add(1)-1) % n
	child := rr.children[idx]
	rr.mu.RUnlock()

	child.Process(ctx, update)
}

// Describe reports this balancer's type and its children's descriptions,
// reflecting the live child set at the moment of the call.
func (rr *RoundRobin) Describe() any {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	routes := make([]any, len(rr.children))
	for i, c := range rr.children {
		routes[i] = c.Describe()
	}
	return map[string]any{
		"type":   "load-balancer",
		"name":   "round-robin",
		"routes": routes,
	}
}

// Mount recursively mounts every child's HTTP contribution.
func (rr *RoundRobin) Mount(mux *http.ServeMux) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	for _, c := range rr.children {
		c.Mount(mux)
	}
}

// AddChild builds the child described by spec and appends it. A long-poll
// child is registered into the dynamic registry atomically with the
// append; failure to register leaves the child list unchanged.
func (rr *RoundRobin) AddChild(spec ChildSpec) (Route, error) {
	child, err := buildChild(spec, rr.logger)
	if err != nil {
		return nil, err
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()
	if lp, ok := child.(*LongPoll); ok && rr.registry != nil {
		if err := rr.registry.Register(lp.Path(), lp); err != nil {
			return nil, fmt.Errorf("%w: registry insert: %v", tg.ErrUnsupported, err)
		}
	}
	rr.children = append(rr.children, child)
	return child, nil
}
