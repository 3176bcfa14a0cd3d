package route

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prilive-com/tgin/tg"
)

// Broadcast is an interior balancer that delivers each update to every
// child concurrently (C4).
type Broadcast struct {
	mu       sync.RWMutex
	children []Route

	registry Registry
	logger   *slog.Logger
}

// NewBroadcast builds a broadcast balancer over the given initial children.
func NewBroadcast(registry Registry, logger *slog.Logger, children ...Route) *Broadcast {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcast{
		children: append([]Route(nil), children...),
		registry: registry,
		logger:   logger,
	}
}

// Process snapshots the children and schedules each child's Process as an
// independent task, returning as soon as the tasks are scheduled rather
// than when they complete.
func (b *Broadcast) Process(ctx context.Context, update tg.Update) {
	b.mu.RLock()
	children := append([]Route(nil), b.children...)
	b.mu.RUnlock()

	for _, c := range children {
		c := c
		go c.Process(ctx, update)
	}
}

// Describe reports this balancer's type and its children's descriptions.
func (b *Broadcast) Describe() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	routes := make([]any, len(b.children))
	for i, c := range b.children {
		routes[i] = c.Describe()
	}
	return map[string]any{
		"type":   "load-balancer",
		"name":   "all",
		"routes": routes,
	}
}

// Mount recursively mounts every child's HTTP contribution.
func (b *Broadcast) Mount(mux *http.ServeMux) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.children {
		c.Mount(mux)
	}
}

// AddChild builds the child described by spec and appends it, registering
// long-poll children into the dynamic registry atomically with the append.
func (b *Broadcast) AddChild(spec ChildSpec) (Route, error) {
	child, err := buildChild(spec, b.logger)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if lp, ok := child.(*LongPoll); ok && b.registry != nil {
		if err := b.registry.Register(lp.Path(), lp); err != nil {
			return nil, fmt.Errorf("%w: registry insert: %v", tg.ErrUnsupported, err)
		}
	}
	b.children = append(b.children, child)
	return child, nil
}
