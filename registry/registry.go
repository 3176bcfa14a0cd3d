// Package registry implements the process-wide dynamic long-poll
// registry (C9): a path-prefix lookup for long-poll routes added to the
// dispatch tree after the HTTP router has frozen at server start.
package registry

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prilive-com/tgin/route"
	"github.com/prilive-com/tgin/tg"
)

// Registry maps a long-poll route's path prefix to the route itself,
// RW-locked in the style of internal/resilience's per-key rate limiter
// map.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]route.Route
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{routes: make(map[string]route.Route)}
}

// Register inserts route under path. Re-registering an existing path is
// rejected, since the dispatch tree never removes nodes (spec.md §3).
func (r *Registry) Register(path string, rt route.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[path]; exists {
		return fmt.Errorf("%w: path %q already registered", tg.ErrUnsupported, path)
	}
	r.routes[path] = rt
	return nil
}

// Lookup returns the route registered under path, if any.
func (r *Registry) Lookup(path string) (route.Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[path]
	return rt, ok
}

// Fallback builds the HTTP handler installed when the admin API is
// enabled (spec.md §4.8): it consults the registry for the request path
// and, if found, delegates to the route's own consumer endpoint; 404
// otherwise. Mounted by the dispatch engine as the mux's NotFound-style
// catch-all.
func (r *Registry) Fallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rt, ok := r.Lookup(req.URL.Path)
		if !ok {
			http.NotFound(w, req)
			return
		}
		mux := http.NewServeMux()
		rt.Mount(mux)
		mux.ServeHTTP(w, req)
	})
}
