// Package route implements the dispatch tree's four node kinds: the two
// leaves (Webhook, LongPoll) and the two interior balancers (RoundRobin,
// Broadcast). Every node satisfies the Route interface's four
// capabilities (spec §3): Process, Describe, Mount, AddChild.
package route

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prilive-com/tgin/tg"
)

// Route is a node in the dispatch tree.
type Route interface {
	// Process accepts one update for dispatch. Leaves deliver it
	// (HTTP POST, or FIFO append); balancers forward it to children per
	// their strategy.
	Process(ctx context.Context, update tg.Update)

	// Describe produces a JSON-marshalable description of the subtree
	// rooted here, reflecting the live children at the moment of the call.
	Describe() any

	// Mount contributes HTTP routes to the shared server. Balancers
	// recurse into their children; leaves register their own endpoints,
	// if any.
	Mount(mux *http.ServeMux)

	// AddChild optionally accepts a new child. Leaves reject with
	// tg.ErrUnsupported.
	AddChild(spec ChildSpec) (Route, error)
}

// ChildKind tags the variant carried by ChildSpec.
type ChildKind int

const (
	// ChildWebhook builds a Webhook leaf.
	ChildWebhook ChildKind = iota
	// ChildLongPoll builds a LongPoll leaf.
	ChildLongPoll
)

// ChildSpec is the tagged union accepted by AddChild and translated from
// the admin API's POST /route body.
type ChildSpec struct {
	Kind ChildKind

	// URL is required for ChildWebhook.
	URL string

	// Path is required for ChildLongPoll.
	Path string
}

// Registry receives newly-added long-poll routes so the dynamic fallback
// handler (spec §4.8) can serve them after the HTTP router has frozen.
// Implemented by package registry; declared here to avoid an import
// cycle between route and registry.
type Registry interface {
	Register(path string, route Route) error
}

// buildChild constructs the leaf described by spec. Balancers are never
// built this way; add_child only ever creates a Webhook or LongPoll leaf
// per spec §4.3.
func buildChild(spec ChildSpec, logger *slog.Logger) (Route, error) {
	switch spec.Kind {
	case ChildWebhook:
		if spec.URL == "" {
			return nil, fmt.Errorf("%w: webhook child requires a url", tg.ErrUnsupported)
		}
		return NewWebhook(spec.URL, logger), nil
	case ChildLongPoll:
		if spec.Path == "" {
			return nil, fmt.Errorf("%w: longpoll child requires a path", tg.ErrUnsupported)
		}
		return NewLongPoll(spec.Path, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown child kind", tg.ErrUnsupported)
	}
}
