// Package source implements the two update-ingestion components (C5, C6):
// a long-poll puller against an upstream bot API, and a webhook ingester
// exposing an HTTP endpoint. Both publish to a shared update channel
// consumed by the dispatch engine.
package source

import (
	"context"
	"net/http"

	"github.com/prilive-com/tgin/tg"
)

// UpdateSource ingests updates from an upstream system and publishes them
// onto an outbound channel. Start blocks until ctx is cancelled or the
// source's own work is done (a one-shot registration call that completes
// immediately).
type UpdateSource interface {
	// Start begins ingestion, publishing to out. It returns when ctx is
	// cancelled or when the source's work is inherently one-shot (webhook
	// registration). Neither source detects a consumer that stops reading
	// out; cancelling ctx is what stops them.
	Start(ctx context.Context, out chan<- tg.Update) error

	// Mount contributes HTTP routes to the shared server, if any.
	// Long-poll sources contribute nothing; webhook sources register
	// their ingress path.
	Mount(mux *http.ServeMux)
}
