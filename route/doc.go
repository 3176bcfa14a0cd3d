// Package route implements the dispatch tree's node kinds and the
// balancers that fan updates out across them.
//
// Four concrete node kinds satisfy Route:
//
//   - Webhook: a leaf that POSTs each update downstream, fire-and-forget.
//   - LongPoll: a leaf that buffers updates in a FIFO and serves blocking
//     consumer requests shaped like Telegram's getUpdates.
//   - RoundRobin: an interior balancer that cycles updates across children.
//   - Broadcast: an interior balancer that fans each update out to every
//     child concurrently.
//
// The tree is assembled once at startup (see package config) and may grow
// new children at runtime through AddChild, driven by package adminapi.
package route
