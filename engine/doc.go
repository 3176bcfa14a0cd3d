// Package engine owns the update and control channels and runs the
// dispatch loop. It assembles the HTTP router once at New, then Run
// starts every update source and services updates (and, when an admin
// API is configured, control messages) until its context is cancelled.
package engine
