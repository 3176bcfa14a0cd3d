package route

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prilive-com/tgin/tg"
)

const defaultLongPollLimit = 1000

// LongPoll is a leaf route that buffers updates in an ordered FIFO and
// serves getUpdates-style consumer requests that block until data arrives
// or the caller's timeout elapses (C2).
type LongPoll struct {
	path string

	mu     sync.Mutex
	fifo   []tg.Update
	waitCh chan struct{}

	logger *slog.Logger
}

// NewLongPoll builds a long-poll leaf serving consumer requests on path.
func NewLongPoll(path string, logger *slog.Logger) *LongPoll {
	if logger == nil {
		logger = slog.Default()
	}
	return &LongPoll{
		path:   path,
		waitCh: make(chan struct{}),
		logger: logger,
	}
}

// Path reports the consumer endpoint's path prefix.
func (l *LongPoll) Path() string { return l.path }

// Process appends update to the FIFO and wakes every current waiter.
// Non-blocking; ctx is unused since enqueue never waits.
func (l *LongPoll) Process(ctx context.Context, update tg.Update) {
	l.mu.Lock()
	l.fifo = append(l.fifo, update)
	old := l.waitCh
	l.waitCh = make(chan struct{})
	l.mu.Unlock()
	close(old)
}

// Describe reports this leaf's type and path.
func (l *LongPoll) Describe() any {
	return map[string]any{
		"type":    "longpoll",
		"options": map[string]any{"path": l.path},
	}
}

// Mount registers POST <path> with the blocking consumer handler.
func (l *LongPoll) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST "+l.path, l.serveHTTP)
}

// AddChild always fails: leaves accept no children.
func (l *LongPoll) AddChild(spec ChildSpec) (Route, error) {
	return nil, tg.ErrUnsupported
}

// popBatch removes up to limit items from the front of the FIFO. ok is
// false when the FIFO was empty; the caller must then check the deadline
// rather than treat an empty batch as success.
func (l *LongPoll) popBatch(limit int) (batch []tg.Update, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.fifo) == 0 {
		return nil, false
	}
	if limit <= 0 || limit > len(l.fifo) {
		limit = len(l.fifo)
	}
	batch = l.fifo[:limit]
	l.fifo = l.fifo[limit:]
	return batch, true
}

func (l *LongPoll) currentWaitCh() chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitCh
}

func (l *LongPoll) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	timeoutSeconds := formInt(r, "timeout", 0)
	limit := formInt(r, "limit", defaultLongPollLimit)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)

	for {
		if batch, ok := l.popBatch(limit); ok {
			writeBatch(w, batch)
			return
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			writeBatch(w, nil)
			return
		}

		waitCh := l.currentWaitCh()
		select {
		case <-waitCh:
		case <-time.After(remaining):
		case <-r.Context().Done():
			return
		}
	}
}

func formInt(r *http.Request, field string, def int) int {
	v := r.FormValue(field)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeBatch(w http.ResponseWriter, batch []tg.Update) {
	result := make([]json.RawMessage, len(batch))
	for i, u := range batch {
		result[i] = u.Raw()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":     true,
		"result": result,
	})
}
