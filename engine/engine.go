// Package engine implements the dispatch engine (C7): it owns the update
// and control channels, wires the HTTP server from sources, the route
// tree, and the optional admin API, and runs the dispatch loop described
// in spec.md §4.6.
package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prilive-com/tgin/internal/syncutil"
	"github.com/prilive-com/tgin/route"
	"github.com/prilive-com/tgin/source"
	"github.com/prilive-com/tgin/tg"
)

const (
	// DefaultUpdateBufferSize is the update channel's capacity absent an
	// explicit override.
	DefaultUpdateBufferSize = 4096
	// DefaultControlBufferSize is the control channel's capacity absent
	// an explicit override.
	DefaultControlBufferSize = 64

	shutdownGrace = 5 * time.Second
)

// AdminAPI is satisfied by package adminapi's Handler; declared here
// (rather than imported) so engine never depends on adminapi, avoiding an
// import cycle (adminapi depends on engine for ControlMessage).
type AdminAPI interface {
	Mount(mux *http.ServeMux)
}

// TLSConfig holds the certificate and key paths for HTTPS.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Config assembles an Engine.
type Config struct {
	Root    route.Route
	Sources []source.UpdateSource

	// Port, if non-nil, causes the engine to bind an HTTP(S) server.
	Port *int
	TLS  *TLSConfig

	// Admin, if non-nil, is mounted under AdminBasePath and the dispatch
	// loop additionally services the control channel.
	Admin         AdminAPI
	AdminBasePath string

	// ControlChan, if non-nil, is the channel the dispatch loop services
	// instead of allocating its own. Required whenever Admin is set,
	// since the admin handler is constructed with its send end of this
	// same channel before Engine exists.
	ControlChan chan ControlMessage

	// Fallback, if non-nil, is mounted as the catch-all route consulted
	// when no other mounted handler matches (spec.md §4.8); only
	// meaningful when Admin is also set.
	Fallback http.Handler

	UpdateBufferSize  int
	ControlBufferSize int

	Logger *slog.Logger
}

// Engine is the running dispatch engine.
type Engine struct {
	root    route.Route
	sources []source.UpdateSource
	logger  *slog.Logger

	updateCh  chan tg.Update
	controlCh chan ControlMessage

	mux        *http.ServeMux
	httpServer *http.Server
	port       *int
	tlsConfig  *TLSConfig
}

// New assembles an Engine from cfg. The HTTP router is built and frozen
// here (spec.md invariant I1); Run starts sources and enters the dispatch
// loop.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	updateBuf := cfg.UpdateBufferSize
	if updateBuf <= 0 {
		updateBuf = DefaultUpdateBufferSize
	}
	controlBuf := cfg.ControlBufferSize
	if controlBuf <= 0 {
		controlBuf = DefaultControlBufferSize
	}

	e := &Engine{
		root:      cfg.Root,
		sources:   cfg.Sources,
		logger:    logger,
		updateCh:  make(chan tg.Update, updateBuf),
		mux:       http.NewServeMux(),
		port:      cfg.Port,
		tlsConfig: cfg.TLS,
	}

	for _, s := range e.sources {
		s.Mount(e.mux)
	}
	if e.root != nil {
		e.root.Mount(e.mux)
	}
	if cfg.Admin != nil {
		e.controlCh = cfg.ControlChan
		if e.controlCh == nil {
			e.controlCh = make(chan ControlMessage, controlBuf)
		}
		cfg.Admin.Mount(e.mux)
		if cfg.Fallback != nil {
			e.mux.Handle("/", cfg.Fallback)
		}
	}

	return e
}

// ControlChan exposes the control channel for the admin API to send on.
// Nil when no admin API was configured.
func (e *Engine) ControlChan() chan<- ControlMessage {
	if e.controlCh == nil {
		return nil
	}
	return e.controlCh
}

// Handler exposes the assembled, frozen HTTP router — the same one Run
// binds a listener to when a port is configured. Exported chiefly so
// tests can drive the router with httptest without a real listener.
func (e *Engine) Handler() http.Handler {
	return e.mux
}

// Run starts every update source, binds the HTTP server (if configured),
// and runs the dispatch loop until ctx is cancelled. It returns a
// tg.ErrBind-wrapped error on a bind/TLS failure, nil on clean shutdown.
func (e *Engine) Run(ctx context.Context) error {
	if e.port != nil {
		if err := e.listenAndServe(); err != nil {
			return err
		}
		defer e.shutdownHTTP()
	}

	var wg sync.WaitGroup
	for _, s := range e.sources {
		s := s
		syncutil.Go(&wg, func() {
			if err := s.Start(ctx, e.updateCh); err != nil {
				e.logger.Warn("dispatch engine: update source exited with error", "error", err)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		// A webhook source returns from Start right after registration but
		// keeps publishing from its mounted handler, so the update channel
		// stays open until ctx is cancelled.
		<-ctx.Done()
		close(e.updateCh)
		close(done)
	}()

	e.dispatchLoop(ctx)
	<-done
	return nil
}

// dispatchLoop is the single consumer of the update channel and, when an
// admin API is configured, the control channel too (spec.md §4.6).
func (e *Engine) dispatchLoop(ctx context.Context) {
	for {
		if e.controlCh == nil {
			update, ok := <-e.updateCh
			if !ok {
				return
			}
			e.dispatch(ctx, update)
			continue
		}

		select {
		case update, ok := <-e.updateCh:
			if !ok {
				return
			}
			e.dispatch(ctx, update)
		case msg, ok := <-e.controlCh:
			if !ok {
				e.controlCh = nil
				continue
			}
			e.handleControl(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, update tg.Update) {
	if e.root == nil {
		return
	}
	root := e.root
	go root.Process(ctx, update)
}

// handleControl applies a control message synchronously, as spec.md §4.7
// requires. AddRoute failures (e.g. a leaf root) are dropped silently; the
// admin API has already returned 200 by the time this runs.
func (e *Engine) handleControl(msg ControlMessage) {
	switch m := msg.(type) {
	case AddRoute:
		if e.root == nil {
			return
		}
		if _, err := e.root.AddChild(m.Spec); err != nil {
			e.logger.Warn("dispatch engine: add_child rejected", "error", err)
		}
	case GetRoutes:
		var desc any
		if e.root != nil {
			desc = e.root.Describe()
		}
		m.Reply <- desc
	}
}

func (e *Engine) listenAndServe() error {
	addr := fmt.Sprintf("0.0.0.0:%d", *e.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", tg.ErrBind, addr, err)
	}

	e.httpServer = &http.Server{Handler: e.mux}

	if e.tlsConfig != nil {
		cert, err := tls.LoadX509KeyPair(e.tlsConfig.CertFile, e.tlsConfig.KeyFile)
		if err != nil {
			ln.Close()
			return fmt.Errorf("%w: load TLS keypair: %v", tg.ErrBind, err)
		}
		e.httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		go func() {
			if err := e.httpServer.ServeTLS(ln, "", ""); err != nil && err != http.ErrServerClosed {
				e.logger.Error("dispatch engine: https server stopped", "error", err)
			}
		}()
		return nil
	}

	go func() {
		if err := e.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			e.logger.Error("dispatch engine: http server stopped", "error", err)
		}
	}()
	return nil
}

func (e *Engine) shutdownHTTP() {
	if e.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.httpServer.Shutdown(ctx); err != nil {
		e.logger.Warn("dispatch engine: http server shutdown error", "error", err)
	}
}
