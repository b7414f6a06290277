// Package serve runs a local HTTP preview server over the build output.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yorickpeterse/wobsite/internal/logfields"
)

// Server serves the output directory as a static site. Responses disable
// client caching so the preview always reflects the latest build.
type Server struct {
	addr string
	root string
	log  *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// New creates a server over the output directory root. A non-nil
// metricsHandler is mounted on /metrics.
func New(addr, root string, metricsHandler http.Handler) *Server {
	s := &Server{
		addr: addr,
		root: root,
		log:  slog.Default(),
	}

	mux := http.NewServeMux()
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.Handle("/", chain(s.log, noCache(http.FileServer(http.Dir(root)))))

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start binds the listen address and serves in the background. Binding
// happens here so an occupied port fails fast instead of surfacing later
// from the serve goroutine.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logfields.Error(err))
		}
	}()

	s.log.Info("serving site",
		slog.String("addr", listener.Addr().String()),
		logfields.Output(s.root))
	return nil
}

// Addr returns the bound listen address. It differs from the configured one
// when that used an ephemeral port.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
