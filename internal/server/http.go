package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultHTTPAddr is the default address of the API server.
	DefaultHTTPAddr = ":8080"

	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 120 * time.Second
)

// HTTPServerConfig configures the API server.
type HTTPServerConfig struct {
	Addr    string
	Version string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}

// HTTPServer serves the REST API, the health probes and the MCP endpoint.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	handler    http.Handler
	addr       string
	listenAddr chan string
}

// NewHTTPServer creates the API server.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}

	mux := http.NewServeMux()
	health := NewHealthChecker(sc, config.Version)
	health.RegisterHealthEndpoints(mux)
	NewAPI(sc).Register(mux)
	if config.MCPHandler != nil {
		mux.Handle("/mcp", config.MCPHandler)
	}

	handler := InstrumentHandler(mux, sc.Metrics(), sc.Logger())
	return &HTTPServer{
		health:     health,
		handler:    handler,
		addr:       config.Addr,
		listenAddr: make(chan string, 1),
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			BaseContext:       func(net.Listener) context.Context { return sc.Context() },
		},
	}
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start listens and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listenAddr <- ln.Addr().String()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr blocks until Start has bound its listener and returns the
// bound address.
func (s *HTTPServer) ListenAddr(ctx context.Context) (string, error) {
	select {
	case addr := <-s.listenAddr:
		s.listenAddr <- addr
		return addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}
