package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/triage"
)

// ServerContext holds what the HTTP handlers and MCP tools share.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	triage      *triage.Service
	store       storage.Store
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      logging.Logger
	readOnly    bool
	mu          sync.RWMutex
	shutdown    bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithStore exposes the storage backend to health checks.
func WithStore(store storage.Store) ServerContextOption {
	return func(sc *ServerContext) { sc.store = store }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the tool audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) ServerContextOption {
	return func(sc *ServerContext) { sc.auditLogger = a }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ServerContextOption {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithReadOnly marks the server as read-only. Write tools are not
// registered in read-only mode.
func WithReadOnly(readOnly bool) ServerContextOption {
	return func(sc *ServerContext) { sc.readOnly = readOnly }
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, svc *triage.Service, opts ...ServerContextOption) (*ServerContext, error) {
	if svc == nil {
		return nil, fmt.Errorf("triage service is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		triage:   svc,
		readOnly: true,
	}
	for _, opt := range opts {
		opt(sc)
	}
	sc.logger = logging.OrDiscard(sc.logger)
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Triage returns the pipeline service.
func (sc *ServerContext) Triage() *triage.Service {
	return sc.triage
}

// Store returns the storage backend, or nil if none was set.
func (sc *ServerContext) Store() storage.Store {
	return sc.store
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger. It may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the logger.
func (sc *ServerContext) Logger() logging.Logger {
	return sc.logger
}

// ReadOnly reports whether write operations are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
