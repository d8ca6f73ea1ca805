package common

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type runIDKey struct{}

// runIDHolder lets a handler report the run it started to the wrapper.
type runIDHolder struct {
	mu    sync.Mutex
	runID string
}

// SetRunID attaches a triage run ID to the audit record of the current
// invocation. It is a no-op outside InstrumentedToolHandler.
func SetRunID(ctx context.Context, runID string) {
	if h, ok := ctx.Value(runIDKey{}).(*runIDHolder); ok {
		h.mu.Lock()
		h.runID = runID
		h.mu.Unlock()
	}
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. readOnly is recorded on the audit record.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", true, sc, handler))
func InstrumentedToolHandler(toolName string, readOnly bool, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		holder := &runIDHolder{}
		ctx = context.WithValue(ctx, runIDKey{}, holder)

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithReadOnly(readOnly).
			WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		holder.mu.Lock()
		if holder.runID != "" {
			invocation.WithRunID(holder.runID)
		}
		holder.mu.Unlock()

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.Complete(false, err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.Complete(true, nil)
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
