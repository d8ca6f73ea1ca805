package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/resources"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the serve command flags.
type serveOptions struct {
	transport        string
	httpAddr         string
	yolo             bool
	disableStreaming bool
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP server",
		Long: `Start the inboxtriage server.

Supports multiple transport types:
  - stdio: MCP over standard input/output (default)
  - streamable-http: the REST API, health probes and the MCP endpoint at /mcp

Safety Mode:
  By default, the MCP server operates in read-only mode: preferences can be
  managed but no mail is fetched and no tasks or events are created.
  Use --yolo to register the triage_fetch_emails and triage_organize tools.

Google access:
  Run "inboxtriage auth" once before serving. The server never starts the
  interactive consent flow; without a token the Gmail, Tasks and Calendar
  stages report that they are not configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metricsAddr = addr
				}
			}
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				opts.metricsEnabled = false
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP server address for streamable-http (default: server.addr, :8080)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write tools (fetch mail, create tasks and events). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for the MCP HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Metrics server address (default: server.metrics_addr, :9090). Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	instrLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Logger = instrLogger

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	a, err := newApp(ctx, appOptions{google: true, model: true, provider: provider})
	if err != nil {
		return err
	}
	defer a.Close()

	readOnly := !opts.yolo
	scOpts := []server.ServerContextOption{
		server.WithStore(a.store),
		server.WithLogger(a.logger),
		server.WithReadOnly(readOnly),
	}
	if provider.Enabled() {
		scOpts = append(scOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLogger(a.logger.Logger(), instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(ctx, a.svc, scOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxtriage", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := triage_tools.RegisterTriageTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register triage tools: %w", err)
	}
	if err := resources.RegisterTriageResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register triage resources: %w", err)
	}

	if readOnly {
		a.logger.Info("starting server in read-only mode (use --yolo to enable write tools)", "transport", opts.transport)
	} else {
		a.logger.Info("starting server with write tools enabled", "transport", opts.transport)
	}

	if opts.transport == transportStdio {
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}

	return runStreamableHTTPServer(ctx, mcpSrv, serverContext, provider, a, opts)
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, a *app, opts serveOptions) error {
	logger := a.logger

	httpAddr := opts.httpAddr
	if httpAddr == "" {
		httpAddr = a.cfg.Server.Addr
	}
	metricsAddr := opts.metricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Server.MetricsAddr
	}

	mcpOpts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath("/mcp")}
	if opts.disableStreaming {
		mcpOpts = append(mcpOpts, mcpserver.WithDisableStreaming(true))
	}

	httpServer := server.NewHTTPServer(sc, server.HTTPServerConfig{
		Addr:       httpAddr,
		Version:    version,
		MCPHandler: mcpserver.NewStreamableHTTPServer(mcpSrv, mcpOpts...),
	})

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", "addr", httpAddr, "mcp_endpoint", "/mcp")
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		if err := sc.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err != nil {
		logger.Error("server stopped with error", logging.Err(err))
		return err
	}
	logger.Info("servers gracefully stopped")
	return nil
}
