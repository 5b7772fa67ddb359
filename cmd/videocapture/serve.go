package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/germanamz/videocapture/pkg/capturetools"
	"github.com/germanamz/videocapture/pkg/config"
	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/logging"
	"github.com/germanamz/videocapture/pkg/registry"
	"github.com/germanamz/videocapture/pkg/telemetry"
	"github.com/germanamz/videocapture/pkg/tools/mcpserver"
	"github.com/germanamz/videocapture/pkg/tools/toolbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds how long HTTP listeners wait for open requests.
const shutdownTimeout = 5 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: videocapture serve [flags]\n\nRun the MCP server.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to configuration file (default: ./"+config.FileName+" or built-in defaults)")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	transport := fs.String("transport", "", "override server.transport (stdio or http)")
	address := fs.String("address", "", "override server.address")
	backend := fs.String("backend", "", "override capture.backend (opencv or testpattern)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, used, err := loadConfig(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *transport != "" {
		cfg.Server.Transport = *transport
	}
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *backend != "" {
		cfg.Capture.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, cleanup, err := logging.Setup(cfg.Logging, cfg.Server.Transport)
	if err != nil {
		return err
	}
	defer cleanup()

	if used != "" {
		logger.Info().Str("path", used).Msg("config loaded")
	}

	opener, err := newOpener(cfg.Capture)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger, opener)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.run(ctx)
}

// app wires the registry, the tool layer and the MCP server together.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	registry *registry.Registry
	tools    *toolbox.ToolBox
	server   *mcpserver.MCPServer
	metrics  *prometheus.Registry // nil when metrics are disabled.
}

func newApp(cfg config.Config, logger zerolog.Logger, opener device.Opener) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	collector := telemetry.Noop()
	if cfg.Metrics.Enabled {
		a.metrics = prometheus.NewRegistry()
		a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		pc, err := telemetry.NewPrometheusCollector(a.metrics)
		if err != nil {
			return nil, err
		}
		collector = pc
	}

	a.registry = registry.New(opener, registry.Options{Logger: &logger, Metrics: collector})
	a.tools = capturetools.New(a.registry, cfg.Encoder()).Tools().Filter(cfg.Server.Tools)

	a.server = mcpserver.New(cfg.Server.Name, version)
	a.server.Register(a.tools.Tools()...)

	return a, nil
}

// run serves until ctx is cancelled or the transport closes, then releases
// every open connection.
func (a *app) run(ctx context.Context) error {
	defer a.registry.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsDone := make(chan error, 1)
	if a.metrics != nil {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Address,
			Handler:           a.metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() { metricsDone <- listenAndServe(ctx, srv, a.log.With().Str("listener", "metrics").Logger()) }()
	} else {
		metricsDone <- nil
	}

	a.log.Info().
		Str("transport", a.cfg.Server.Transport).
		Str("backend", a.cfg.Capture.Backend).
		Int("tools", len(a.tools.Tools())).
		Msg("serving")

	var err error
	switch a.cfg.Server.Transport {
	case config.TransportHTTP:
		srv := &http.Server{
			Addr:              a.cfg.Server.Address,
			Handler:           a.httpHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		err = listenAndServe(ctx, srv, a.log.With().Str("listener", "mcp").Logger())
	default:
		err = a.server.Serve(ctx, os.Stdin, os.Stdout)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		err = nil
	}

	cancel()
	if mErr := <-metricsDone; mErr != nil && err == nil {
		err = mErr
	}

	a.log.Info().Msg("server stopped")

	return err
}

// httpHandler mounts the MCP endpoint and a health check.
func (a *app) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Server.Path, a.server.HTTPHandler())
	mux.HandleFunc("/healthz", a.handleHealth)
	return mux
}

func (a *app) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{Registry: a.metrics}))
	mux.HandleFunc("/healthz", a.handleHealth)
	return mux
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Version:     version,
		Connections: a.registry.Len(),
	})
}

// listenAndServe runs srv until ctx is cancelled, then shuts it down
// gracefully.
func listenAndServe(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	<-errCh

	return nil
}
