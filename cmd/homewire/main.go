// Command homewire runs the home-automation hub.
//
// It loads a YAML or TOML configuration, connects every configured
// controller and keeps the connections alive until it receives SIGINT or
// SIGTERM. With -interactive it also opens an operator console.
//
// Usage:
//
//	homewire [flags]
//
// Flags:
//
//	-config string      Configuration file (.yaml, .yml or .toml) (default "homewire.yaml")
//	-log-level string   Log level: debug, info, warn, error (overrides config)
//	-log-format string  Log format: text, json (overrides config)
//	-capture string     Protocol capture file (overrides config)
//	-metrics string     Prometheus listen address, e.g. :9100 (overrides config)
//	-interactive        Open the operator console
//
// Examples:
//
//	# Run as a daemon
//	homewire -config /etc/homewire/hub.yaml
//
//	# Debug a flaky controller with a capture file and the console
//	homewire -config hub.toml -log-level debug -capture hub.cbor -interactive
//
//	# Inspect the capture afterwards
//	homewire-log view hub.cbor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homewire/homewire-go/cmd/homewire/interactive"
	"github.com/homewire/homewire-go/pkg/config"
	"github.com/homewire/homewire-go/pkg/discovery"
	"github.com/homewire/homewire-go/pkg/hub"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
)

// Flags holds the command-line flags.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	LogFormat   string
	Capture     string
	Metrics     string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "homewire.yaml", "Configuration file (.yaml, .yml or .toml)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&flags.LogFormat, "log-format", "", "Log format: text, json (overrides config)")
	flag.StringVar(&flags.Capture, "capture", "", "Protocol capture file (overrides config)")
	flag.StringVar(&flags.Metrics, "metrics", "", "Prometheus listen address, e.g. :9100 (overrides config)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Open the operator console")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "homewire: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The console owns the terminal; logs go through it once it is open.
	out := &switchWriter{w: os.Stderr}
	logger := cfg.Log.NewLogger(out)
	var console *interactive.Console

	capture, closeCapture, err := openCapture(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCapture()

	var m *metrics.Metrics
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		stop := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer stop()
	}

	h, err := hub.New(cfg,
		hub.WithLogger(logger),
		hub.WithProtocolLogger(capture),
		hub.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	if flags.Interactive {
		console, err = interactive.New(h, interactive.Config{
			Browser: discovery.NewMDNSBrowser(discovery.BrowserConfig{
				Interface: cfg.Discovery.Interface,
				Logger:    logger,
			}),
			CommandTimeout: 10 * time.Second,
		})
		if err != nil {
			return err
		}
		out.Set(console.Stdout())
	}

	logger.Info("homewire starting", "config", flags.ConfigFile, "endpoints", len(cfg.Endpoints))
	if err := h.Start(ctx); err != nil {
		return err
	}

	if console != nil {
		go console.Run(ctx, cancel)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, f Flags) error {
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if f.Capture != "" {
		cfg.Capture = f.Capture
	}
	if f.Metrics != "" {
		cfg.Metrics.Listen = f.Metrics
	}
	return cfg.Validate()
}

// openCapture returns the protocol logger. Debug logging mirrors capture
// events into the operational log.
func openCapture(cfg *config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.Capture != "" {
		fl, err := log.NewRotatingFileLogger(cfg.Capture, cfg.CaptureMaxBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open capture file: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("failed to close capture file", "error", err)
			}
		}
		logger.Info("capturing protocol events", "file", fl.Path(), "max_bytes", cfg.CaptureMaxBytes)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}

// serveMetrics exposes reg on addr and returns a function that stops the
// server.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// switchWriter is an io.Writer whose target can be replaced.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Set replaces the target.
func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
