package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweetpotato0/kjm-gateway/config"
	"github.com/sweetpotato0/kjm-gateway/contrib/provider/gemini"
	"github.com/sweetpotato0/kjm-gateway/contrib/speech/gtts"
	"github.com/sweetpotato0/kjm-gateway/dispatcher"
	"github.com/sweetpotato0/kjm-gateway/pkg/logging"
	"github.com/sweetpotato0/kjm-gateway/pkg/metrics"
	"github.com/sweetpotato0/kjm-gateway/pkg/telemetry"
	"github.com/sweetpotato0/kjm-gateway/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Configure(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Logger:         logger.With("component", "telemetry"),
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	m := metrics.New()

	backends, closeBackends, err := buildBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	d := dispatcher.New(
		dispatcher.Config{APIKey: cfg.Gemini.APIKey, SpeechLang: cfg.Speech.Lang},
		backends,
		dispatcher.WithMetrics(m),
		dispatcher.WithLogger(logger.With("component", "dispatcher")),
	)
	srv := server.New(cfg.Server, d,
		server.WithMetrics(m),
		server.WithLogger(logger.With("component", "server")),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(stopCtx)
}

// buildBackends creates the backend clients. Without an API key the
// generative backends stay nil and every route reports the missing key.
func buildBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dispatcher.Backends, func(), error) {
	var backends dispatcher.Backends
	closeFn := func() {}

	if cfg.Speech.Enabled {
		backends.Speech = gtts.New(&gtts.Config{BaseURL: cfg.Speech.BaseURL}, &http.Client{Timeout: 30 * time.Second})
	}

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; generation routes will report a missing key")
		return backends, closeFn, nil
	}

	client, err := gemini.New(ctx, cfg.Gemini.APIKey)
	if err != nil {
		return backends, closeFn, err
	}
	closeFn = func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close gemini client", "error", err)
		}
	}

	backends.Models = client
	backends.Text = client
	backends.Images = gemini.NewImagen(&gemini.ImagenConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
	}, nil)

	logger.Info("backends ready",
		"text_model", dispatcher.TextModel,
		"image_model", dispatcher.ImageModel,
		"speech", cfg.Speech.Enabled,
	)
	return backends, closeFn, nil
}
