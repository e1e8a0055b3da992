package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake/internal/admission"
	"intake/internal/api"
	"intake/internal/captcha"
	"intake/internal/config"
	"intake/internal/intake"
	"intake/internal/logger"
	"intake/internal/mirror"
	"intake/internal/models"
	"intake/internal/notify"
	"intake/internal/observability"
	"intake/internal/ratelimit"
	"intake/internal/scoring"
	"intake/internal/sidetask"
	"intake/internal/storage"
	"intake/internal/version"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	exampleConfig = flag.String("example-config", "", "Write an example configuration file to this path and exit")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}
	if *exampleConfig != "" {
		if err := config.SaveExample(*exampleConfig); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ver := version.GetInfo()

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, cfg.Environment, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize storage
	storageInstance, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		os.Exit(1)
	}
	defer storageInstance.Close()

	// Wrap storage with instrumentation if metrics are enabled
	var activeStorage storage.Storage = storageInstance
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	// Admission: sliding window limiter shared by the contact form and chat
	rlCfg := cfg.Admission.RateLimit
	limiter := ratelimit.NewSlidingWindow(rlCfg.Requests, rlCfg.Window(),
		ratelimit.WithMaxKeys(rlCfg.MaxKeys),
		ratelimit.WithSweepInterval(rlCfg.SweepInterval),
	)
	defer limiter.Close()

	gate := captcha.NewGate(captchaConfig(cfg.Admission.Captcha))
	if vendor, ok := gate.Vendor(); ok {
		slog.Info("CAPTCHA verification enabled", "vendor", vendor)
	} else {
		slog.Warn("CAPTCHA verification inactive", "enabled", cfg.Admission.Captcha.Enabled)
	}

	controller, err := admission.New(limiter, gate)
	if err != nil {
		slog.Error("Failed to initialize admission", "error", err)
		os.Exit(1)
	}

	runner, err := sidetask.NewRunner(sidetask.Config{
		Timeout:        cfg.SideTasks.Timeout,
		BreakerTimeout: cfg.SideTasks.BreakerTimeout,
		MaxFailures:    cfg.SideTasks.MaxFailures,
	})
	if err != nil {
		slog.Error("Failed to initialize side task runner", "error", err)
		os.Exit(1)
	}

	sender, err := notify.New(cfg.Notify)
	if err != nil {
		slog.Error("Failed to initialize notifier", "error", err)
		os.Exit(1)
	}

	intakeService := intake.NewService(activeStorage, controller, runner, serviceOptions(cfg, sender)...)

	_, captchaOn := gate.Vendor()
	handlers := api.NewHandlers(intakeService, activeStorage,
		api.WithEnvironment(cfg.Environment),
		api.WithVersion(ver),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithComponent("captcha", captchaOn),
		api.WithComponent(intake.CollaboratorScoring, cfg.Scoring.Active()),
		api.WithComponent(intake.CollaboratorMirror, cfg.Mirror.Active()),
		api.WithComponent(intake.CollaboratorEmail, notify.Enabled(sender)),
	)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{api.WithChatLimiter(limiter)}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"storage", cfg.Storage.Type,
			"version", ver.Version,
		)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight follow-ups finish before storage closes.
	if err := runner.Wait(ctx); err != nil {
		slog.Warn("Side tasks still running at shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// captchaConfig orders the configured secrets by vendor priority.
// serviceOptions attaches only the collaborators that are configured, so a
// lead with nothing to follow up on never schedules a side task.
func serviceOptions(cfg *models.Config, sender notify.Sender) []intake.Option {
	var serviceOpts []intake.Option
	if notify.Enabled(sender) {
		serviceOpts = append(serviceOpts, intake.WithNotifier(sender, cfg.Notify.From, cfg.Notify.To))
	}
	if cfg.Scoring.Active() {
		serviceOpts = append(serviceOpts, intake.WithScorer(scoring.NewOpenAIScorer(scoring.Config{
			APIKey:  cfg.Scoring.APIKey,
			Model:   cfg.Scoring.Model,
			BaseURL: cfg.Scoring.BaseURL,
			Timeout: cfg.Scoring.Timeout,
		})))
	}
	if cfg.Mirror.Active() {
		serviceOpts = append(serviceOpts, intake.WithMirror(mirror.NewNotionClient(mirror.Config{
			APIKey:            cfg.Mirror.APIKey,
			DatabaseID:        cfg.Mirror.DatabaseID,
			BaseURL:           cfg.Mirror.BaseURL,
			NotionVersion:     cfg.Mirror.NotionVersion,
			RequestsPerSecond: cfg.Mirror.RequestsPerSecond,
			Timeout:           cfg.Mirror.Timeout,
		})))
	}
	return serviceOpts
}

func captchaConfig(c models.CaptchaConfig) captcha.Config {
	return captcha.Config{
		Enabled: c.Enabled,
		Timeout: c.Timeout,
		Secrets: []captcha.Secret{
			{Vendor: captcha.VendorTurnstile, Value: c.TurnstileSecret, Endpoint: c.TurnstileEndpoint},
			{Vendor: captcha.VendorReCAPTCHA, Value: c.RecaptchaSecret, Endpoint: c.RecaptchaEndpoint},
		},
	}
}
