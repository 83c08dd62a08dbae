package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tentapress/forms/internal/config"
	"github.com/tentapress/forms/internal/httpapi"
	"github.com/tentapress/forms/internal/httpserver"
	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/destination/kit"
	"github.com/tentapress/forms/pkg/destination/mailchimp"
	"github.com/tentapress/forms/pkg/destination/tentaforms"
	"github.com/tentapress/forms/pkg/signer"
	"github.com/tentapress/forms/pkg/submission"
)

var logLevelMapping = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.Load()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevelMapping[cfg.General.LogLevel],
	})
	slog.SetDefault(slog.New(handler))
	slog.Info("forms server initializing", slog.String("environment", cfg.General.Environment))

	sig, err := signer.NewFromSecret(cfg.Forms.SigningSecret)
	if err != nil {
		slog.Error("signing secret is not usable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := destination.NewRegistry()
	registry.MustRegister(mailchimp.New())
	registry.MustRegister(kit.New())
	registry.MustRegister(tentaforms.New(tentaforms.WithStubDefault(cfg.StubDestinations())))

	submissions := submission.New(sig, registry)
	limiter := httpserver.NewRateLimiter(cfg.Server.RateLimitPerMinute, time.Minute)

	server := httpserver.NewServer(
		cfg.Server.Addr,
		cfg.Server.AllowedOrigins,
		httpapi.NewSubmitFormController(submissions, limiter),
	)
	go server.Run()
	slog.Info("forms server started", slog.String("addr", cfg.Server.Addr), slog.Any("destinations", registry.List()))

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	<-signalChannel

	slog.Info("shutting down")
	server.Shutdown()
}
