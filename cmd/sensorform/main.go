package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/speedwagon-io/sensorform/internal/config"
	"github.com/speedwagon-io/sensorform/internal/console"
	"github.com/speedwagon-io/sensorform/internal/form"
	"github.com/speedwagon-io/sensorform/internal/health"
	"github.com/speedwagon-io/sensorform/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorform/internal/sender"
	"github.com/speedwagon-io/sensorform/internal/timeutil"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log sensor metadata instead of sending")
	flag.Parse()

	// A missing .env is fine; variables may be set directly.
	_ = godotenv.Load()

	cfg := config.MustLoad(*configPath)

	// stdout belongs to the console surface.
	log := sl.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	log.Info("starting sensor form",
		slog.String("env", cfg.Env),
		slog.String("api_url", cfg.API.URL),
		slog.Bool("dry_run", *dryRun),
	)

	var dataSender sender.Sender
	if *dryRun {
		dataSender = sender.NewLogSender(log)
		log.Info("dry-run mode: sensor metadata will be logged instead of sent")
	} else {
		httpSender := sender.NewHTTPSender(log, &cfg.API)
		defer httpSender.Close()
		dataSender = httpSender
	}

	ctrl := form.NewController(log, dataSender, timeutil.RealClock{}, cfg.Form.StatusTTL)
	defer ctrl.Close()

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(log, cfg.Health.Address)
		healthServer.AddChecker(health.NewEndpointHealthChecker(dataSender.Health))
		healthServer.AddChecker(health.NewFormHealthChecker(func() error {
			return ctrl.Stats().LastError
		}))

		if err := healthServer.Start(); err != nil {
			log.Error("failed to start health server", sl.Err(err))
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	surface := console.New(log, ctrl, os.Stdin, os.Stdout)
	if err := surface.Run(ctx); err != nil {
		log.Error("console input failed", sl.Err(err))
	}

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := healthServer.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop health server", sl.Err(err))
		}
	}

	stats := ctrl.Stats()
	log.Info("sensor form stopped",
		slog.Int64("submitted", stats.Attempted),
		slog.Int64("succeeded", stats.Succeeded),
		slog.Int64("failed", stats.Failed),
	)
}
