package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/filestore"
	"github.com/calder-ops/toolbridge/pkg/filetools"
	"github.com/calder-ops/toolbridge/pkg/metrics"
	"github.com/calder-ops/toolbridge/pkg/registry"
	"github.com/calder-ops/toolbridge/pkg/rpc"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	slog.SetDefault(logger)

	baseDir := getEnv("BASE_DIR", "./mcp_files")
	logDir := getEnv("LOG_DIR", "./logs")
	listenAddr := getEnv("LISTEN_ADDR", "127.0.0.1:5000")
	metricsAddr := getEnv("METRICS_ADDR", ":9090")

	events, err := eventlog.Open(logDir, "toolhost")
	if err != nil {
		logger.Error("failed to open event log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := filestore.New(baseDir)
	if err != nil {
		logger.Error("failed to create file store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reg := registry.New()
	filetools.RegisterAll(reg, store)

	dispatcher := rpc.NewDispatcher(reg, events, logger)
	server := rpc.NewHTTPServer(dispatcher, listenAddr, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := metrics.NewServer(metricsAddr, logger)

	go func() {
		metricsErr := metricsServer.Start(ctx)
		if metricsErr != nil {
			logger.ErrorContext(ctx, "metrics server error", slog.String("error", metricsErr.Error()))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	events.Log("server_start", map[string]interface{}{
		"base_dir": baseDir,
		"addr":     listenAddr,
	})

	logger.Info("starting tool host",
		slog.String("base_dir", baseDir),
		slog.String("addr", listenAddr))

	err = server.Run(ctx)
	if err != nil {
		logger.Error("tool host error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("tool host shutdown complete")
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key string, defaultValue string) (result string) {
	value := os.Getenv(key)
	if value == "" {
		result = defaultValue
		return result
	}

	result = value
	return result
}
