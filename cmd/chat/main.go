package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calder-ops/toolbridge/pkg/chat"
	"github.com/calder-ops/toolbridge/pkg/config"
	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/provider"
	"github.com/calder-ops/toolbridge/pkg/provider/anthropicmsg"
	"github.com/calder-ops/toolbridge/pkg/provider/openaichat"
	"github.com/calder-ops/toolbridge/pkg/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(getEnv("CHAT_CONFIG", "config.yaml"))
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = cfg.Validate()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	events, err := eventlog.Open(cfg.LogDir, "chat")
	if err != nil {
		logger.Error("failed to open event log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	adapter := buildAdapter(cfg, logger)

	// Interrupt is a clean exit, not a fault.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nBye!")
		cancel()
	}()

	events.Log("chat_start", map[string]interface{}{"provider": cfg.Provider})

	rpcClient := transport.NewClient(cfg.ServerURL, events, logger)

	session, err := chat.NewSession(ctx, adapter, rpcClient, events, logger)
	if err != nil {
		events.LogError("chat_crash", map[string]interface{}{"error": err.Error()})
		logger.Error("failed to start session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := chat.NewStore(30 * time.Minute)
	store.Add(session)
	defer store.Remove(session.ID)

	printTools(session.Tools())

	fmt.Println("\nType your question (Ctrl+C to exit):")

	runLoop(ctx, session, logger)
}

// runLoop reads user lines until EOF or interrupt and runs one turn per line.
func runLoop(ctx context.Context, session *chat.Session, logger *slog.Logger) {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")

		select {
		case <-ctx.Done():
			return

		case line, ok := <-lines:
			if !ok {
				return
			}

			if line == "" {
				continue
			}

			reply, err := session.RunTurn(ctx, line)
			if err != nil {
				// The turn is lost but the session survives; report and idle.
				logger.Error("turn failed", slog.String("error", err.Error()))
				fmt.Printf("Error: %v\n", err)
				continue
			}

			fmt.Println(reply)
		}
	}
}

// buildAdapter selects the provider variant from configuration.
func buildAdapter(cfg config.Config, logger *slog.Logger) (result provider.Adapter) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		result = anthropicmsg.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, logger)

	case config.ProviderOpenAI:
		result = openaichat.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, logger)

	default:
		result = openaichat.New(cfg.Ollama.APIKey, cfg.Ollama.BaseURL, cfg.Ollama.Model, logger)
	}

	return result
}

// printTools shows the loaded tool list.
func printTools(tools []provider.ToolDefinition) {
	fmt.Println("Loaded tools:")

	for _, tool := range tools {
		fmt.Printf("  %-12s %s\n", tool.Name, tool.Description)
	}
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
