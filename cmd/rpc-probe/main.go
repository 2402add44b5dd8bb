// Command rpc-probe exercises the tool host end to end without a model:
// initialize, list tools, then write and search a demo file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	serverURL := getEnv("MCP_SERVER_URL", "http://127.0.0.1:5000/rpc")
	logDir := getEnv("LOG_DIR", "./logs")

	events, err := eventlog.Open(logDir, "probe")
	if err != nil {
		logger.Error("failed to open event log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	client := transport.NewClient(serverURL, events, logger)

	fmt.Println(">> Sending initialize")

	initResult, err := client.Initialize(ctx, transport.ClientInfo{Name: "ExampleClient", Version: "0.1"})
	if err != nil {
		logger.Error("initialize failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("<< Received init response: %s\n\n", asJSON(initResult))

	fmt.Println(">> Requesting tools list")

	tools, err := client.ListTools(ctx)
	if err != nil {
		logger.Error("tools/list failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("<< Available tools: %s\n\n", asJSON(tools))

	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}

	if !names["write_file"] || !names["search_file"] {
		events.LogLevel(eventlog.LevelWarning, "client_warning", map[string]interface{}{
			"message": "Required tools not available",
		})
		fmt.Println("Required tools not available.")
		return
	}

	fmt.Println(">> Calling write_file to create 'demo.txt'")

	writeResult, err := client.CallTool(ctx, "write_file", map[string]interface{}{
		"filename": "demo.txt",
		"text":     "Hello\nThis is a TODO line.\nBye",
	})
	if err != nil {
		logger.Error("write_file failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("<< write_file result: %s\n\n", asJSON(writeResult))

	fmt.Println(">> Calling search_file to find 'TODO' in 'demo.txt'")

	searchResult, err := client.CallTool(ctx, "search_file", map[string]interface{}{
		"filename": "demo.txt",
		"keyword":  "TODO",
	})
	if err != nil {
		logger.Error("search_file failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("<< search_file result: %s\n", asJSON(searchResult))
}

// asJSON renders a value as indented JSON for display.
func asJSON(value interface{}) (result string) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		result = fmt.Sprintf("%v", value)
		return result
	}

	result = string(data)
	return result
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
