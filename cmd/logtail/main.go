// Command logtail follows the JSONL event logs, printing records that match an
// optional key=value filter. Usage:
//
//	logtail [-dir ./logs] [-filter level=ERROR,component=toolhost] [file ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	dir := flag.String("dir", "./logs", "log directory to tail when no files are given")
	filterText := flag.String("filter", "", "comma-separated key=value conditions (e.g. level=ERROR,event=tool_call_error)")
	flag.Parse()

	paths := flag.Args()

	if len(paths) == 0 {
		discovered, err := eventlog.ListLogFiles(*dir)
		if err != nil {
			logger.Error("failed to list log files", slog.String("error", err.Error()))
			os.Exit(1)
		}

		paths = discovered
	}

	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "no .jsonl files found in %s\n", *dir)
		os.Exit(1)
	}

	filter := eventlog.ParseFilter(*filterText)
	tailer := eventlog.NewTailer(paths, filter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	records := make(chan eventlog.Record, 64)

	go func() {
		tailer.Run(ctx, records)
		close(records)
	}()

	fmt.Fprintf(os.Stderr, "tailing %d file(s)\n", len(paths))

	for record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			continue
		}

		fmt.Println(string(line))
	}
}
