package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultPollInterval is how often the tailer re-checks files for new lines.
const DefaultPollInterval = 500 * time.Millisecond

// Filter is a set of exact-match key=value conditions. A record matches when
// every condition matches either a top-level field or an entry in the record's
// data map. Values are compared by their string rendering.
type Filter map[string]string

// ParseFilter parses a comma-separated key=value list ("level=ERROR,component=toolhost").
// Pairs without an equals sign are ignored.
func ParseFilter(text string) (result Filter) {
	result = Filter{}

	for _, pair := range strings.Split(text, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		idx := strings.Index(pair, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		if key != "" {
			result[key] = value
		}
	}

	return result
}

// Matches reports whether a record satisfies every filter condition.
func (f Filter) Matches(record Record) (result bool) {
	for key, want := range f {
		var got string
		var found bool

		switch key {
		case "ts":
			got, found = record.Timestamp, true
		case "level":
			got, found = record.Level, true
		case "component":
			got, found = record.Component, true
		case "event":
			got, found = record.Event, true
		case "host":
			got, found = record.Host, true
		default:
			if value, ok := record.Data[key]; ok {
				got, found = fmt.Sprintf("%v", value), true
			}
		}

		if !found || got != want {
			return result
		}
	}

	result = true
	return result
}

// Tailer follows one or more JSONL log files, emitting records appended after
// the tailer starts. Files are polled; there is no inotify dependency.
type Tailer struct {
	paths        []string
	offsets      map[string]int64
	filter       Filter
	pollInterval time.Duration
}

// NewTailer creates a tailer over the given files. A nil or empty filter
// matches every record.
func NewTailer(paths []string, filter Filter) (result *Tailer) {
	result = &Tailer{
		paths:        paths,
		offsets:      make(map[string]int64),
		filter:       filter,
		pollInterval: DefaultPollInterval,
	}

	return result
}

// ListLogFiles returns the .jsonl files in a directory, sorted by name.
func ListLogFiles(dir string) (result []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = fmt.Errorf("reading log directory: %w", err)
		return result, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		result = append(result, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(result)
	return result, err
}

// Run polls the files until the context is cancelled, sending matching records
// to out. Existing content is skipped: only lines appended after Run starts are
// emitted. Lines that fail to decode are dropped.
func (t *Tailer) Run(ctx context.Context, out chan<- Record) {
	// Seek to current end of each file so we only tail new lines.
	for _, path := range t.paths {
		if info, statErr := os.Stat(path); statErr == nil {
			t.offsets[path] = info.Size()
		}
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			for _, path := range t.paths {
				t.drain(ctx, path, out)
			}
		}
	}
}

// drain reads any lines appended to path since the last poll.
func (t *Tailer) drain(ctx context.Context, path string, out chan<- Record) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	offset := t.offsets[path]
	if info.Size() < offset {
		// File was truncated or rotated; start over from the beginning.
		offset = 0
	}

	if info.Size() == offset {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	_, err = f.Seek(offset, 0)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	read := offset

	for scanner.Scan() {
		line := scanner.Bytes()
		read += int64(len(line)) + 1

		var record Record

		decodeErr := json.Unmarshal(line, &record)
		if decodeErr != nil {
			continue
		}

		if len(t.filter) > 0 && !t.filter.Matches(record) {
			continue
		}

		select {
		case out <- record:
		case <-ctx.Done():
			return
		}
	}

	t.offsets[path] = read
}
