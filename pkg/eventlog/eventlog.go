package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level constants for event records.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Record is a single structured event as it appears on disk, one JSON object per line.
type Record struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Component string                 `json:"component"`
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	PID       int                    `json:"pid"`
	Host      string                 `json:"host"`
}

// Logger appends structured events to a JSONL file. Appends are serialized by a
// single writer lock so lines from concurrent callers never interleave.
type Logger struct {
	mu        sync.Mutex
	filePath  string
	component string
	hostname  string
	pid       int
}

// Open creates a logger writing to <dir>/<component>.jsonl, creating the
// directory if needed. Slashes in the component name are flattened so the
// component maps to a single file.
func Open(dir string, component string) (result *Logger, err error) {
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		err = fmt.Errorf("creating log directory: %w", err)
		return result, err
	}

	hostname, hostErr := os.Hostname()
	if hostErr != nil {
		hostname = "unknown"
	}

	safeName := strings.ReplaceAll(component, "/", "-")

	result = &Logger{
		filePath:  filepath.Join(dir, safeName+".jsonl"),
		component: component,
		hostname:  hostname,
		pid:       os.Getpid(),
	}

	return result, err
}

// Path returns the file the logger appends to.
func (l *Logger) Path() (result string) {
	result = l.filePath
	return result
}

// Log appends an INFO event.
func (l *Logger) Log(event string, data map[string]interface{}) {
	l.LogLevel(LevelInfo, event, data)
}

// LogError appends an ERROR event.
func (l *Logger) LogError(event string, data map[string]interface{}) {
	l.LogLevel(LevelError, event, data)
}

// LogLevel appends an event at the given level. Write failures are swallowed:
// the event log must never take down the component doing the logging.
func (l *Logger) LogLevel(level string, event string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}

	record := Record{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.component,
		Event:     event,
		Data:      data,
		PID:       l.pid,
		Host:      l.hostname,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(line, '\n'))
}
