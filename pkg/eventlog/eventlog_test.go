package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	logger, err := Open(dir, "test-component")
	require.NoError(t, err)

	logger.Log("server_start", map[string]interface{}{"base_dir": "/tmp/x"})

	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)

	var record Record

	err = json.Unmarshal(data[:len(data)-1], &record)
	require.NoError(t, err)

	assert.Equal(t, LevelInfo, record.Level)
	assert.Equal(t, "test-component", record.Component)
	assert.Equal(t, "server_start", record.Event)
	assert.Equal(t, "/tmp/x", record.Data["base_dir"])
	assert.NotZero(t, record.PID)
	assert.NotEmpty(t, record.Host)

	_, err = time.Parse(time.RFC3339Nano, record.Timestamp)
	assert.NoError(t, err, "timestamp should be RFC3339Nano")
}

func TestLoggerComponentNameFlattened(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	logger, err := Open(dir, "mcp/server")
	require.NoError(t, err)

	logger.Log("x", nil)

	_, err = os.Stat(logger.Path())
	require.NoError(t, err)
	assert.Contains(t, logger.Path(), "mcp-server.jsonl")
}

func TestLoggerConcurrentAppends(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	logger, err := Open(dir, "concurrent")
	require.NoError(t, err)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup

	for w := 0; w < writers; w++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for i := 0; i < perWriter; i++ {
				logger.Log("tick", map[string]interface{}{"writer": id, "seq": i})
			}
		}(w)
	}

	wg.Wait()

	f, err := os.Open(logger.Path())
	require.NoError(t, err)
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		var record Record

		err = json.Unmarshal(scanner.Bytes(), &record)
		require.NoError(t, err, "no line may be interleaved or truncated")

		count++
	}

	require.NoError(t, scanner.Err())
	assert.Equal(t, writers*perWriter, count)
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Filter
	}{
		{
			name:     "empty",
			input:    "",
			expected: Filter{},
		},
		{
			name:     "single pair",
			input:    "level=ERROR",
			expected: Filter{"level": "ERROR"},
		},
		{
			name:     "multiple pairs with spaces",
			input:    "level=ERROR, component=toolhost",
			expected: Filter{"level": "ERROR", "component": "toolhost"},
		},
		{
			name:     "pair without equals ignored",
			input:    "level=ERROR,garbage",
			expected: Filter{"level": "ERROR"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ParseFilter(tt.input))
		})
	}
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	record := Record{
		Level:     LevelError,
		Component: "toolhost",
		Event:     "tool_call_error",
		Data:      map[string]interface{}{"name": "read_file"},
	}

	assert.True(t, Filter{}.Matches(record))
	assert.True(t, Filter{"level": "ERROR"}.Matches(record))
	assert.True(t, Filter{"level": "ERROR", "event": "tool_call_error"}.Matches(record))
	assert.True(t, Filter{"name": "read_file"}.Matches(record), "data fields should match")
	assert.False(t, Filter{"level": "INFO"}.Matches(record))
	assert.False(t, Filter{"missing": "x"}.Matches(record))
}

func TestTailerEmitsNewRecordsOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	logger, err := Open(dir, "tailed")
	require.NoError(t, err)

	// Written before the tailer starts; must not be emitted.
	logger.Log("old_event", nil)

	tailer := NewTailer([]string{logger.Path()}, nil)
	tailer.pollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan Record, 16)

	go tailer.Run(ctx, out)

	// Give the tailer a moment to record the starting offsets.
	time.Sleep(100 * time.Millisecond)

	logger.Log("new_event", map[string]interface{}{"seq": 1})

	select {
	case record := <-out:
		assert.Equal(t, "new_event", record.Event)

	case <-ctx.Done():
		t.Fatal("timed out waiting for tailed record")
	}
}

func TestTailerAppliesFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	logger, err := Open(dir, "filtered")
	require.NoError(t, err)

	tailer := NewTailer([]string{logger.Path()}, Filter{"level": "ERROR"})
	tailer.pollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan Record, 16)

	go tailer.Run(ctx, out)

	time.Sleep(100 * time.Millisecond)

	logger.Log("ignored", nil)
	logger.LogError("kept", nil)

	select {
	case record := <-out:
		assert.Equal(t, "kept", record.Event)

	case <-ctx.Done():
		t.Fatal("timed out waiting for filtered record")
	}
}
