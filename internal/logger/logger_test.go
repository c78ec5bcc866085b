package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestLogger returns a logger writing to a buffer with a fixed clock.
func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&buf, level)
	l.now = func() time.Time { return time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC) }
	return l, &buf
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"  DEBUG ", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"WARN", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestLineFormat(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	l.Debug("sync: fetched %d issues", 3)

	want := "2025-07-14T10:00:00.000Z DEBUG sync: fetched 3 issues\n"
	if buf.String() != want {
		t.Errorf("line = %q, want %q", buf.String(), want)
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn")
	l.Error("shown error")

	output := buf.String()
	for _, hidden := range []string{"hidden debug", "hidden info"} {
		if strings.Contains(output, hidden) {
			t.Errorf("output should not contain %q at WARN level", hidden)
		}
	}
	for _, shown := range []string{"WARN shown warn", "ERROR shown error"} {
		if !strings.Contains(output, shown) {
			t.Errorf("output should contain %q, got: %s", shown, output)
		}
	}
}

func TestSetLevel(t *testing.T) {
	l, _ := newTestLogger(LevelInfo)

	l.SetLevel(LevelError)
	if l.Level() != LevelError {
		t.Errorf("Level() = %v, want %v", l.Level(), LevelError)
	}
}

func TestTrailingNewlineTrimmed(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	l.Info("message with newline\n")

	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one newline, got %q", buf.String())
	}
}

func TestWriterSplitsLines(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	w := l.Writer(LevelDebug)
	n, err := w.Write([]byte("[GIN] GET /api/issues\n\n[GIN] POST /api/issues\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len("[GIN] GET /api/issues\n\n[GIN] POST /api/issues\n") {
		t.Errorf("Write returned %d, want full length", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[1], "DEBUG [GIN] POST /api/issues") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestWriterRespectsLevel(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)

	l.Writer(LevelDebug).Write([]byte("noise\n"))

	if buf.Len() != 0 {
		t.Errorf("debug writer output should be filtered at INFO, got %q", buf.String())
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected Level
		wantErr  bool
	}{
		{"unset", map[string]string{}, LevelInfo, false},
		{"blank", map[string]string{EnvLevel: "  "}, LevelInfo, false},
		{"debug", map[string]string{EnvLevel: "debug"}, LevelDebug, false},
		{"invalid", map[string]string{EnvLevel: "loud"}, LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			level, err := LevelFromEnv(lookup, LevelInfo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LevelFromEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if level != tt.expected {
				t.Errorf("LevelFromEnv() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestFileOutput(t *testing.T) {
	l, buf := newTestLogger(LevelInfo)
	logPath := filepath.Join(t.TempDir(), "bridge.log")

	if err := l.SetLogFile(logPath); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	l.Info("written twice")
	l.Close()

	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("primary output should contain message, got: %s", buf.String())
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "written twice") {
		t.Errorf("log file should contain message, got: %s", content)
	}
}

func TestSetLogFileError(t *testing.T) {
	l, _ := newTestLogger(LevelInfo)

	if err := l.SetLogFile("/nonexistent/directory/bridge.log"); err == nil {
		t.Error("expected error when opening file in non-existent directory")
	}
	// Close with no file must be a no-op.
	l.Close()
}

func TestDefaultLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	previousLevel := GetLevel()
	SetOutput(&buf)
	SetLevel(LevelDebug)
	defer func() {
		SetOutput(os.Stderr)
		SetLevel(previousLevel)
	}()

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")

	output := buf.String()
	for _, want := range []string{"DEBUG debug msg", "INFO info msg", "WARN warn msg", "ERROR error msg"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %s", want, output)
		}
	}
	if Default() != defaultLogger {
		t.Error("Default() should return the package logger")
	}
}

func TestConcurrentLogging(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	var wg sync.WaitGroup
	numGoroutines := 10
	numMessages := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numMessages; j++ {
				l.Info("goroutine %d message %d", id, j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != numGoroutines*numMessages {
		t.Errorf("expected %d log lines, got %d", numGoroutines*numMessages, len(lines))
	}
}
