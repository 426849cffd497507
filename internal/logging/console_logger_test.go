package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
)

// captureStderr runs fn with stderr redirected to a pipe and returns
// everything written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	output := captureStderr(t, func() {
		NewConsoleLogger(true).Verbose("loading %s", "data.csv")
	})
	if output != "[VERBOSE] loading data.csv\n" {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	output := captureStderr(t, func() {
		NewConsoleLogger(false).Verbose("loading %s", "data.csv")
	})
	if output != "" {
		t.Errorf("expected no output, got %q", output)
	}
}

func TestConsoleLogger_InfoAndError(t *testing.T) {
	output := captureStderr(t, func() {
		logger := NewConsoleLogger(false)
		logger.Info("imported %d rows", 42)
		logger.Error("import of %s failed", "x.csv")
	})
	want := "imported 42 rows\n[ERROR] import of x.csv failed\n"
	if output != want {
		t.Errorf("expected %q, got %q", want, output)
	}
}

func TestConsoleLogger_LiteralPercentWithoutArgs(t *testing.T) {
	output := captureStderr(t, func() {
		NewConsoleLogger(false).Info("progress 100%")
	})
	if output != "progress 100%\n" {
		t.Errorf("format verbs must not fire without args, got %q", output)
	}
}

func TestConsoleLogger_ConcurrentSafety(t *testing.T) {
	output := captureStderr(t, func() {
		logger := NewConsoleLogger(true)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				logger.Info("message %d", id)
				logger.Verbose("verbose %d", id)
				logger.Error("error %d", id)
			}(i)
		}
		wg.Wait()
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 30 {
		t.Errorf("expected 30 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, "message") && !strings.Contains(line, "verbose") && !strings.Contains(line, "error") {
			t.Errorf("line %d appears interleaved: %q", i, line)
		}
	}
}

func TestNullLogger_DiscardsAllMessages(t *testing.T) {
	output := captureStderr(t, func() {
		logger := NewNullLogger()
		logger.Verbose("verbose")
		logger.Info("info")
		logger.Error("error")
	})
	if output != "" {
		t.Errorf("NullLogger should discard all messages, got: %q", output)
	}
}
