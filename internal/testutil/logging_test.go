package testutil

import (
	"log/slog"
	"sync"
	"testing"
)

// Do not use t.Parallel(): CaptureLogBuffer swaps the default logger.

func TestCaptureLogBufferFiltersByLevel(t *testing.T) {
	logBuf := CaptureLogBuffer(t, slog.LevelWarn)

	slog.Debug("[DEBUG-TEST] hidden")
	slog.Warn("[WARN-TEST] shown", "id", 12)

	if logBuf.Contains("hidden") {
		t.Fatalf("debug record leaked into warn capture: %q", logBuf.String())
	}
	if !logBuf.Contains("[WARN-TEST] shown") || !logBuf.Contains("id=12") {
		t.Fatalf("warn record missing: %q", logBuf.String())
	}
}

func TestCaptureLogBufferRestoresDefaultLogger(t *testing.T) {
	original := slog.Default()
	t.Run("capture", func(t *testing.T) {
		CaptureLogBuffer(t, slog.LevelInfo)
		if slog.Default() == original {
			t.Fatal("default logger was not replaced")
		}
	})
	if slog.Default() != original {
		t.Fatal("default logger was not restored after cleanup")
	}
}

func TestLogBufferConcurrentWriters(t *testing.T) {
	logBuf := CaptureLogBuffer(t, slog.LevelInfo)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("[INFO-TEST] worker", "n", i)
			_ = logBuf.String()
		}()
	}
	wg.Wait()

	for _, want := range []string{"n=0", "n=7"} {
		if !logBuf.Contains(want) {
			t.Fatalf("missing %q in %q", want, logBuf.String())
		}
	}
}
