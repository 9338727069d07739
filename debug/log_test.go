package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogDisabledWritesNothing(t *testing.T) {
	Disable()
	var buf bytes.Buffer
	Log("pool", "create id=%d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	if Enabled() {
		t.Fatal("expected logging disabled")
	}
}

func TestSetOutputFormatsCategory(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Disable()

	Log("pool", "create id=%d name=%q", 7, "drums")

	line := buf.String()
	if !strings.Contains(line, "pool") || !strings.Contains(line, `create id=7 name="drums"`) {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected trailing newline, got %q", line)
	}
}

func TestLogEveryThrottles(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Disable()

	for i := 0; i < 10; i++ {
		LogEvery(5, "patch", "throttle-test")
	}

	if got := strings.Count(buf.String(), "throttle-test"); got != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", got, buf.String())
	}
}

func TestEnableCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	Log("test", "hello %s", "file")
	Disable()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "Debug logging started") || !strings.Contains(string(data), "hello file") {
		t.Fatalf("unexpected log contents %q", data)
	}
}
