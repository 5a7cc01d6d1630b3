package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_writesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swing.logs")

	log, err := NewLogger(path, "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Debug("[sampler] event")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"[sampler] event"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestNewLogger_badLevel(t *testing.T) {
	if _, err := NewLogger("", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
