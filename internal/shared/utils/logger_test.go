package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComponentLoggerWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDirectory(dir)
	t.Cleanup(func() { SetLogDirectory("") })

	logger := NewComponentLogger("TransferCoordinator").WithLogID("log-xyz")
	logger.Info("stored %d bytes", 42)
	logger.Debug("debug lines pass at the default level")

	data, err := os.ReadFile(filepath.Join(dir, "blobvault-service.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(data)
	for _, want := range []string{"[INFO] [SERVICE] [TransferCoordinator] [log_id=log-xyz]", "stored 42 bytes", "[DEBUG]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("log file missing %q:\n%s", want, text)
		}
	}

	SetMinLevel(WARN)
	t.Cleanup(func() { SetMinLevel(DEBUG) })
	logger.Info("suppressed line")
	data, _ = os.ReadFile(filepath.Join(dir, "blobvault-service.log"))
	if strings.Contains(string(data), "suppressed line") {
		t.Fatalf("info line written below minimum level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		" WARN ":  WARN,
		"warning": WARN,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
