package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadLogMatchesFiltersByTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobvault-service.log")
	lines := []string{
		"2026-01-02 10:00:00 [INFO] [SERVICE] [Router] [log_id=log-abc] middleware.go:40 - POST /stream",
		"2026-01-02 10:00:00 [INFO] [SERVICE] [Router] [log_id=log-abcd] middleware.go:40 - GET /stream",
		"2026-01-02 10:00:01 [INFO] [SERVICE] [Router] middleware.go:40 - GET /healthz",
		strings.Repeat("x", 64) + " [log_id=log-abc]",
		"2026-01-02 10:00:02 [ERROR] [SERVICE] [TransferCoordinator] [log_id=log-abc] coordinator.go:150 - Ingest failed",
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	snippet := readLogMatches(path, "log-abc", LogFetchOptions{MaxEntries: 10, MaxBytes: 1 << 20, MaxLineBytes: 32 + 100})
	if snippet.Error != "" {
		t.Fatalf("unexpected error %q", snippet.Error)
	}
	if len(snippet.Entries) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(snippet.Entries), snippet.Entries)
	}
	if !strings.HasSuffix(snippet.Entries[2], "Ingest failed") {
		t.Fatalf("last line without trailing newline must be returned, got %q", snippet.Entries[2])
	}

	limited := readLogMatches(path, "log-abc", LogFetchOptions{MaxEntries: 1, MaxBytes: 1 << 20, MaxLineBytes: 1 << 20})
	if len(limited.Entries) != 1 || !limited.Truncated {
		t.Fatalf("expected truncation after one entry, got %+v", limited)
	}

	skipped := readLogMatches(path, "log-abc", LogFetchOptions{MaxEntries: 10, MaxBytes: 1 << 20, MaxLineBytes: 40})
	if len(skipped.Entries) != 0 {
		t.Fatalf("all matching lines exceed 40 bytes and must be skipped, got %v", skipped.Entries)
	}
}

func TestFetchLogBundleRequiresLogID(t *testing.T) {
	bundle := FetchLogBundle("  ", LogFetchOptions{})
	if bundle.Service.Error == "" || bundle.Latency.Error == "" {
		t.Fatalf("expected errors for empty log id, got %+v", bundle)
	}
}

func TestReadLogMatchesMissingFile(t *testing.T) {
	snippet := readLogMatches(filepath.Join(t.TempDir(), "absent.log"), "log-1", LogFetchOptions{MaxEntries: 1, MaxBytes: 1, MaxLineBytes: 1})
	if snippet.Error != "not_found" {
		t.Fatalf("expected not_found, got %q", snippet.Error)
	}
}
