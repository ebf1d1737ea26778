package logging

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"blobvault/internal/shared/utils"
)

// LogFileSnippet captures matched log lines for a single file.
type LogFileSnippet struct {
	Path      string   `json:"path,omitempty"`
	Entries   []string `json:"entries,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// LogBundle gathers the service and latency lines written for one log id.
type LogBundle struct {
	LogID   string         `json:"log_id"`
	Service LogFileSnippet `json:"service"`
	Latency LogFileSnippet `json:"latency"`
}

// LogFetchOptions bounds how much is returned per file.
type LogFetchOptions struct {
	MaxEntries   int
	MaxBytes     int
	MaxLineBytes int
}

// FetchLogBundle scans the category log files for lines tagged with logID.
func FetchLogBundle(logID string, opts LogFetchOptions) LogBundle {
	logID = strings.TrimSpace(logID)
	bundle := LogBundle{LogID: logID}
	if logID == "" {
		bundle.Service.Error = "log_id is required"
		bundle.Latency.Error = "log_id is required"
		return bundle
	}

	opts = normalizeLogFetchOptions(opts)
	bundle.Service = readCategoryMatches(utils.LogCategoryService, logID, opts)
	bundle.Latency = readCategoryMatches(utils.LogCategoryLatency, logID, opts)
	return bundle
}

func normalizeLogFetchOptions(opts LogFetchOptions) LogFetchOptions {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 200
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 1 << 20
	}
	return opts
}

func readCategoryMatches(category utils.LogCategory, logID string, opts LogFetchOptions) LogFileSnippet {
	path, err := utils.LogFilePath(category)
	if err != nil {
		return LogFileSnippet{Error: err.Error()}
	}
	return readLogMatches(path, logID, opts)
}

func readLogMatches(path, logID string, opts LogFetchOptions) LogFileSnippet {
	snippet := LogFileSnippet{Path: path}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			snippet.Error = "not_found"
		} else {
			snippet.Error = err.Error()
		}
		return snippet
	}
	defer func() { _ = file.Close() }()

	// Match on the tag, not a bare substring, so log-ab does not match log-abc.
	tag := "[log_id=" + logID + "]"
	reader := bufio.NewReaderSize(file, 64*1024)
	matchedBytes := 0
	for {
		line, err := readLine(reader, opts.MaxLineBytes)
		if line != "" && strings.Contains(line, tag) {
			snippet.Entries = append(snippet.Entries, line)
			matchedBytes += len(line)
			if len(snippet.Entries) >= opts.MaxEntries || matchedBytes >= opts.MaxBytes {
				snippet.Truncated = true
				return snippet
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				snippet.Error = err.Error()
			}
			return snippet
		}
	}
}

// readLine returns the next line without its newline. Lines longer than
// maxBytes are drained and returned as "".
func readLine(reader *bufio.Reader, maxBytes int) (string, error) {
	var buf []byte
	oversize := false
	for {
		segment, isPrefix, err := reader.ReadLine()
		if err != nil {
			if oversize {
				return "", err
			}
			return string(buf), err
		}
		if !oversize {
			buf = append(buf, segment...)
			if len(buf) > maxBytes {
				buf, oversize = nil, true
			}
		}
		if !isPrefix {
			if oversize {
				return "", nil
			}
			return string(buf), nil
		}
	}
}
