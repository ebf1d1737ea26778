package id

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewFileID returns a random client-facing file identifier (UUID v4).
func NewFileID() string {
	return uuid.NewString()
}

// ValidFileID reports whether raw parses as a UUID.
func ValidFileID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}

// NewLogID generates a sortable identifier used to correlate log lines of one request.
func NewLogID() string {
	return "log-" + ksuid.New().String()
}
