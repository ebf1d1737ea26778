// Package async runs background goroutines that cannot crash the process.
package async

import (
	"fmt"
	"runtime/debug"
)

// PanicLogger is the subset of logging.Logger needed to report a panic.
type PanicLogger interface {
	Error(format string, args ...any)
}

// Go runs fn in a new goroutine, logging and swallowing any panic.
func Go(logger PanicLogger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}

// GoResult runs fn in a new goroutine and delivers its error on the returned
// channel, which receives exactly one value. A panic is logged and delivered
// as an error so a caller waiting on the channel is never stranded.
func GoResult(logger PanicLogger, name string, fn func() error) <-chan error {
	result := make(chan error, 1)
	Go(logger, name, func() {
		defer func() {
			if r := recover(); r != nil {
				report(logger, name, r)
				result <- fmt.Errorf("goroutine %s panicked: %v", name, r)
			}
		}()
		result <- fn()
	})
	return result
}

// Recover logs a recovered panic. It must be called directly by defer.
func Recover(logger PanicLogger, name string) {
	if r := recover(); r != nil {
		report(logger, name, r)
	}
}

func report(logger PanicLogger, name string, r any) {
	if logger == nil {
		return
	}
	logger.Error("goroutine panic [%s]: %v\n%s", name, r, debug.Stack())
}
