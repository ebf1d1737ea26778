package async

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	lines  []string
	logged chan struct{}
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{logged: make(chan struct{}, 1)}
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
	l.mu.Unlock()
	select {
	case l.logged <- struct{}{}:
	default:
	}
}

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func TestGoLogsPanicWithNameAndStack(t *testing.T) {
	logger := newRecordingLogger()

	Go(logger, "server.listen", func() {
		panic("listener exploded")
	})

	select {
	case <-logger.logged:
	case <-time.After(time.Second):
		t.Fatal("panic was not logged")
	}
	lines := logger.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "goroutine panic [server.listen]: listener exploded")
	assert.Contains(t, lines[0], "goroutine.go")
}

func TestGoRunsFunctionWithoutLogging(t *testing.T) {
	logger := newRecordingLogger()
	done := make(chan int, 1)

	Go(logger, "worker", func() { done <- 42 })

	select {
	case got := <-done:
		assert.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
	assert.Empty(t, logger.Lines())
}

func TestRecoverSwallowsPanicWithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover(nil, "no-logger")
		panic("ignored")
	})
}

func TestGoResultDeliversReturnedError(t *testing.T) {
	want := fmt.Errorf("listen tcp: address in use")
	got := <-GoResult(newRecordingLogger(), "server.listen", func() error { return want })
	assert.Equal(t, want, got)
}

func TestGoResultTurnsPanicIntoError(t *testing.T) {
	logger := newRecordingLogger()

	select {
	case err := <-GoResult(logger, "server.listen", func() error { panic("bind failed") }):
		require.Error(t, err)
		assert.Contains(t, err.Error(), "goroutine server.listen panicked: bind failed")
	case <-time.After(time.Second):
		t.Fatal("panic was not delivered")
	}
	require.Len(t, logger.Lines(), 1)
	assert.Contains(t, logger.Lines()[0], "goroutine panic [server.listen]")
}
