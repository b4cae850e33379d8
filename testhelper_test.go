//go:build linux || darwin

package msgloop

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestLoop creates an unbound loop with metrics enabled, closed when the
// test ends.
func newTestLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	loop, err := New(append([]LoopOption{WithMetrics(true)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := loop.Close(); err != nil && !errors.Is(err, ErrLoopClosed) {
			t.Errorf("close: %v", err)
		}
	})
	return loop
}

// runWithTimeout runs loop on the calling goroutine, failing the test if it
// does not quit within 5 seconds.
func runWithTimeout(t *testing.T, loop *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Run(ctx))
}

// runAsync runs loop on a new goroutine, returning a channel receiving the
// result of Run.
func runAsync(t *testing.T, loop *Loop) <-chan error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	return done
}

// awaitRun waits for the result of runAsync.
func awaitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

// testPipe creates a pipe, returning the raw descriptors.
func testPipe(t *testing.T) (r, w int) {
	t.Helper()
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal("os.Pipe failed:", err)
	}
	t.Cleanup(func() {
		_ = pr.Close()
		_ = pw.Close()
	})
	return int(pr.Fd()), int(pw.Fd())
}
