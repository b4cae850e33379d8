//go:build linux || darwin

package msgloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLines(t *testing.T, b *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestLogging_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	loop := newTestLoop(t, WithLogger(NewJSONLogger(&buf, logiface.LevelDebug)))
	loop.Scheduler().PostMessage(NewMessage(loop.Quit))
	runWithTimeout(t, loop)

	var msgs []string
	for _, line := range decodeLogLines(t, &buf) {
		msgs = append(msgs, line["msg"].(string))
	}
	assert.Equal(t, []string{"loop running", "quit observed", "loop stopped"}, msgs)
}

func TestLogging_WatchFailure(t *testing.T) {
	var buf bytes.Buffer
	loop := newTestLoop(t, WithLogger(NewJSONLogger(&buf, logiface.LevelDebug)))

	assert.False(t, loop.UnwatchFileDescriptor(12345))

	lines := decodeLogLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "watch", lines[0]["category"])
	assert.Contains(t, lines[0]["err"], "unwatch fd 12345")
	assert.Contains(t, lines[0]["err"], ErrFDNotRegistered.Error())
}

func TestLogging_LevelFiltered(t *testing.T) {
	var buf bytes.Buffer
	loop := newTestLoop(t, WithLogger(NewJSONLogger(&buf, logiface.LevelError)))
	assert.False(t, loop.UnwatchFileDescriptor(12345))
	loop.Scheduler().PostMessage(NewMessage(loop.Quit))
	runWithTimeout(t, loop)
	assert.Empty(t, buf.String())
}

func TestLogging_PanicLogRate(t *testing.T) {
	var buf bytes.Buffer
	loop := newTestLoop(t,
		WithLogger(NewJSONLogger(&buf, logiface.LevelError)),
		WithPanicLogRate(map[time.Duration]int{time.Hour: 1}),
	)
	sched := loop.Scheduler()
	for i := 0; i < 3; i++ {
		sched.PostMessage(NewMessage(func() { panic("boom") }))
	}
	sched.PostMessage(NewMessage(loop.Quit))
	runWithTimeout(t, loop)

	assert.Len(t, decodeLogLines(t, &buf), 1)
	assert.Equal(t, uint64(3), loop.Metrics().Panics)
}

func TestWithPanicLogRate_Invalid(t *testing.T) {
	_, err := New(WithPanicLogRate(map[time.Duration]int{time.Second: 0}))
	assert.Error(t, err)
}

func TestLogging_NilLogger(t *testing.T) {
	loop := newTestLoop(t)
	assert.NotPanics(t, func() {
		loop.logPanic("message", -1, "boom")
		loop.logWatchFailure(errors.New("nope"))
	})
}

func TestPanicError(t *testing.T) {
	cause := errors.New("cause")
	err := error(PanicError{Value: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "msgloop: recovered panic: cause", err.Error())
	assert.Nil(t, PanicError{Value: 42}.Unwrap())
}
