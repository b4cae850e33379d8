//go:build linux || darwin

package msgloop

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewJSONLogger returns a logger writing one JSON object per line to w
// (os.Stderr if nil), suitable for WithLogger.
func NewJSONLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// logPanic reports a recovered panic from a message or event, subject to
// WithPanicLogRate.
func (l *Loop) logPanic(kind string, fd int, r any) {
	if l.panicLimiter != nil {
		if _, ok := l.panicLimiter.Allow(kind); !ok {
			return
		}
	}
	b := l.logger.Err()
	if b == nil {
		return
	}
	b = b.Str("category", kind).Uint64("loop_id", l.id).Err(PanicError{Value: r})
	if fd >= 0 {
		b = b.Int("fd", fd)
	}
	b.Log("recovered panic")
}

// logWatchFailure reports a failed registry operation from the boolean API.
func (l *Loop) logWatchFailure(err error) {
	l.logger.Debug().
		Str("category", "watch").
		Uint64("loop_id", l.id).
		Err(err).
		Log("descriptor registry operation failed")
}
