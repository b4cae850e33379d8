// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package msgloop

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

const (
	// DefaultMaxEvents is the default number of notifications retrieved per wait.
	DefaultMaxEvents = 16

	// maxMaxEvents bounds WithMaxEvents.
	maxMaxEvents = 4096
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger         *logiface.Logger[logiface.Event]
	panicLimiter   *catrate.Limiter
	maxEvents      int
	pollTimeout    time.Duration
	metricsEnabled bool
}

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithMaxEvents bounds the number of readiness notifications retrieved per
// wait. Must be in [1, 4096]. Defaults to 16.
func WithMaxEvents(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n < 1 || n > maxMaxEvents {
			return fmt.Errorf("msgloop: max events %d out of range [1, %d]", n, maxMaxEvents)
		}
		opts.maxEvents = n
		return nil
	}}
}

// WithPollTimeout sets how long each wait may block. A negative duration (the
// default) blocks until a descriptor is ready or the loop is woken; zero
// polls without blocking, turning Run into a busy loop. Positive values are
// rounded up to whole milliseconds.
func WithPollTimeout(d time.Duration) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.pollTimeout = d
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger (the default) disables
// logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPanicLogRate limits how often recovered panics are logged, separately
// for messages and events, e.g. {time.Second: 5, time.Minute: 50}. Panics
// over the limit are still recovered and counted. See catrate.NewLimiter for
// the rules rates must follow; nil or empty (the default) logs every panic.
func WithPanicLogRate(rates map[time.Duration]int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) (err error) {
		if len(rates) == 0 {
			opts.panicLimiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("msgloop: panic log rate: %v", r)
			}
		}()
		opts.panicLimiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// WithMetrics enables runtime counters, see Loop.Metrics.
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		maxEvents:   DefaultMaxEvents,
		pollTimeout: -1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// timeoutMillis converts a poll timeout to the multiplexer's millisecond
// argument, rounding sub-millisecond positive durations up.
func timeoutMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > 1<<31-1 {
		return 1<<31 - 1
	}
	return int(ms)
}
