// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import "time"

// loopOptions holds configuration resolved from a set of Option values.
type loopOptions struct {
	clock                 func() int64
	logger                Logger
	defaultWaitTimeout    time.Duration
	maxEventsPerIteration int

	// spawn starts the worker goroutine. It is not exposed as a public
	// Option: Go goroutines don't fail to start the way the original's
	// thread primitive can fail to spawn an OS thread, so there is no real
	// caller-facing knob here. It exists purely as an internal seam so
	// Run's spawn-failure path (SPEC_FULL.md §4.6/§12.4) has something to
	// fail for parity with the original's thread-spawn-failure handling,
	// and so that path is actually exercised by a test instead of being
	// permanently dead code.
	spawn func(fn func()) error
}

// Option configures a Loop at construction time.
type Option interface {
	applyLoop(*loopOptions) error
}

type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithClock overrides the monotonic-nanosecond clock used to schedule and
// fire timers. The default clock is anchored to time.Now and advanced via
// time.Since, matching Go's runtime monotonic clock reading.
func WithClock(clock func() int64) Option {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if clock != nil {
			opts.clock = clock
		}
		return nil
	}}
}

// WithLogger overrides the Loop's structured logger. Without it, the Loop
// reports through the package-level logger set by SetStructuredLogger,
// which is a no-op until one is set.
func WithLogger(logger Logger) Option {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if logger != nil {
			opts.logger = logger
		}
		return nil
	}}
}

// WithWaitTimeout overrides the fallback wait timeout used when no task is
// scheduled (default 100s, matching the original kqueue backend's
// DEFAULT_TIMEOUT_SEC).
func WithWaitTimeout(d time.Duration) Option {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if d > 0 {
			opts.defaultWaitTimeout = d
		}
		return nil
	}}
}

// WithMaxEventsPerIteration overrides the number of kernel event records
// fetched per multiplexer wait call (default 100).
func WithMaxEventsPerIteration(n int) Option {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n > 0 {
			opts.maxEventsPerIteration = n
		}
		return nil
	}}
}

func resolveLoopOptions(opts []Option) (*loopOptions, error) {
	cfg := &loopOptions{
		clock:                 defaultClock,
		defaultWaitTimeout:    100 * time.Second,
		maxEventsPerIteration: 100,
		spawn:                 defaultSpawn,
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

var clockAnchor = time.Now()

func defaultClock() int64 {
	return clockAnchor.UnixNano() + int64(time.Since(clockAnchor))
}

// defaultSpawn always succeeds: a Go goroutine launch cannot itself fail.
func defaultSpawn(fn func()) error {
	go fn()
	return nil
}
