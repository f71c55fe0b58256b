package eventloop

import (
	"log"
	"math"
	"time"

	"github.com/joeycumines/go-eventloop-runtime/internal/multiplex"
)

// eventPump is the worker goroutine's main loop (see SPEC_FULL.md §4.5).
// It alternates between waiting on the kernel multiplexer and running due
// tasks, until the private lifecycle copy observes STOPPING.
func (l *Loop) eventPump() {
	timeout := l.opts.defaultWaitTimeout
	events := make([]multiplex.Event, 0, l.opts.maxEventsPerIteration)
	touched := make([]*HandleRecord, 0, l.opts.maxEventsPerIteration)

	for {
		if l.privateState == StateStopping {
			return
		}
		timeout = l.tick(timeout, events, touched)
	}
}

// tick runs one iteration of the event pump and returns the wait timeout to
// use for the next call. It queries the clock twice, matching the original
// kqueue backend's two-read pattern (kqueue_event_loop.c: once before
// running due tasks via s_aws_event_loop_run_all, and again afterward to
// derive the next wait): the first reading gates which scheduled tasks are
// due, the second is taken fresh for the timeout computation rather than
// reusing the first, so a slow batch of task callbacks doesn't leave the
// next wait overestimated.
func (l *Loop) tick(timeout time.Duration, events []multiplex.Event, touched []*HandleRecord) time.Duration {
	timeoutMs := int(timeout / time.Millisecond)
	if timeout > 0 && timeoutMs == 0 {
		timeoutMs = 1
	}
	ready, err := l.registry.mux.Wait(events, timeoutMs)
	drainMailbox := false
	if err != nil {
		l.logf(LevelWarn, "poll", "multiplexer wait failed", err)
		drainMailbox = true
	}

	touched = touched[:0]
	for _, ev := range ready {
		if ev.FD == l.wake.readFD {
			drainMailbox = true
			l.wake.drain()
			continue
		}
		rec, ok := l.registry.records[ev.FD]
		if !ok {
			continue
		}
		mask := deriveEventMask(ev)
		if mask == 0 {
			continue
		}
		if rec.iterationMask == 0 {
			touched = append(touched, rec)
		}
		rec.iterationMask |= mask
	}

	for _, rec := range touched {
		mask := rec.iterationMask
		rec.iterationMask = 0
		safeRunCallback(rec.callback, mask)
	}

	if drainMailbox {
		state, tasks := l.mailbox.drain()
		if state == StateStopping && l.privateState == StateRunning {
			l.privateState = StateStopping
		}
		for t := tasks; t != nil; {
			next := t.next
			t.next = nil
			if t.runAt == 0 {
				l.scheduler.scheduleNow(t)
			} else {
				l.scheduler.scheduleAt(t, t.runAt)
			}
			t = next
		}
	}

	l.scheduler.runAll(l.opts.clock())

	now := l.opts.clock()
	next, ok := l.scheduler.hasPending()
	if !ok {
		return l.opts.defaultWaitTimeout
	}
	wait := next - now
	if wait < 0 {
		wait = 0
	}
	// Clamp to the largest timeout epoll_wait can represent (a C int of
	// milliseconds).
	const maxWaitTimeout = time.Duration(math.MaxInt32) * time.Millisecond
	out := time.Duration(wait)
	if out > maxWaitTimeout {
		out = maxWaitTimeout
	}
	return out
}

func safeRunCallback(cb IOCallback, mask EventMask) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventloop: io callback panicked: %v", r)
		}
	}()
	cb(mask)
}
