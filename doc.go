// Package eventloop provides a single-threaded, kernel-event-driven I/O
// event loop intended as a runtime primitive for higher-level networking
// code (TCP, TLS, HTTP). It multiplexes readiness notifications for a set
// of registered file descriptors and executes a time-ordered queue of
// application tasks on one dedicated worker goroutine.
//
// # Architecture
//
// A [Loop] owns one worker goroutine, one kernel multiplexer instance, one
// wake channel (a self-pipe used to interrupt the multiplexer from another
// goroutine), one cross-thread mailbox, and one task scheduler. External
// callers interact through [Loop.ScheduleNow], [Loop.ScheduleAt],
// [Loop.SubscribeToIOEvents], and [Loop.UnsubscribeFromIOEvents]; these
// either dispatch directly when already called from the worker, or hand the
// work to the mailbox and wake the worker.
//
// # Platform Support
//
// I/O polling is implemented using epoll on Linux (internal/multiplex).
// The Multiplexer interface is narrow enough to support a kqueue or IOCP
// backend without touching the event pump, but only Linux is shipped.
//
// # Thread Safety
//
// [Loop.ScheduleNow], [Loop.ScheduleAt], [Loop.Stop],
// [Loop.SubscribeToIOEvents], and [Loop.UnsubscribeFromIOEvents] are safe
// to call from any goroutine. All other state (the handle registry, the
// scheduler, the worker-private lifecycle copy) is touched only by the
// worker goroutine.
//
// # Execution Model
//
// Each iteration of the worker:
//  1. Waits on the multiplexer for readiness or a wake.
//  2. Coalesces per-handle readiness flags and invokes each touched
//     handle's callback at most once.
//  3. If woken, drains the mailbox: snapshots lifecycle state and splices
//     pending tasks into the scheduler.
//  4. Runs every task now due, then recomputes the next wait timeout from
//     the earliest remaining scheduled task.
//
// # Usage
//
//	loop, err := eventloop.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := loop.Run(); err != nil {
//		log.Fatal(err)
//	}
//	loop.ScheduleNow(&eventloop.Task{Run: func(status eventloop.TaskStatus) {
//		fmt.Println("hello from the loop", status)
//	}})
//	loop.Stop()
//	loop.Join()
package eventloop
