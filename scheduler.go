package eventloop

import "container/heap"

// scheduler is a time-ordered queue of Tasks, owned exclusively by the
// worker goroutine. It is a container/heap min-heap keyed by Task.runAt,
// following the same standard-library approach the teacher package uses
// for its own timer heap — no third-party priority queue is warranted for
// this.
type scheduler struct {
	h taskHeap
}

func newScheduler() *scheduler {
	return &scheduler{}
}

// scheduleNow enqueues t to run on the next RunAll call regardless of the
// current clock reading.
func (s *scheduler) scheduleNow(t *Task) {
	t.runAt = 0
	heap.Push(&s.h, t)
}

// scheduleAt enqueues t to become due at runAtNanos (monotonic nanoseconds).
func (s *scheduler) scheduleAt(t *Task, runAtNanos int64) {
	t.runAt = runAtNanos
	heap.Push(&s.h, t)
}

// runAll pops and runs every task whose runAt <= now, in earliest-first
// order. Tasks scheduled by a running task during this call are picked up
// if their runAt is also <= now, matching the original scheduler's
// run-to-fixed-point-for-this-tick behavior.
func (s *scheduler) runAll(now int64) {
	for s.h.Len() > 0 && s.h[0].runAt <= now {
		t := heap.Pop(&s.h).(*Task)
		t.next = nil
		safeRunTask(t, StatusRun)
	}
}

// hasPending reports whether any task remains scheduled, and if so its
// earliest runAt.
func (s *scheduler) hasPending() (nextRunAt int64, ok bool) {
	if s.h.Len() == 0 {
		return 0, false
	}
	return s.h[0].runAt, true
}

// cancelAll pops every remaining task and invokes it with StatusCanceled.
// Used by Destroy to guarantee every never-run task is notified exactly
// once.
func (s *scheduler) cancelAll() {
	for s.h.Len() > 0 {
		t := heap.Pop(&s.h).(*Task)
		t.next = nil
		safeRunTask(t, StatusCanceled)
	}
}

// taskHeap implements container/heap.Interface over *Task, ordered by runAt.
type taskHeap []*Task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].runAt < h[j].runAt }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
