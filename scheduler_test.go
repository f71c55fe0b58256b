package eventloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunAllRunsOnlyDueTasks(t *testing.T) {
	s := newScheduler()

	var ran []int
	mk := func(id int) *Task {
		return &Task{Run: func(TaskStatus) { ran = append(ran, id) }}
	}
	s.scheduleAt(mk(1), 100)
	s.scheduleAt(mk(2), 200)
	s.scheduleAt(mk(3), 300)

	s.runAll(200)
	require.Equal(t, []int{1, 2}, ran)

	next, ok := s.hasPending()
	require.True(t, ok)
	require.EqualValues(t, 300, next)

	s.runAll(300)
	require.Equal(t, []int{1, 2, 3}, ran)

	_, ok = s.hasPending()
	require.False(t, ok)
}

func TestSchedulerCancelAllNotifiesEveryPendingTask(t *testing.T) {
	s := newScheduler()

	var statuses []TaskStatus
	for i := 0; i < 5; i++ {
		s.scheduleAt(&Task{Run: func(status TaskStatus) {
			statuses = append(statuses, status)
		}}, int64(i))
	}

	s.cancelAll()
	require.Len(t, statuses, 5)
	for _, status := range statuses {
		require.Equal(t, StatusCanceled, status)
	}

	_, ok := s.hasPending()
	require.False(t, ok)
}
