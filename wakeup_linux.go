//go:build linux

package eventloop

import (
	"golang.org/x/sys/unix"

	"github.com/joeycumines/go-eventloop-runtime/internal/multiplex"
)

// wakeChannel is a one-directional byte pipe whose read end is registered
// with the multiplexer for the life of the loop. Any goroutine may write to
// stir the worker; the worker drains the pipe to empty on each wake. A
// failed write is silently ignored — the next consumer drain will still
// observe the mailbox's already-pending signal (see mailbox.go).
//
// A real pipe is used rather than an eventfd: the contract this channel
// must satisfy (drain-to-empty, payload content ignored) is pipe
// semantics, not an eventfd's saturating counter, and matches the original
// kqueue backend's aws_pipe_open-based wake channel.
type wakeChannel struct {
	readFD, writeFD int
	mux             multiplex.Multiplexer
}

func newWakeChannel(mux multiplex.Multiplexer) (*wakeChannel, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	w := &wakeChannel{readFD: fds[0], writeFD: fds[1], mux: mux}
	if err := mux.Add(w.readFD, multiplex.Readable); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	return w, nil
}

// signal writes a single byte to stir the worker out of its kernel wait.
func (w *wakeChannel) signal() {
	var b [1]byte
	_, _ = writeFD(w.writeFD, b[:])
}

// drain reads until EAGAIN, coalescing any burst of pending wakes into one
// mailbox-drain cycle.
func (w *wakeChannel) drain() {
	var buf [64]byte
	for {
		n, err := readFD(w.readFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *wakeChannel) close() {
	_ = w.mux.Remove(w.readFD, multiplex.Readable)
	_ = closeFD(w.readFD)
	_ = closeFD(w.writeFD)
}
