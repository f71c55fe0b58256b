//go:build linux

package multiplex

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by any operation performed after Close.
var ErrClosed = errors.New("multiplex: epoll instance closed")

// Epoll is the Linux realization of Multiplexer. Unlike a single combined
// epoll_ctl mask per fd, it tracks each direction's registration state
// independently so that a failed second-direction Add can be rolled back
// without disturbing a successfully-registered first direction — this
// mirrors the original kqueue backend's per-filter add/delete semantics
// even though epoll's wire protocol groups both directions into one
// interest mask per fd.
type Epoll struct {
	mu   sync.Mutex
	epfd int
	fds  map[int]Direction // currently registered directions, keyed by fd
}

func (e *Epoll) Init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	e.epfd = epfd
	e.fds = make(map[int]Direction)
	return nil
}

func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fds == nil {
		return ErrClosed
	}
	fd := e.epfd
	e.fds = nil
	return unix.Close(fd)
}

func (e *Epoll) Add(fd int, dir Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fds == nil {
		return ErrClosed
	}
	existing, present := e.fds[fd]
	if existing&dir != 0 {
		return unix.EEXIST
	}
	want := existing | dir
	ev := &unix.EpollEvent{Events: directionToEpoll(want), Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if present {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(e.epfd, op, fd, ev); err != nil {
		return err
	}
	e.fds[fd] = want
	return nil
}

func (e *Epoll) Remove(fd int, dir Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fds == nil {
		return ErrClosed
	}
	existing, present := e.fds[fd]
	if !present {
		return nil
	}
	remaining := existing &^ dir
	if remaining == 0 {
		if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			return err
		}
		delete(e.fds, fd)
		return nil
	}
	ev := &unix.EpollEvent{Events: directionToEpoll(remaining), Fd: int32(fd)}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return err
	}
	e.fds[fd] = remaining
	return nil
}

func (e *Epoll) Wait(dst []Event, timeoutMs int) ([]Event, error) {
	buf := make([]unix.EpollEvent, cap(dst))
	if len(buf) == 0 {
		buf = make([]unix.EpollEvent, 1)
	}
	n, err := unix.EpollWait(e.epfd, buf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return dst[:0], err
	}
	out := dst[:0]
	for i := 0; i < n; i++ {
		raw := buf[i].Events
		ev := Event{
			FD:       int(buf[i].Fd),
			Readable: raw&unix.EPOLLIN != 0,
			Writable: raw&unix.EPOLLOUT != 0,
			Error:    raw&unix.EPOLLERR != 0,
			HangUp:   raw&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
		}
		if ev.Readable {
			ev.Available = availableBytes(int(buf[i].Fd)) > 0
		}
		out = append(out, ev)
	}
	return out, nil
}

// directionToEpoll builds an edge-triggered interest mask: a callback fires
// once per readiness change, not on every wait while data stays unread.
func directionToEpoll(dir Direction) uint32 {
	flags := uint32(unix.EPOLLET)
	if dir&Readable != 0 {
		flags |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if dir&Writable != 0 {
		flags |= unix.EPOLLOUT
	}
	return flags
}

// availableBytes issues an FIONREAD ioctl, matching the kqueue backend's use
// of kevent's "data" field (bytes available to read) to gate whether a
// readable notification should be reported as EventReadable.
func availableBytes(fd int) int {
	n, err := unix.IoctlGetInt(fd, unix.FIONREAD)
	if err != nil {
		// Not all fd types support FIONREAD (e.g. some pipes under certain
		// kernels); treat as "unknown, assume available" so a real EPOLLIN
		// is never silently swallowed.
		return 1
	}
	return n
}
