package tcp

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const maxEvents = 1024

// Reactor is a thin epoll wrapper. Only the event loop calls Wait; Add, Mod
// and Del are safe from any goroutine, the kernel serializes them.
type Reactor struct {
	epfd   int
	events []unix.EpollEvent
}

func NewReactor() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Reactor{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

func (r *Reactor) ctl(op, fd int, events uint32) error {
	ev := &unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, op, fd, ev); err != nil {
		return fmt.Errorf("epoll_ctl fd %d: %w", fd, err)
	}
	return nil
}

func (r *Reactor) Add(fd int, events uint32) error {
	return r.ctl(unix.EPOLL_CTL_ADD, fd, events)
}

// Mod re-arms a oneshot registration.
func (r *Reactor) Mod(fd int, events uint32) error {
	return r.ctl(unix.EPOLL_CTL_MOD, fd, events)
}

func (r *Reactor) Del(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait blocks for up to timeoutMS (-1 blocks indefinitely) and returns the
// ready events. The returned slice is reused across calls. A signal
// interruption returns an empty slice, not an error.
func (r *Reactor) Wait(timeoutMS int) ([]unix.EpollEvent, error) {
	n, err := unix.EpollWait(r.epfd, r.events, timeoutMS)
	if err == unix.EINTR {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}
	return r.events[:n], nil
}

func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
