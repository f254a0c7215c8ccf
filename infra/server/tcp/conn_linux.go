package tcp

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
	"github.com/termchat/termchat/internal/pkg/mpsc"
)

// Conn is one accepted connection. The oneshot epoll registration is the
// mutual exclusion: the kernel delivers at most one event until the fd is
// re-armed, so process never runs concurrently with itself. Pushes from
// other goroutines only touch the outbound queue and the arming state.
type Conn struct {
	fd     int
	id     string
	remote string
	srv    *Server

	rb *bytebuf.Buffer
	wb *bytebuf.Buffer

	// outq carries frames pushed by other users' tasks, already
	// length-prefixed at enqueue time. Only the running task dequeues.
	outq *mpsc.Queue[[]byte]

	// file is the remainder of a zero-copy body staged by a FileResponder.
	file []byte

	userID atomic.Uint64

	mu      sync.Mutex
	running bool
	closed  bool

	proto   Protocol
	handler Handler

	log *slog.Logger
}

func newConn(fd int, remote string, srv *Server) *Conn {
	id := uuid.NewString()
	return &Conn{
		fd:     fd,
		id:     id,
		remote: remote,
		srv:    srv,
		rb:     bytebuf.New(0),
		wb:     bytebuf.New(0),
		outq:   mpsc.New[[]byte](),
		log:    srv.log.With(slog.String("conn", id), slog.String("remote", remote)),
	}
}

// ID implements service.Session.
func (c *Conn) ID() string { return c.id }

// UserID implements service.Session. Zero until Bind.
func (c *Conn) UserID() uint64 { return c.userID.Load() }

// Bind implements service.Session.
func (c *Conn) Bind(userID uint64) { c.userID.Store(userID) }

// Push implements service.Session. The frame is enqueued and, when no task
// is running, the fd is re-armed for writing; a running task picks the
// frame up itself before re-arming, so the wakeup is never lost.
func (c *Conn) Push(frame []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.outq.Enqueue(frame)
	arm := !c.running
	c.mu.Unlock()
	if arm {
		if err := c.srv.reactor.Mod(c.fd, c.srv.connEvents|unix.EPOLLIN|unix.EPOLLOUT); err != nil {
			c.log.Debug("push re-arm", slog.Any("error", err))
			return false
		}
	}
	return true
}

// process is the per-event task, executed on a worker goroutine.
func (c *Conn) process(events uint32) {
	keep := true
	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		keep = false
	}
	if keep && events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		keep = c.readAndHandle()
	}
	if keep {
		keep = c.flush()
	}
	c.finish(keep)
}

// readAndHandle drains the socket, then lets the protocol handler consume
// the buffer. Draining until EAGAIN is required in edge-triggered mode and
// harmless in level-triggered.
func (c *Conn) readAndHandle() bool {
	peerClosed := false
	for {
		n, err := c.rb.ReadFD(c.fd)
		if err == unix.EAGAIN {
			break
		}
		if err != nil {
			c.log.Debug("read", slog.Any("error", err))
			return false
		}
		if n == 0 {
			peerClosed = true
			break
		}
	}

	if c.handler == nil && !c.detect() {
		return !peerClosed
	}
	if c.handler != nil && c.rb.Readable() > 0 {
		if !c.handler.Process(c.rb, c.wb) {
			return false
		}
	}
	return !peerClosed
}

// detect fixes the protocol from the first four bytes and builds the
// handler. Returns false while fewer than four bytes have arrived.
func (c *Conn) detect() bool {
	c.proto = DetectProtocol(c.rb.Peek())
	if c.proto == ProtocolUnknown {
		return false
	}
	switch c.proto {
	case ProtocolHTTP:
		c.handler = c.srv.factories.HTTP(c)
	default:
		c.handler = c.srv.factories.Binary(c)
	}
	c.log.Info("protocol detected", slog.String("protocol", c.proto.String()))
	return true
}

// flush writes, in order: the staged response, the zero-copy file body,
// then queued pushes. Returns true with data still pending when the socket
// would block; finish re-arms for EPOLLOUT in that case.
func (c *Conn) flush() bool {
	for {
		if c.file == nil {
			if fr, ok := c.handler.(FileResponder); ok && fr.File() != nil {
				c.file = fr.File()
				if len(c.file) == 0 {
					fr.ReleaseFile()
					c.file = nil
				}
			}
		}

		switch {
		case c.wb.Readable() > 0 && len(c.file) > 0:
			// Headers and the mmap'd body go out in one vectored write.
			n, err := unix.Writev(c.fd, [][]byte{c.wb.Peek(), c.file})
			if err == unix.EAGAIN {
				return true
			}
			if err != nil {
				c.log.Debug("writev", slog.Any("error", err))
				return false
			}
			if n == 0 {
				return true
			}
			if head := c.wb.Readable(); n < head {
				c.wb.Retrieve(n)
			} else {
				c.wb.Retrieve(head)
				c.file = c.file[n-head:]
				if len(c.file) == 0 {
					c.handler.(FileResponder).ReleaseFile()
					c.file = nil
				}
			}

		case c.wb.Readable() > 0:
			n, err := c.wb.WriteFD(c.fd)
			if err == unix.EAGAIN {
				return true
			}
			if err != nil {
				c.log.Debug("write", slog.Any("error", err))
				return false
			}
			if n == 0 {
				return true
			}

		case len(c.file) > 0:
			n, err := unix.Write(c.fd, c.file)
			if err == unix.EAGAIN {
				return true
			}
			if err != nil {
				c.log.Debug("write file", slog.Any("error", err))
				return false
			}
			c.file = c.file[n:]
			if len(c.file) == 0 {
				c.handler.(FileResponder).ReleaseFile()
				c.file = nil
			}

		default:
			frame, ok := c.outq.Dequeue()
			if !ok {
				return true
			}
			c.wb.Append(frame)
		}
	}
}

// finish releases the running bit and re-arms the fd, or closes the
// connection. The pending check and the re-arm happen under the same lock
// as Push's enqueue, so a concurrent push either lands before the check or
// finds running already cleared and re-arms itself.
func (c *Conn) finish(keep bool) {
	if !keep {
		c.srv.closeConn(c)
		return
	}

	c.mu.Lock()
	pending := c.wb.Readable() > 0 || len(c.file) > 0 || !c.outq.Empty()
	if !pending && c.handler != nil && !c.handler.KeepAlive() {
		c.mu.Unlock()
		c.srv.closeConn(c)
		return
	}
	c.running = false
	ev := c.srv.connEvents | unix.EPOLLIN
	if pending {
		ev |= unix.EPOLLOUT
	}
	err := c.srv.reactor.Mod(c.fd, ev)
	c.mu.Unlock()
	if err != nil {
		c.srv.closeConn(c)
	}
}
