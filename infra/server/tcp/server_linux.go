package tcp

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/termchat/termchat/config"
	"github.com/termchat/termchat/internal/pkg/timerheap"
	"github.com/termchat/termchat/internal/pkg/workerpool"
	"github.com/termchat/termchat/internal/service"
)

const (
	// maxFD caps accepted descriptors; beyond it the server sheds load.
	maxFD         = 65536
	listenBacklog = 4096

	busyReply = "Server busy!"
)

// DisconnectFunc is notified when an authenticated connection closes.
type DisconnectFunc func(sess service.Session)

// Server owns the listener, the epoll loop, the idle timer and the worker
// pool. One goroutine runs the loop; ready connections execute as pool
// tasks.
type Server struct {
	cfg       config.ServerConfig
	factories Factories
	onClose   DisconnectFunc
	log       *slog.Logger

	reactor *Reactor
	pool    *workerpool.Pool

	listenFD int
	wakeFD   int
	port     int

	listenEvents uint32
	connEvents   uint32

	timerMu  sync.Mutex
	timer    *timerheap.Timer
	expiring []*Conn // filled by timer callbacks under timerMu

	connsMu sync.Mutex
	conns   map[int]*Conn

	stopped atomic.Bool
	done    chan struct{}
}

func NewServer(cfg config.ServerConfig, factories Factories, onClose DisconnectFunc, log *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		factories: factories,
		onClose:   onClose,
		log:       log.With(slog.String("component", "tcp_server")),
		timer:     timerheap.New(),
		conns:     make(map[int]*Conn),
		done:      make(chan struct{}),
	}
	s.initTriggerMode(cfg.TriggerMode)
	return s
}

// initTriggerMode maps mode 0-3 onto edge-trigger bits: bit 0 switches the
// connections, bit 1 the listener.
func (s *Server) initTriggerMode(mode int) {
	s.listenEvents = unix.EPOLLIN
	s.connEvents = unix.EPOLLONESHOT | unix.EPOLLRDHUP
	if mode&1 != 0 {
		s.connEvents |= unix.EPOLLET
	}
	if mode&2 != 0 {
		s.listenEvents |= unix.EPOLLET
	}
}

// Start binds the listener and launches the event loop.
func (s *Server) Start() error {
	r, err := NewReactor()
	if err != nil {
		return err
	}
	s.reactor = r
	s.pool = workerpool.New(s.cfg.Workers, s.cfg.WorkerQueue)

	if err := s.listen(); err != nil {
		r.Close()
		return err
	}

	s.wakeFD, err = unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("eventfd: %w", err)
	}
	if err := s.reactor.Add(s.wakeFD, unix.EPOLLIN); err != nil {
		return err
	}
	if err := s.reactor.Add(s.listenFD, s.listenEvents); err != nil {
		return err
	}

	go s.loop()
	s.log.Info("listening",
		slog.Int("port", s.port),
		slog.Int("trigger_mode", s.cfg.TriggerMode),
		slog.Int("workers", s.cfg.Workers))
	return nil
}

func (s *Server) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("setsockopt: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: s.cfg.Port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bind :%d: %w", s.cfg.Port, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listen: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			s.port = in4.Port
		}
	}
	s.listenFD = fd
	return nil
}

// Port reports the bound port, useful when configured with port 0.
func (s *Server) Port() int { return s.port }

// Stop wakes the loop, waits for it, then tears everything down.
func (s *Server) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	var one = [8]byte{7: 1}
	unix.Write(s.wakeFD, one[:])
	<-s.done

	unix.Close(s.listenFD)
	s.pool.Stop()

	s.connsMu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()
	for _, c := range conns {
		s.closeConn(c)
	}

	unix.Close(s.wakeFD)
	s.reactor.Close()
	s.log.Info("stopped")
}

func (s *Server) loop() {
	defer close(s.done)
	for !s.stopped.Load() {
		// Expiry callbacks only collect; closing happens outside the
		// lock because closeConn cancels timers itself.
		s.timerMu.Lock()
		timeout := s.timer.NextDelayMS()
		expired := s.expiring
		s.expiring = nil
		s.timerMu.Unlock()
		for _, c := range expired {
			c.log.Info("idle timeout")
			s.closeConn(c)
		}

		events, err := s.reactor.Wait(timeout)
		if err != nil {
			s.log.Error("epoll wait", slog.Any("error", err))
			return
		}
		for _, ev := range events {
			switch int(ev.Fd) {
			case s.listenFD:
				s.acceptLoop()
			case s.wakeFD:
				var buf [8]byte
				unix.Read(s.wakeFD, buf[:])
			default:
				s.dispatch(int(ev.Fd), ev.Events)
			}
		}
	}
}

// acceptLoop accepts until the backlog is drained, as required in
// edge-triggered mode.
func (s *Server) acceptLoop() {
	for {
		nfd, sa, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			return
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.log.Error("accept", slog.Any("error", err))
			return
		}
		if nfd >= maxFD {
			unix.Write(nfd, []byte(busyReply))
			unix.Close(nfd)
			s.log.Warn("fd limit reached, shedding connection")
			continue
		}

		c := newConn(nfd, remoteString(sa), s)
		s.connsMu.Lock()
		s.conns[nfd] = c
		total := len(s.conns)
		s.connsMu.Unlock()

		s.timerMu.Lock()
		s.timer.Add(nfd, s.cfg.IdleTimeout, func() { s.expiring = append(s.expiring, c) })
		s.timerMu.Unlock()

		if err := s.reactor.Add(nfd, s.connEvents|unix.EPOLLIN); err != nil {
			s.log.Error("register conn", slog.Any("error", err))
			s.closeConn(c)
			continue
		}
		c.log.Info("connection accepted", slog.Int("open", total))
	}
}

func (s *Server) dispatch(fd int, events uint32) {
	s.connsMu.Lock()
	c := s.conns[fd]
	s.connsMu.Unlock()
	if c == nil {
		return
	}

	// Any activity pushes the idle deadline out.
	s.timerMu.Lock()
	s.timer.Adjust(fd, s.cfg.IdleTimeout)
	s.timerMu.Unlock()

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if !s.pool.Submit(func() { c.process(events) }) {
		s.closeConn(c)
	}
}

// closeConn is idempotent; the first caller wins and releases everything.
func (s *Server) closeConn(c *Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	s.connsMu.Lock()
	delete(s.conns, c.fd)
	s.connsMu.Unlock()

	s.timerMu.Lock()
	s.timer.Cancel(c.fd)
	s.timerMu.Unlock()

	s.reactor.Del(c.fd)
	unix.Close(c.fd)

	if fr, ok := c.handler.(FileResponder); ok {
		fr.ReleaseFile()
	}
	if s.onClose != nil && c.UserID() != 0 {
		s.onClose(c)
	}
	c.log.Info("connection closed", slog.Uint64("user_id", c.UserID()))
}

func remoteString(sa unix.Sockaddr) string {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return fmt.Sprintf("%d.%d.%d.%d:%d", in4.Addr[0], in4.Addr[1], in4.Addr[2], in4.Addr[3], in4.Port)
	}
	return "unknown"
}
