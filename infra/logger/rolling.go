// Package logger provides the asynchronous rolling file sink behind slog.
// Producers enqueue finished lines; a single background goroutine appends
// them to the current log file and rotates it on day change or when the
// line quota for one file is reached.
package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/pkg/blockdeque"
)

const (
	// DefaultMaxLines is how many lines one file holds before rolling to
	// a numbered sibling.
	DefaultMaxLines = 50_000

	// DefaultQueueSize bounds the producer-side queue. Producers block
	// when the drain goroutine falls behind.
	DefaultQueueSize = 1024
)

// Rolling is an append-only log sink. Write never touches the filesystem;
// it hands the line to the drain goroutine through a bounded queue.
type Rolling struct {
	dir      string
	suffix   string
	maxLines int

	q    *blockdeque.Deque[[]byte]
	done chan struct{}

	closeOnce sync.Once

	// drain goroutine state, untouched by producers
	f     *os.File
	w     *bufio.Writer
	day   string
	part  int
	lines int

	now func() time.Time // test hook
}

// Options configures a Rolling sink. Zero values fall back to defaults.
type Options struct {
	Dir       string
	Suffix    string
	QueueSize int
	MaxLines  int
}

// New creates the log directory if needed, opens today's file and starts
// the drain goroutine.
func New(opts Options) (*Rolling, error) {
	if opts.Dir == "" {
		opts.Dir = "./log"
	}
	if opts.Suffix == "" {
		opts.Suffix = ".log"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create dir: %w", err)
	}

	r := &Rolling{
		dir:      opts.Dir,
		suffix:   opts.Suffix,
		maxLines: opts.MaxLines,
		q:        blockdeque.New[[]byte](opts.QueueSize),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	if err := r.openFile(r.dayString(r.now()), 0); err != nil {
		return nil, err
	}
	go r.drain()
	return r, nil
}

// Write enqueues one line. Each call must carry exactly one record ending
// in '\n', which is what slog's handlers produce. The byte slice is copied;
// the caller may reuse it.
func (r *Rolling) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)
	if !r.q.PushBack(line) {
		return 0, fmt.Errorf("logger: sink closed")
	}
	return len(p), nil
}

// Close stops accepting lines, waits for the queue to drain and syncs the
// current file.
func (r *Rolling) Close() error {
	r.closeOnce.Do(func() {
		r.q.Close()
	})
	<-r.done
	return nil
}

func (r *Rolling) drain() {
	defer close(r.done)
	for {
		line, ok := r.q.PopFront()
		if !ok {
			break
		}
		r.append(line)
		// Flush only when caught up so bursts stay buffered.
		if r.q.Len() == 0 {
			r.w.Flush()
		}
	}
	r.w.Flush()
	r.f.Sync()
	r.f.Close()
}

func (r *Rolling) append(line []byte) {
	day := r.dayString(r.now())
	switch {
	case day != r.day:
		r.roll(day, 0)
	case r.lines >= r.maxLines:
		r.roll(day, r.part+1)
	}
	r.w.Write(line)
	r.lines++
}

// roll switches to the next file. The old descriptor stays open until the
// new one exists, so a failed rotation keeps appending to the old file and
// the next roll retries.
func (r *Rolling) roll(day string, part int) {
	r.w.Flush()
	old := r.f
	if err := r.openFile(day, part); err != nil {
		fmt.Fprintf(os.Stderr, "logger: rotate failed: %v\n", err)
		return
	}
	old.Close()
}

func (r *Rolling) openFile(day string, part int) error {
	name := day + r.suffix
	if part > 0 {
		name = fmt.Sprintf("%s-%d%s", day, part, r.suffix)
	}
	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open %s: %w", name, err)
	}
	r.f = f
	r.w = bufio.NewWriter(f)
	r.day = day
	r.part = part
	r.lines = 0
	return nil
}

func (r *Rolling) dayString(t time.Time) string {
	return t.Format("2006_01_02")
}
