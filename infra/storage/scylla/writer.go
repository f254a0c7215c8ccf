package scylla

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/termchat/termchat/config"
	"github.com/termchat/termchat/internal/domain/model"
	"github.com/termchat/termchat/internal/pkg/mpsc"
)

// BatchInserter is the slice of MessageStore the writer needs.
type BatchInserter interface {
	InsertBatch(ctx context.Context, msgs []*model.Message) error
}

// Writer decouples message persistence from the request path. Handler
// goroutines enqueue and return immediately; a single drain goroutine groups
// queued messages into batches and retries transient failures with
// exponential backoff. A batch that exhausts its retries is dropped and
// logged, never blocking the queue behind it.
type Writer struct {
	q      *mpsc.Queue[*model.Message]
	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	store   BatchInserter
	cfg     config.WriterConfig
	log     *slog.Logger
	dropped atomic.Uint64

	sleep func(time.Duration) // test hook
}

func NewWriter(store BatchInserter, cfg config.WriterConfig, log *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 50 * time.Millisecond
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	w := &Writer{
		q:      mpsc.New[*model.Message](),
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		store:  store,
		cfg:    cfg,
		log:    log.With(slog.String("component", "msg_writer")),
		sleep:  time.Sleep,
	}
	go w.run()
	return w
}

// Enqueue hands one message to the drain goroutine. Never blocks.
func (w *Writer) Enqueue(m *model.Message) {
	w.q.Enqueue(m)
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Stop flushes whatever is queued and waits for the drain goroutine.
func (w *Writer) Stop() {
	close(w.stop)
	<-w.done
}

// Dropped returns how many messages were abandoned after retry exhaustion.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *Writer) run() {
	defer close(w.done)
	buf := make([]*model.Message, 0, w.cfg.BatchSize)
	for {
		select {
		case <-w.notify:
			w.drainAll(buf)
		case <-w.stop:
			w.drainAll(buf)
			return
		}
	}
}

func (w *Writer) drainAll(buf []*model.Message) {
	for {
		batch := w.q.DequeueBulk(buf[:0], w.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
	}
}

// flush writes one batch, giving it the initial attempt plus MaxRetries
// retries before dropping it.
func (w *Writer) flush(batch []*model.Message) {
	delay := w.cfg.RetryBase
	for attempt := 1; ; attempt++ {
		err := w.store.InsertBatch(context.Background(), batch)
		if err == nil {
			return
		}
		if attempt > w.cfg.MaxRetries {
			w.dropped.Add(uint64(len(batch)))
			w.log.Error("dropping batch after retry exhaustion",
				slog.Int("messages", len(batch)),
				slog.Int("attempts", attempt),
				slog.Any("error", err))
			return
		}
		w.log.Warn("batch insert failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err))
		w.sleep(delay)
		delay *= 2
		if delay > w.cfg.RetryCap {
			delay = w.cfg.RetryCap
		}
	}
}
