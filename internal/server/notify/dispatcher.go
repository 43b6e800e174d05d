package notify

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/usermanager/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Dispatcher queues messages and delivers them from a fixed set of workers.
// Dispatch never blocks the caller; a full queue drops the message.
type Dispatcher struct {
	sender  Sender
	logger  logging.Logger
	queue   chan Message
	workers int

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, l logging.Logger, queueSize, workers int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		sender:  sender,
		logger:  l.With("module", "notify"),
		queue:   make(chan Message, queueSize),
		workers: workers,
	}
}

// Dispatch enqueues msg for delivery. Failures are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn(ctx, "dispatcher closed, notification dropped", "subject", msg.Subject)
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.logger.Warn(ctx, "notification queue full, notification dropped", "subject", msg.Subject)
	}
}

// Run starts the workers and blocks until ctx is done. Messages still queued
// at that point are delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}

	<-ctx.Done()
	d.close()

	return g.Wait()
}

func (d *Dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for msg := range d.queue {
		sendCtx := ctx
		if ctx.Err() != nil {
			// draining after shutdown
			sendCtx = context.WithoutCancel(ctx)
		}
		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logger.Warn(ctx, "notification delivery failed", "subject", msg.Subject, "error", err)
		}
	}
}
