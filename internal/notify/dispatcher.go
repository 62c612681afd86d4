package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxAttempts bounds delivery retries. Entries that exhaust it are dropped
// with an error log.
const MaxAttempts = 20

// Dispatcher persists notifications and delivers them in the background.
type Dispatcher struct {
	outbox    *Outbox
	transport Transport
	logger    *slog.Logger
	retry     time.Duration
	now       func() time.Time

	wake     chan struct{}
	flushMu  sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(outbox *Outbox, transport Transport, logger *slog.Logger, retry time.Duration) *Dispatcher {
	if retry <= 0 {
		retry = 30 * time.Second
	}
	return &Dispatcher{
		outbox:    outbox,
		transport: transport,
		logger:    logger,
		retry:     retry,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue implements Notifier. It stores n and returns without waiting for
// delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	if _, err := d.outbox.Put(ctx, n); err != nil {
		return err
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.retry)
		defer ticker.Stop()

		d.flushAndLog(ctx)
		for {
			select {
			case <-d.wake:
				d.flushAndLog(ctx)
			case <-ticker.C:
				d.flushAndLog(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the worker and waits for an in-flight flush to finish.
// Undelivered notifications stay in the outbox.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel == nil {
			return
		}
		d.cancel()
		<-d.done
	})
}

func (d *Dispatcher) flushAndLog(ctx context.Context) {
	delivered, failed, err := d.Flush(ctx)
	if err != nil {
		d.logger.Warn("notification flush failed", "error", err)
		return
	}
	if delivered > 0 || failed > 0 {
		d.logger.Debug("notification flush", "delivered", delivered, "failed", failed)
	}
}

// Flush attempts every pending notification once, oldest first.
func (d *Dispatcher) Flush(ctx context.Context) (delivered, failed int, err error) {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	entries, err := d.outbox.Pending(ctx, 0)
	if err != nil {
		return 0, 0, err
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return delivered, failed, nil
		}

		n := e.Notification
		if sendErr := d.transport.Send(ctx, n); sendErr != nil {
			failed++
			n.Attempts++
			n.LastError = sendErr.Error()

			if n.Attempts >= MaxAttempts {
				d.logger.Error("dropping notification after repeated failures",
					"notification_id", n.ID, "kind", n.Kind, "attempts", n.Attempts, "error", sendErr)
				if err := d.outbox.Delete(e.Key); err != nil {
					return delivered, failed, err
				}
				continue
			}
			if err := d.outbox.Replace(e.Key, n); err != nil {
				return delivered, failed, err
			}
			continue
		}

		if err := d.outbox.Delete(e.Key); err != nil {
			return delivered, failed, err
		}
		delivered++
	}
	return delivered, failed, nil
}
