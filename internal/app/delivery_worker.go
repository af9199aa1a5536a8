package app

import (
	"context"
	"log"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/domain"
)

// Sender is the mail transport capability. Sends are slow, fallible, and
// not assumed idempotent on the remote end.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeliveryWorker drains the outbox: claim a batch under this worker's id,
// send each owned row, and reconcile. Multiple workers run the same loop
// concurrently; the lease protocol keeps them off each other's rows. The
// send itself happens strictly outside any transaction so a slow mail
// server never holds a row lock.
type DeliveryWorker struct {
	workerID string
	outbox   *NotificationService
	sender   Sender
	logger   *log.Logger
	lease    time.Duration
	maxRows  int
}

const (
	defaultLease   = 5 * time.Minute
	defaultMaxRows = 100
)

func NewDeliveryWorker(workerID string, outbox *NotificationService, sender Sender, logger *log.Logger, opts ...DeliveryWorkerOption) *DeliveryWorker {
	if logger == nil {
		logger = log.Default()
	}
	w := &DeliveryWorker{
		workerID: workerID,
		outbox:   outbox,
		sender:   sender,
		logger:   logger,
		lease:    defaultLease,
		maxRows:  defaultMaxRows,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type DeliveryWorkerOption func(*DeliveryWorker)

// WithLease overrides how long a claim stays exclusive before it can be stolen.
func WithLease(d time.Duration) DeliveryWorkerOption {
	return func(w *DeliveryWorker) {
		if d > 0 {
			w.lease = d
		}
	}
}

// WithMaxRows overrides the per-cycle claim size.
func WithMaxRows(n int) DeliveryWorkerOption {
	return func(w *DeliveryWorker) {
		if n > 0 {
			w.maxRows = n
		}
	}
}

// RunCycle performs one claim-send-reconcile pass and returns how many
// rows were sent successfully.
func (w *DeliveryWorker) RunCycle(ctx context.Context) (int, error) {
	claimed, err := w.outbox.ClaimBatch(ctx, w.workerID, w.lease, w.maxRows)
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		w.logger.Printf("worker %s claimed %d notification(s)", w.workerID, claimed)
	}

	owned, err := w.outbox.FetchOwned(ctx, w.workerID, w.maxRows)
	if err != nil {
		return 0, err
	}
	if len(owned) == 0 {
		return 0, nil
	}

	sent := 0
	for _, n := range owned {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := w.sender.Send(ctx, n.Email, n.Subject, n.Content); err != nil {
			w.reconcileFailure(ctx, n, err)
			continue
		}

		if err := w.outbox.ArchiveSuccess(ctx, n.ID); err != nil {
			w.logger.Printf("worker %s archive id=%s failed: %v", w.workerID, n.ID, err)
			continue
		}
		sent++
		w.logger.Printf("worker %s sent notification id=%s to %s", w.workerID, n.ID, n.Email)
	}
	return sent, nil
}

func (w *DeliveryWorker) reconcileFailure(ctx context.Context, n domain.Notification, sendErr error) {
	cause := sendErr.Error()

	// RetryCount was already incremented when this row was claimed.
	if n.RetryCount >= domain.MaxDeliveryRetries {
		if err := w.outbox.ArchiveExhausted(ctx, n.ID, cause); err != nil {
			w.logger.Printf("worker %s archive exhausted id=%s failed: %v", w.workerID, n.ID, err)
			return
		}
		w.logger.Printf("worker %s exhausted retries for id=%s to %s: %s", w.workerID, n.ID, n.Email, cause)
		return
	}

	if err := w.outbox.ReleaseWithError(ctx, w.workerID, n.ID, cause); err != nil {
		w.logger.Printf("worker %s release id=%s failed: %v", w.workerID, n.ID, err)
		return
	}
	w.logger.Printf("worker %s failed send id=%s to %s (will retry): %s", w.workerID, n.ID, n.Email, cause)
}

// Run cycles on a fixed interval until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunCycle(ctx); err != nil && ctx.Err() == nil {
				w.logger.Printf("worker %s delivery cycle failed: %v", w.workerID, err)
			}
		}
	}
}
