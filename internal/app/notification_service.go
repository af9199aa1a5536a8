package app

import (
	"context"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/clock"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

type NotificationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	HasLiveForLoan(ctx context.Context, loanID string) (bool, error)
	Insert(ctx context.Context, n domain.Notification) error
	StealExpired(ctx context.Context, workerID string, now time.Time, lease time.Duration, maxRetries int) (int, error)
	ClaimFresh(ctx context.Context, workerID string, now time.Time, maxRows, maxRetries int) (int, error)
	FetchOwned(ctx context.Context, workerID string, limit int) ([]domain.Notification, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	Release(ctx context.Context, id, workerID, lastError string, at time.Time) error
	InsertHistory(ctx context.Context, h domain.NotificationHistory) error
	Delete(ctx context.Context, id string) error
}

// NotificationService is the outbox plus its lease protocol: rows go in
// through Enqueue, workers pull them out through ClaimBatch/FetchOwned,
// and every row leaves through exactly one terminal archive.
type NotificationService struct {
	repo  NotificationRepository
	clock clock.Clock
}

func NewNotificationService(repo NotificationRepository, clk clock.Clock) *NotificationService {
	return &NotificationService{
		repo:  repo,
		clock: clk,
	}
}

// Enqueue records a delivery obligation unless a live one already
// references the same loan. Returns false when the guard suppressed the
// insert. Runs in the caller's transaction when one is bound to ctx, so
// business changes and their notifications commit together.
func (s *NotificationService) Enqueue(ctx context.Context, n domain.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}

	created := false
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.HasLiveForLoan(txCtx, n.LoanID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := s.repo.Insert(txCtx, n); err != nil {
			if err == domain.ErrNotificationExists {
				// Concurrent enqueue won; the obligation is recorded.
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// ClaimBatch leases work to workerID in two phases, each a single
// conditional statement: first steal rows whose lease expired before
// now, then claim up to maxRows unleased rows. Both phases bump
// retry_count, so a row abandoned by a crashed worker burns a retry on
// recovery. Returns stolen + freshly claimed.
func (s *NotificationService) ClaimBatch(ctx context.Context, workerID string, lease time.Duration, maxRows int) (int, error) {
	now := s.clock.Now()

	stolen, err := s.repo.StealExpired(ctx, workerID, now, lease, domain.MaxDeliveryRetries)
	if err != nil {
		return 0, err
	}

	claimed, err := s.repo.ClaimFresh(ctx, workerID, now, maxRows, domain.MaxDeliveryRetries)
	if err != nil {
		return stolen, err
	}

	return stolen + claimed, nil
}

// FetchOwned lists rows currently leased to workerID, oldest first.
func (s *NotificationService) FetchOwned(ctx context.Context, workerID string, limit int) ([]domain.Notification, error) {
	return s.repo.FetchOwned(ctx, workerID, limit)
}

// ReleaseWithError puts a row back in the unleased pool after a failed
// send, recording the cause. The retry count stays as the claim left it.
// Only the current lease holder can release; a worker whose lease was
// stolen mid-send gets ErrNotificationNotFound and must not touch the
// thief's claim.
func (s *NotificationService) ReleaseWithError(ctx context.Context, workerID, id, cause string) error {
	return s.repo.Release(ctx, id, workerID, cause, s.clock.Now())
}

// ArchiveSuccess moves a delivered row to history. Terminal.
func (s *NotificationService) ArchiveSuccess(ctx context.Context, id string) error {
	return s.archive(ctx, id, true, nil)
}

// ArchiveExhausted moves a row that ran out of retries to history with
// the final error. Terminal.
func (s *NotificationService) ArchiveExhausted(ctx context.Context, id string, cause string) error {
	return s.archive(ctx, id, false, &cause)
}

func (s *NotificationService) archive(ctx context.Context, id string, success bool, errorMsg *string) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if n == nil {
			// Already archived by someone else; nothing to do.
			return nil
		}

		msg := errorMsg
		if msg == nil && !success {
			msg = n.LastError
		}
		h := domain.NotificationHistory{
			ID:         newID(),
			LoanID:     n.LoanID,
			MemberID:   n.MemberID,
			Email:      n.Email,
			Subject:    n.Subject,
			Content:    n.Content,
			Success:    success,
			ErrorMsg:   msg,
			ArchivedAt: now,
		}
		if err := s.repo.InsertHistory(txCtx, h); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
}
