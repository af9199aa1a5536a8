package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	q querier
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{q: querier{pool: pool}}
}

func (r *NotificationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *NotificationRepository) HasLiveForLoan(ctx context.Context, loanID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM notifications WHERE loan_id = $1)`

	var exists bool
	if err := r.q.queryRow(ctx, query, loanID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check live notification: %w", err)
	}
	return exists, nil
}

func (r *NotificationRepository) Insert(ctx context.Context, n domain.Notification) error {
	const stmt = `
INSERT INTO notifications (id, loan_id, member_id, email, subject, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.exec(ctx, stmt,
		n.ID,
		n.LoanID,
		n.MemberID,
		n.Email,
		n.Subject,
		n.Content,
		n.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNotificationExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// StealExpired reassigns every row whose lease ran out before now and
// that still has retries left. Plain conditional UPDATE: a row being
// stolen by two workers at once is decided by the row lock, and the
// loser's re-evaluated predicate sees a fresh lease and skips it.
func (r *NotificationRepository) StealExpired(ctx context.Context, workerID string, now time.Time, lease time.Duration, maxRetries int) (int, error) {
	const stmt = `
UPDATE notifications
SET process_id = $1, locked_at = $2, retry_count = retry_count + 1
WHERE process_id IS NOT NULL
  AND locked_at IS NOT NULL
  AND retry_count < $3
  AND locked_at + make_interval(secs => $4) < $2`

	tag, err := r.q.exec(ctx, stmt, workerID, now, maxRetries, lease.Seconds())
	if err != nil {
		return 0, fmt.Errorf("steal expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ClaimFresh leases up to maxRows unclaimed rows to workerID. The SKIP
// LOCKED subselect makes the claim a single atomic statement under which
// two workers can never take the same row.
func (r *NotificationRepository) ClaimFresh(ctx context.Context, workerID string, now time.Time, maxRows, maxRetries int) (int, error) {
	const stmt = `
UPDATE notifications
SET process_id = $1, locked_at = $2, retry_count = retry_count + 1
WHERE id IN (
	SELECT id FROM notifications
	WHERE process_id IS NULL AND retry_count < $3
	ORDER BY created_at ASC
	LIMIT $4
	FOR UPDATE SKIP LOCKED
)`

	tag, err := r.q.exec(ctx, stmt, workerID, now, maxRetries, maxRows)
	if err != nil {
		return 0, fmt.Errorf("claim fresh notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *NotificationRepository) FetchOwned(ctx context.Context, workerID string, limit int) ([]domain.Notification, error) {
	const query = `
SELECT id, loan_id, member_id, email, subject, content,
       process_id, locked_at, retry_count, last_error, last_attempt_at, created_at
FROM notifications
WHERE process_id = $1
ORDER BY created_at ASC
LIMIT $2`

	rows, err := r.q.query(ctx, query, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch owned notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.LoanID, &n.MemberID, &n.Email, &n.Subject, &n.Content,
			&n.ProcessID, &n.LockedAt, &n.RetryCount, &n.LastError, &n.LastAttemptAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
SELECT id, loan_id, member_id, email, subject, content,
       process_id, locked_at, retry_count, last_error, last_attempt_at, created_at
FROM notifications
WHERE id = $1`

	var n domain.Notification
	err := r.q.queryRow(ctx, query, id).Scan(
		&n.ID, &n.LoanID, &n.MemberID, &n.Email, &n.Subject, &n.Content,
		&n.ProcessID, &n.LockedAt, &n.RetryCount, &n.LastError, &n.LastAttemptAt, &n.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// Release clears the lease and records the failure, returning the row to
// the unleased pool for the next claim cycle. The predicate requires the
// caller to still hold the lease, so a worker whose claim was stolen
// after its lease lapsed cannot clear the thief's lease.
func (r *NotificationRepository) Release(ctx context.Context, id, workerID, lastError string, at time.Time) error {
	const stmt = `
UPDATE notifications
SET process_id = NULL, locked_at = NULL, last_error = $3, last_attempt_at = $4
WHERE id = $1 AND process_id = $2`

	tag, err := r.q.exec(ctx, stmt, id, workerID, lastError, at)
	if err != nil {
		return fmt.Errorf("release notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) InsertHistory(ctx context.Context, h domain.NotificationHistory) error {
	const stmt = `
INSERT INTO notification_history (id, loan_id, member_id, email, subject, content, success, error_msg, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.exec(ctx, stmt,
		h.ID,
		h.LoanID,
		h.MemberID,
		h.Email,
		h.Subject,
		h.Content,
		h.Success,
		h.ErrorMsg,
		h.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification history: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM notifications WHERE id = $1`

	if _, err := r.q.exec(ctx, stmt, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
