package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OverdueRepository backs the daily sweep. Both operations are single
// set-based statements; concurrent sweeps simply split the rows.
type OverdueRepository struct {
	q querier
}

func NewOverdueRepository(pool *pgxpool.Pool) *OverdueRepository {
	return &OverdueRepository{q: querier{pool: pool}}
}

func (r *OverdueRepository) MarkOverdueLoans(ctx context.Context, now time.Time) (int, error) {
	const stmt = `
UPDATE loans
SET status = 'overdue'
WHERE returned_at IS NULL AND status = 'borrowed' AND due_at < $1`

	tag, err := r.q.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue loans: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// EnqueueOverdueReminders inserts one notification per overdue loan with
// no live outbox row. The NOT EXISTS guard and the insert are one
// statement, so two sweeps cannot double-enqueue.
func (r *OverdueRepository) EnqueueOverdueReminders(ctx context.Context, subject string, now time.Time) (int, error) {
	const stmt = `
INSERT INTO notifications (id, loan_id, member_id, email, subject, content, created_at)
SELECT
	gen_random_uuid(),
	l.id,
	m.id,
	m.email,
	$1,
	'Dear ' || m.name || ', your loan for ''' || b.title || ''' was due on ' ||
		to_char(l.due_at, 'YYYY-MM-DD') || '. Please return it as soon as possible.',
	$2
FROM loans l
JOIN members m ON m.id = l.member_id
JOIN books b ON b.id = l.book_id
WHERE l.status = 'overdue'
  AND l.returned_at IS NULL
  AND NOT EXISTS (
	SELECT 1 FROM notifications n WHERE n.loan_id = l.id
  )
ON CONFLICT (loan_id) DO NOTHING`

	tag, err := r.q.exec(ctx, stmt, subject, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue overdue reminders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
