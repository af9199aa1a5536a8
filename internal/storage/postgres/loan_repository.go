package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoanRepository struct {
	q querier
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{q: querier{pool: pool}}
}

func (r *LoanRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *LoanRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	const query = `
SELECT id, code, name, email, status, max_loan_limit, created_at
FROM members
WHERE id = $1`

	var m domain.Member
	err := r.q.queryRow(ctx, query, memberID).
		Scan(&m.ID, &m.Code, &m.Name, &m.Email, &m.Status, &m.MaxLoanLimit, &m.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Member{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *LoanRepository) GetMemberByCode(ctx context.Context, code string) (domain.Member, error) {
	const query = `
SELECT id, code, name, email, status, max_loan_limit, created_at
FROM members
WHERE code = $1`

	var m domain.Member
	err := r.q.queryRow(ctx, query, code).
		Scan(&m.ID, &m.Code, &m.Name, &m.Email, &m.Status, &m.MaxLoanLimit, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, fmt.Errorf("get member by code: %w", err)
	}
	return m, nil
}

func (r *LoanRepository) CountActiveLoans(ctx context.Context, memberID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM loans
WHERE member_id = $1 AND status IN ('borrowed', 'overdue')`

	var count int
	if err := r.q.queryRow(ctx, query, memberID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return count, nil
}

func (r *LoanRepository) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	const query = `
SELECT id, title, author, available_copies, created_at
FROM books
WHERE id = $1`

	var b domain.Book
	err := r.q.queryRow(ctx, query, bookID).
		Scan(&b.ID, &b.Title, &b.Author, &b.AvailableCopies, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Book{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Book{}, domain.ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// TryDecrementCopies takes one copy off the shelf. The predicate re-checks
// available_copies > 0 at write time; zero rows affected means another
// borrower got the last copy first.
func (r *LoanRepository) TryDecrementCopies(ctx context.Context, bookID string) (bool, error) {
	const stmt = `
UPDATE books
SET available_copies = available_copies - 1
WHERE id = $1 AND available_copies > 0`

	tag, err := r.q.exec(ctx, stmt, bookID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("decrement copies: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LoanRepository) IncrementCopies(ctx context.Context, bookID string) error {
	const stmt = `
UPDATE books
SET available_copies = available_copies + 1
WHERE id = $1`

	tag, err := r.q.exec(ctx, stmt, bookID)
	if err != nil {
		return fmt.Errorf("increment copies: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, loan domain.Loan) error {
	const stmt = `
INSERT INTO loans (id, book_id, member_id, borrowed_at, due_at, status)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q.exec(ctx, stmt,
		loan.ID,
		loan.BookID,
		loan.MemberID,
		loan.BorrowedAt,
		loan.DueAt,
		loan.Status,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error) {
	const query = `
SELECT id, book_id, member_id, borrowed_at, due_at, returned_at, status
FROM loans
WHERE id = $1
FOR UPDATE`

	var l domain.Loan
	err := r.q.queryRow(ctx, query, loanID).
		Scan(&l.ID, &l.BookID, &l.MemberID, &l.BorrowedAt, &l.DueAt, &l.ReturnedAt, &l.Status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Loan{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Loan{}, domain.ErrLoanNotFound
		}
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

// MarkReturned closes the loan exactly once; the predicate refuses rows
// already returned, so a double return affects zero rows.
func (r *LoanRepository) MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) (bool, error) {
	const stmt = `
UPDATE loans
SET returned_at = $2, status = 'returned'
WHERE id = $1 AND returned_at IS NULL`

	tag, err := r.q.exec(ctx, stmt, loanID, returnedAt)
	if err != nil {
		return false, fmt.Errorf("mark returned: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FulfillNextReservation flips the oldest pending reservation for the
// book to fulfilled and returns it, or nil when the waitlist is empty.
// The SKIP LOCKED subselect keeps two concurrent returns of the same
// title from fulfilling the same reservation while preserving FIFO order.
func (r *LoanRepository) FulfillNextReservation(ctx context.Context, bookID string) (*domain.Reservation, error) {
	const stmt = `
UPDATE reservations
SET status = 'fulfilled'
WHERE id = (
	SELECT id FROM reservations
	WHERE book_id = $1 AND status = 'pending'
	ORDER BY requested_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, book_id, member_id, requested_at, status`

	var res domain.Reservation
	err := r.q.queryRow(ctx, stmt, bookID).
		Scan(&res.ID, &res.BookID, &res.MemberID, &res.RequestedAt, &res.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fulfill next reservation: %w", err)
	}
	return &res, nil
}

func (r *LoanRepository) FindPendingReservation(ctx context.Context, bookID, memberID string) (*domain.Reservation, error) {
	const query = `
SELECT id, book_id, member_id, requested_at, status
FROM reservations
WHERE book_id = $1 AND member_id = $2 AND status = 'pending'`

	var res domain.Reservation
	err := r.q.queryRow(ctx, query, bookID, memberID).
		Scan(&res.ID, &res.BookID, &res.MemberID, &res.RequestedAt, &res.Status)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending reservation: %w", err)
	}
	return &res, nil
}

func (r *LoanRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, book_id, member_id, requested_at, status)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.exec(ctx, stmt,
		res.ID,
		res.BookID,
		res.MemberID,
		res.RequestedAt,
		res.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReservation
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}
