package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/library-lending/services/api/internal/app"
	"github.com/cimillas/library-lending/services/api/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository struct {
	q querier
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{q: querier{pool: pool}}
}

func (r *CatalogRepository) CreateBook(ctx context.Context, book domain.Book) error {
	const stmt = `
INSERT INTO books (id, title, author, available_copies, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.exec(ctx, stmt, book.ID, book.Title, book.Author, book.AvailableCopies, book.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListBooks(ctx context.Context, q string, limit, offset int) ([]domain.Book, error) {
	const query = `
SELECT id, title, author, available_copies, created_at
FROM books
WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%')
ORDER BY title ASC
LIMIT $2 OFFSET $3`

	rows, err := r.q.query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.AvailableCopies, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) CreateMember(ctx context.Context, member domain.Member) error {
	const stmt = `
INSERT INTO members (id, code, name, email, status, max_loan_limit, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.exec(ctx, stmt,
		member.ID,
		member.Code,
		member.Name,
		member.Email,
		member.Status,
		member.MaxLoanLimit,
		member.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeAlreadyExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListMembers(ctx context.Context, q string, limit, offset int) ([]domain.Member, error) {
	const query = `
SELECT id, code, name, email, status, max_loan_limit, created_at
FROM members
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.q.query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Email, &m.Status, &m.MaxLoanLimit, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListLoans(ctx context.Context, q, status string, limit, offset int) ([]app.LoanView, error) {
	const query = `
SELECT l.id, b.title, m.code, m.name, l.borrowed_at, l.due_at, l.returned_at, l.status
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
WHERE ($1 = '' OR l.status = $1)
  AND ($2 = '' OR b.title ILIKE '%' || $2 || '%' OR m.name ILIKE '%' || $2 || '%' OR m.code ILIKE '%' || $2 || '%')
ORDER BY l.borrowed_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.q.query(ctx, query, status, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []app.LoanView
	for rows.Next() {
		var v app.LoanView
		if err := rows.Scan(&v.ID, &v.BookTitle, &v.MemberCode, &v.MemberName, &v.BorrowedAt, &v.DueAt, &v.ReturnedAt, &v.Status); err != nil {
			return nil, fmt.Errorf("scan loan view: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return out, nil
}
