package app

import (
	"context"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/clock"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

type CatalogRepository interface {
	CreateBook(ctx context.Context, book domain.Book) error
	ListBooks(ctx context.Context, q string, limit, offset int) ([]domain.Book, error)
	CreateMember(ctx context.Context, member domain.Member) error
	ListMembers(ctx context.Context, q string, limit, offset int) ([]domain.Member, error)
	ListLoans(ctx context.Context, q, status string, limit, offset int) ([]LoanView, error)
}

// LoanView is the admin read model: a loan joined with its book title
// and member identity.
type LoanView struct {
	ID         string
	BookTitle  string
	MemberCode string
	MemberName string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Status     domain.LoanStatus
}

type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateBookInput struct {
	Title  string
	Author string
	Copies int
}

func (s *CatalogService) CreateBook(ctx context.Context, in CreateBookInput) (domain.Book, error) {
	if in.Title == "" {
		return domain.Book{}, domain.ErrTitleRequired
	}
	if in.Copies < 0 {
		return domain.Book{}, domain.ErrInvalidCopies
	}

	book := domain.Book{
		ID:              newID(),
		Title:           in.Title,
		Author:          in.Author,
		AvailableCopies: in.Copies,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

func (s *CatalogService) ListBooks(ctx context.Context, q string, limit, offset int) ([]domain.Book, error) {
	return s.repo.ListBooks(ctx, q, clampPage(limit), max(offset, 0))
}

type CreateMemberInput struct {
	Code         string
	Name         string
	Email        string
	MaxLoanLimit int
}

const defaultMaxLoanLimit = 5

func (s *CatalogService) CreateMember(ctx context.Context, in CreateMemberInput) (domain.Member, error) {
	if in.Name == "" {
		return domain.Member{}, domain.ErrNameRequired
	}
	if in.Email == "" {
		return domain.Member{}, domain.ErrEmailRequired
	}
	if in.MaxLoanLimit < 0 {
		return domain.Member{}, domain.ErrInvalidLoanLimit
	}
	limit := in.MaxLoanLimit
	if limit == 0 {
		limit = defaultMaxLoanLimit
	}

	member := domain.Member{
		ID:           newID(),
		Code:         in.Code,
		Name:         in.Name,
		Email:        in.Email,
		Status:       domain.MemberStatusActive,
		MaxLoanLimit: limit,
		CreatedAt:    s.clock.Now(),
	}
	if member.Code == "" {
		member.Code = member.ID[:8]
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		return domain.Member{}, err
	}
	return member, nil
}

func (s *CatalogService) ListMembers(ctx context.Context, q string, limit, offset int) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx, q, clampPage(limit), max(offset, 0))
}

func (s *CatalogService) ListLoans(ctx context.Context, q, status string, limit, offset int) ([]LoanView, error) {
	return s.repo.ListLoans(ctx, q, status, clampPage(limit), max(offset, 0))
}

const maxPageSize = 100

func clampPage(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
