package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/clock"
	"github.com/cimillas/library-lending/services/api/internal/domain"
)

type LoanRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetMemberByCode(ctx context.Context, code string) (domain.Member, error)
	CountActiveLoans(ctx context.Context, memberID string) (int, error)
	GetBook(ctx context.Context, bookID string) (domain.Book, error)
	TryDecrementCopies(ctx context.Context, bookID string) (bool, error)
	IncrementCopies(ctx context.Context, bookID string) error
	CreateLoan(ctx context.Context, loan domain.Loan) error
	GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error)
	MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) (bool, error)
	FulfillNextReservation(ctx context.Context, bookID string) (*domain.Reservation, error)
	FindPendingReservation(ctx context.Context, bookID, memberID string) (*domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
}

// Outbox is the loan side's view of the notification queue: enqueue a
// delivery obligation inside the caller's transaction.
type Outbox interface {
	Enqueue(ctx context.Context, n domain.Notification) (bool, error)
}

type LoanService struct {
	repo   LoanRepository
	outbox Outbox
	clock  clock.Clock
}

func NewLoanService(repo LoanRepository, outbox Outbox, clk clock.Clock) *LoanService {
	return &LoanService{
		repo:   repo,
		outbox: outbox,
		clock:  clk,
	}
}

type BorrowInput struct {
	BookID     string
	MemberID   string
	MemberCode string
	Days       int
}

// Borrow opens a loan when the member is active, under their loan limit,
// and a copy is on the shelf. The member is identified by id or, when
// MemberID is empty, resolved by their unique code inside the same
// transaction. The copy count decrement re-checks available_copies > 0 at
// write time, so two borrowers racing on the last copy cannot both win;
// the loser fails with ErrBookUnavailable and the transaction inserts
// nothing.
func (s *LoanService) Borrow(ctx context.Context, in BorrowInput) (domain.Loan, error) {
	now := s.clock.Now()
	days := in.Days
	if days < 1 {
		days = 1
	}

	var result domain.Loan

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		member, err := s.resolveMember(txCtx, in.MemberID, in.MemberCode)
		if err != nil {
			return err
		}
		if member.Status != domain.MemberStatusActive {
			return domain.ErrMemberIneligible
		}

		active, err := s.repo.CountActiveLoans(txCtx, member.ID)
		if err != nil {
			return err
		}
		if active >= member.MaxLoanLimit {
			return domain.ErrLoanLimitExceeded
		}

		book, err := s.repo.GetBook(txCtx, in.BookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			return domain.ErrBookUnavailable
		}

		ok, err := s.repo.TryDecrementCopies(txCtx, in.BookID)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race since the read above.
			return domain.ErrBookUnavailable
		}

		loan := domain.Loan{
			ID:         newID(),
			BookID:     in.BookID,
			MemberID:   member.ID,
			BorrowedAt: now,
			DueAt:      now.AddDate(0, 0, days),
			Status:     domain.LoanStatusBorrowed,
		}
		if err := s.repo.CreateLoan(txCtx, loan); err != nil {
			return err
		}

		result = loan
		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}
	return result, nil
}

// Return closes a loan and hands its copy to exactly one of the next
// pending reservation or the shelf. A second return of the same loan
// fails with ErrLoanAlreadyReturned rather than repeating the handoff.
func (s *LoanService) Return(ctx context.Context, loanID string) (domain.Loan, error) {
	now := s.clock.Now()
	var result domain.Loan

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.repo.GetLoanForUpdate(txCtx, loanID)
		if err != nil {
			return err
		}
		if loan.Status == domain.LoanStatusReturned || loan.ReturnedAt != nil {
			return domain.ErrLoanAlreadyReturned
		}

		ok, err := s.repo.MarkReturned(txCtx, loanID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrLoanAlreadyReturned
		}

		res, err := s.repo.FulfillNextReservation(txCtx, loan.BookID)
		if err != nil {
			return err
		}
		if res == nil {
			if err := s.repo.IncrementCopies(txCtx, loan.BookID); err != nil {
				return err
			}
		} else if err := s.notifyReservationReady(txCtx, loan, *res, now); err != nil {
			return err
		}

		loan.Status = domain.LoanStatusReturned
		loan.ReturnedAt = &now
		result = loan
		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}
	return result, nil
}

func (s *LoanService) resolveMember(ctx context.Context, memberID, code string) (domain.Member, error) {
	if memberID != "" {
		return s.repo.GetMember(ctx, memberID)
	}
	return s.repo.GetMemberByCode(ctx, code)
}

func (s *LoanService) notifyReservationReady(ctx context.Context, loan domain.Loan, res domain.Reservation, now time.Time) error {
	member, err := s.repo.GetMember(ctx, res.MemberID)
	if err != nil {
		return err
	}
	book, err := s.repo.GetBook(ctx, loan.BookID)
	if err != nil {
		return err
	}

	_, err = s.outbox.Enqueue(ctx, domain.Notification{
		ID:       newID(),
		LoanID:   loan.ID,
		MemberID: member.ID,
		Email:    member.Email,
		Subject:  "Reserved book available",
		Content: fmt.Sprintf(
			"Dear %s, the book '%s' you reserved is now being held for you. Please pick it up at the front desk.",
			member.Name, book.Title,
		),
		CreatedAt: now,
	})
	return err
}

type ReserveInput struct {
	BookID   string
	MemberID string
}

// Reserve places the member at the back of the book's waitlist. Only
// books with no copies on the shelf accept reservations; a member holds
// at most one pending reservation per book.
func (s *LoanService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		member, err := s.repo.GetMember(txCtx, in.MemberID)
		if err != nil {
			return err
		}
		if member.Status != domain.MemberStatusActive {
			return domain.ErrMemberIneligible
		}

		book, err := s.repo.GetBook(txCtx, in.BookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies > 0 {
			// A copy is on the shelf; borrowing is the right operation.
			return domain.ErrCopiesAvailable
		}

		existing, err := s.repo.FindPendingReservation(txCtx, in.BookID, in.MemberID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateReservation
		}

		res := domain.Reservation{
			ID:          newID(),
			BookID:      in.BookID,
			MemberID:    in.MemberID,
			RequestedAt: now,
			Status:      domain.ReservationStatusPending,
		}
		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}
