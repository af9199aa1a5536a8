package domain

import "time"

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan tracks one copy of a book lent to a member. A loan is created
// borrowed, may be marked overdue by the sweep, and is returned exactly
// once, after which it is immutable.
type Loan struct {
	ID         string
	BookID     string
	MemberID   string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Status     LoanStatus
}

// Active reports whether the loan still counts against the member's
// loan limit.
func (l Loan) Active() bool {
	return l.Status == LoanStatusBorrowed || l.Status == LoanStatusOverdue
}
