package domain

import "errors"

var (
	ErrBookNotFound         = errors.New("book not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrMemberIneligible     = errors.New("member is not eligible to borrow")
	ErrLoanLimitExceeded    = errors.New("member loan limit exceeded")
	ErrBookUnavailable      = errors.New("no copies available")
	ErrCopiesAvailable      = errors.New("copies available; borrow instead")
	ErrLoanAlreadyReturned  = errors.New("loan already returned")
	ErrDuplicateReservation = errors.New("member already has a pending reservation for this book")
	ErrCodeAlreadyExists    = errors.New("member code already exists")
	ErrTitleRequired        = errors.New("title required")
	ErrNameRequired         = errors.New("name required")
	ErrEmailRequired        = errors.New("email required")
	ErrInvalidCopies        = errors.New("invalid copy count")
	ErrInvalidLoanLimit     = errors.New("invalid loan limit")
	ErrInvalidDays          = errors.New("invalid loan duration")
	ErrNotificationExists   = errors.New("a live notification already references this loan")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidID            = errors.New("invalid id")
)
