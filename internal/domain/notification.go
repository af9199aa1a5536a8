package domain

import "time"

// Notification is an unresolved, at-least-once email delivery obligation
// sitting in the outbox. ProcessID and LockedAt together form the lease:
// a row with a ProcessID whose LockedAt is older than the lease window is
// reclaimable by any worker.
type Notification struct {
	ID            string
	LoanID        string
	MemberID      string
	Email         string
	Subject       string
	Content       string
	ProcessID     *string
	LockedAt      *time.Time
	RetryCount    int
	LastError     *string
	LastAttemptAt *time.Time
	CreatedAt     time.Time
}

// MaxDeliveryRetries bounds how many times a notification is claimed
// before it is archived as a permanent failure.
const MaxDeliveryRetries = 3

// NotificationHistory is the append-only archive record written exactly
// once when a notification reaches a terminal outcome.
type NotificationHistory struct {
	ID         string
	LoanID     string
	MemberID   string
	Email      string
	Subject    string
	Content    string
	Success    bool
	ErrorMsg   *string
	ArchivedAt time.Time
}
