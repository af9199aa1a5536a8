package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
)

// Reservation is a member's place in the per-book waitlist. Pending
// reservations are served oldest RequestedAt first when a copy comes back.
type Reservation struct {
	ID          string
	BookID      string
	MemberID    string
	RequestedAt time.Time
	Status      ReservationStatus
}
