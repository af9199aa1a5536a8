package domain

import "time"

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusSuspended MemberStatus = "suspended"
)

// Member is a registered library patron. Only active members may open
// new loans, and never more than MaxLoanLimit at a time.
type Member struct {
	ID           string
	Code         string
	Name         string
	Email        string
	Status       MemberStatus
	MaxLoanLimit int
	CreatedAt    time.Time
}
