package domain

import "time"

// Book represents a title in the catalog with a shelf count of
// copies currently available to borrow.
type Book struct {
	ID              string
	Title           string
	Author          string
	AvailableCopies int
	CreatedAt       time.Time
}
