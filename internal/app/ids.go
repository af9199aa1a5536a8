package app

import "github.com/google/uuid"

// newID generates an identity up front so inserts never depend on the
// store handing one back.
func newID() string {
	return uuid.NewString()
}
