package domain

import "time"

// User is the domain entity for a user account.
// HashedPassword never leaves the service layer.
type User struct {
	ID             string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}
