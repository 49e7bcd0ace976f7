package domain

import "time"

// Task is the domain entity for a to-do item.
// It does not depend on Gin, Postgres or Redis.
type Task struct {
	ID          string
	Title       string
	Description *string
	UserID      string
	IsCompleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
