package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Memory is one stored personal fact.
type Memory struct {
	ID         string
	Category   string
	Content    string
	Normalized string // canonical form used for duplicate lookups
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Event is one stored calendar entry. StartDate carries day
// precision only.
type Event struct {
	ID          string
	Title       string
	StartDate   time.Time
	Color       string
	Description string
	CreatedAt   time.Time
}

// CategoryCount pairs a memory category with its active record count.
type CategoryCount struct {
	Category string
	Count    int
}
