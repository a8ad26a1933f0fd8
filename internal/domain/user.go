package domain

import "time"

// User represents an authenticated submitter. The user id doubles as the
// chat id that messages and tasks are keyed by.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastSeenAt   *time.Time
}
