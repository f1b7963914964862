package domain

import "time"

// Subscriber is a messaging endpoint that receives broadcast articles in
// fan-out mode.
type Subscriber struct {
	ID           int64     `db:"id"`
	ChatID       int64     `db:"chat_id"`
	Username     string    `db:"username"`
	Active       bool      `db:"active"`
	SubscribedAt time.Time `db:"subscribed_at"`
}
