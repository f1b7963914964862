package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"newsroom/internal/domain"
)

// SubscriberStore manages broadcast recipients for fan-out mode.
type SubscriberStore struct {
	db *sqlx.DB
}

func NewSubscriberStore(db *sqlx.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// Add subscribes a chat. Re-subscribing an existing chat reactivates it and
// reports false so callers can tell a fresh subscription from a repeat.
func (s *SubscriberStore) Add(ctx context.Context, chatID int64, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (chat_id, username, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (chat_id) DO UPDATE SET active = TRUE, username = EXCLUDED.username
		WHERE subscribers.active = FALSE`,
		chatID, username,
	)
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	return rowsChanged(res)
}

// Remove unsubscribes a chat. Returns false when the chat was not subscribed.
func (s *SubscriberStore) Remove(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE chat_id = $1`, chatID)
	if err != nil {
		return false, fmt.Errorf("remove subscriber: %w", err)
	}
	return rowsChanged(res)
}

// Active lists every active subscriber.
func (s *SubscriberStore) Active(ctx context.Context) ([]domain.Subscriber, error) {
	var subs []domain.Subscriber
	err := s.db.SelectContext(ctx, &subs, `
		SELECT id, chat_id, username, active, subscribed_at
		FROM subscribers WHERE active = TRUE ORDER BY subscribed_at`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}

// Count returns the number of active subscribers.
func (s *SubscriberStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM subscribers WHERE active = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return count, nil
}
