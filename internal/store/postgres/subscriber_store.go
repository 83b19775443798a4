package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// SubscriberStore implements domain.SubscriberStore using PostgreSQL. Coins
// and exchanges are stored as TEXT[] so membership mutations stay single
// round-trip updates.
type SubscriberStore struct {
	pool *pgxpool.Pool
}

// NewSubscriberStore creates a new SubscriberStore backed by the given pool.
func NewSubscriberStore(pool *pgxpool.Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

const subscriberSelectCols = `chat_id, username, email, first_name, last_name,
	coins, exchanges, threshold, interval_seconds, notifications,
	created_at, updated_at`

// GetByChatID returns one subscriber, or domain.ErrNotFound.
func (s *SubscriberStore) GetByChatID(ctx context.Context, chatID string) (domain.Subscriber, error) {
	query := `SELECT ` + subscriberSelectCols + ` FROM subscribers WHERE chat_id = $1`

	var sub domain.Subscriber
	err := s.pool.QueryRow(ctx, query, chatID).Scan(
		&sub.ChatID, &sub.Username, &sub.Email, &sub.FirstName, &sub.LastName,
		&sub.Coins, &sub.Exchanges, &sub.Threshold, &sub.Interval, &sub.Notifications,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscriber{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("postgres: get subscriber %s: %w", chatID, err)
	}
	return sub, nil
}

// ListEnabled returns every subscriber with notifications switched on.
func (s *SubscriberStore) ListEnabled(ctx context.Context) ([]domain.Subscriber, error) {
	query := `SELECT ` + subscriberSelectCols + ` FROM subscribers
		WHERE notifications ORDER BY chat_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enabled subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(
			&sub.ChatID, &sub.Username, &sub.Email, &sub.FirstName, &sub.LastName,
			&sub.Coins, &sub.Exchanges, &sub.Threshold, &sub.Interval, &sub.Notifications,
			&sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list enabled subscribers rows: %w", err)
	}
	return subs, nil
}

// Upsert inserts the subscriber or replaces its settings if the chat is
// already registered.
func (s *SubscriberStore) Upsert(ctx context.Context, sub domain.Subscriber) error {
	const query = `
		INSERT INTO subscribers (
			chat_id, username, email, first_name, last_name,
			coins, exchanges, threshold, interval_seconds, notifications
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chat_id) DO UPDATE SET
			username        = EXCLUDED.username,
			email           = EXCLUDED.email,
			first_name      = EXCLUDED.first_name,
			last_name       = EXCLUDED.last_name,
			coins           = EXCLUDED.coins,
			exchanges       = EXCLUDED.exchanges,
			threshold       = EXCLUDED.threshold,
			interval_seconds = EXCLUDED.interval_seconds,
			notifications   = EXCLUDED.notifications,
			updated_at      = NOW()`

	_, err := s.pool.Exec(ctx, query,
		sub.ChatID, sub.Username, sub.Email, sub.FirstName, sub.LastName,
		sub.Coins, sub.Exchanges, sub.Threshold, sub.Interval, sub.Notifications,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert subscriber %s: %w", sub.ChatID, err)
	}
	return nil
}

// SetThreshold updates the subscriber's minimum alert spread.
func (s *SubscriberStore) SetThreshold(ctx context.Context, chatID string, threshold float64) error {
	return s.set(ctx, chatID, "threshold", threshold)
}

// SetInterval updates the subscriber's detection interval in seconds.
func (s *SubscriberStore) SetInterval(ctx context.Context, chatID string, interval int) error {
	return s.set(ctx, chatID, "interval_seconds", interval)
}

// SetNotifications toggles alert delivery for the subscriber.
func (s *SubscriberStore) SetNotifications(ctx context.Context, chatID string, enabled bool) error {
	return s.set(ctx, chatID, "notifications", enabled)
}

// set updates a single settings column and stamps updated_at.
func (s *SubscriberStore) set(ctx context.Context, chatID, column string, value any) error {
	query := fmt.Sprintf(
		`UPDATE subscribers SET %s = $2, updated_at = NOW() WHERE chat_id = $1`, column)

	tag, err := s.pool.Exec(ctx, query, chatID, value)
	if err != nil {
		return fmt.Errorf("postgres: set %s for %s: %w", column, chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddCoin adds a coin to the subscriber's watch list if not already present.
func (s *SubscriberStore) AddCoin(ctx context.Context, chatID, coin string) error {
	return s.addMember(ctx, chatID, "coins", coin)
}

// RemoveCoin removes a coin from the subscriber's watch list.
func (s *SubscriberStore) RemoveCoin(ctx context.Context, chatID, coin string) error {
	return s.removeMember(ctx, chatID, "coins", coin)
}

// AddExchange adds an exchange to the subscriber's watch list if not already
// present.
func (s *SubscriberStore) AddExchange(ctx context.Context, chatID, exchange string) error {
	return s.addMember(ctx, chatID, "exchanges", exchange)
}

// RemoveExchange removes an exchange from the subscriber's watch list.
func (s *SubscriberStore) RemoveExchange(ctx context.Context, chatID, exchange string) error {
	return s.removeMember(ctx, chatID, "exchanges", exchange)
}

func (s *SubscriberStore) addMember(ctx context.Context, chatID, column, member string) error {
	query := fmt.Sprintf(`
		UPDATE subscribers SET
			%[1]s = array_append(%[1]s, $2),
			updated_at = NOW()
		WHERE chat_id = $1 AND NOT ($2 = ANY(%[1]s))`, column)

	tag, err := s.pool.Exec(ctx, query, chatID, member)
	if err != nil {
		return fmt.Errorf("postgres: add %s member for %s: %w", column, chatID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the chat is unknown or the member was already present.
		if _, err := s.GetByChatID(ctx, chatID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubscriberStore) removeMember(ctx context.Context, chatID, column, member string) error {
	query := fmt.Sprintf(`
		UPDATE subscribers SET
			%[1]s = array_remove(%[1]s, $2),
			updated_at = NOW()
		WHERE chat_id = $1`, column)

	tag, err := s.pool.Exec(ctx, query, chatID, member)
	if err != nil {
		return fmt.Errorf("postgres: remove %s member for %s: %w", column, chatID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.SubscriberStore = (*SubscriberStore)(nil)
