package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert stores one emitted alert.
func (s *AlertStore) Insert(ctx context.Context, alert domain.Alert) error {
	const query = `
		INSERT INTO alerts (
			id, chat_id, coin, higher_exchange, lower_exchange,
			spread_percent, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		alert.ID, alert.ChatID, alert.Coin, alert.HigherExchange, alert.LowerExchange,
		alert.SpreadPercent, alert.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListRecent returns the most recent alerts ordered by detection time.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	query := `
		SELECT id, chat_id, coin, higher_exchange, lower_exchange,
			spread_percent, detected_at
		FROM alerts ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID, &alert.ChatID, &alert.Coin, &alert.HigherExchange, &alert.LowerExchange,
			&alert.SpreadPercent, &alert.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent alerts rows: %w", err)
	}
	return alerts, nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
