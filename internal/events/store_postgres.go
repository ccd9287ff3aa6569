package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	txcontext "credentry/pkg/platform/tx"
)

// PostgresStore persists events through the transactional outbox pattern:
// the insert joins the transaction of the mutation that produced the event,
// so an event exists if and only if its mutation committed. A relay ships
// outbox rows to Kafka.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes the event to the outbox table.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query := `
		INSERT INTO registry_events (id, name, subject, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Name),
		event.Subject(),
		payload,
		event.Timestamp,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListBySubject returns the most recent events about an address, newest first.
func (s *PostgresStore) ListBySubject(ctx context.Context, address string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT payload FROM registry_events
		WHERE subject = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
