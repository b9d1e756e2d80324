package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type eventLog struct {
	db *sql.DB
}

// NewEventLog creates an order audit log backed by Postgres.
func NewEventLog(db *sql.DB) repository.EventLog {
	return &eventLog{db: db}
}

func (l *eventLog) Append(ctx context.Context, orderID string, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO order_events (id, order_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		if _, err := stmt.ExecContext(ctx, uuid.NewString(), orderID, event.EventType(), payload, now); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *eventLog) FindByOrder(ctx context.Context, orderID string) ([]entity.EventRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, order_id, event_type, payload, created_at FROM order_events WHERE order_id = $1 ORDER BY created_at",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var records []entity.EventRecord
	for rows.Next() {
		var rec entity.EventRecord
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.EventType, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
