// Package repository provides data persistence implementations for outbox records.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/database"
	"github.com/allisson/orders/internal/outbox/domain"
)

// PostgreSQLOutboxRepository handles outbox record persistence for PostgreSQL
type PostgreSQLOutboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox record
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, record *domain.OutboxRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_records (id, topic, event_type, payload, processed, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, record.ID, record.Topic, record.EventType,
		record.Payload, record.Processed, record.ProcessedAt)

	return err
}

// ListUnprocessed retrieves unprocessed records in insertion order with limit
func (r *PostgreSQLOutboxRepository) ListUnprocessed(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, topic, event_type, payload, processed, processed_at, created_at, updated_at
			  FROM outbox_records
			  WHERE processed = false
			  ORDER BY created_at ASC
			  LIMIT $1
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var records []*domain.OutboxRecord
	for rows.Next() {
		var record domain.OutboxRecord

		err := rows.Scan(&record.ID, &record.Topic, &record.EventType, &record.Payload,
			&record.Processed, &record.ProcessedAt, &record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// MarkProcessed flips a record to processed with the given timestamp
func (r *PostgreSQLOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_records
			  SET processed = true, processed_at = $1, updated_at = NOW()
			  WHERE id = $2 AND processed = false`

	_, err := querier.ExecContext(ctx, query, processedAt, id)

	return err
}
