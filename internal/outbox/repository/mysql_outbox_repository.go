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

// MySQLOutboxRepository handles outbox record persistence for MySQL
type MySQLOutboxRepository struct {
	db *sql.DB
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository
func NewMySQLOutboxRepository(db *sql.DB) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox record
func (r *MySQLOutboxRepository) Create(ctx context.Context, record *domain.OutboxRecord) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_records (id, topic, event_type, payload, processed, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, record.Topic, record.EventType,
		record.Payload, record.Processed, record.ProcessedAt)

	return err
}

// ListUnprocessed retrieves unprocessed records in insertion order with limit
func (r *MySQLOutboxRepository) ListUnprocessed(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxRecord, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, topic, event_type, payload, processed, processed_at, created_at, updated_at
			  FROM outbox_records
			  WHERE processed = false
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var records []*domain.OutboxRecord
	for rows.Next() {
		var record domain.OutboxRecord
		var idBytes []byte

		err := rows.Scan(&idBytes, &record.Topic, &record.EventType, &record.Payload,
			&record.Processed, &record.ProcessedAt, &record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			return nil, err
		}

		// Convert bytes back to UUID
		if err := record.ID.UnmarshalBinary(idBytes); err != nil {
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
func (r *MySQLOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_records
			  SET processed = true, processed_at = ?, updated_at = NOW()
			  WHERE id = ? AND processed = false`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, processedAt, idBytes)

	return err
}
