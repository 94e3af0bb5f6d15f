package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists call history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS call_records (
			id TEXT PRIMARY KEY,
			room_name TEXT NOT NULL,
			dispatch_id TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			transcript_path TEXT NOT NULL DEFAULT '',
			prediction_path TEXT NOT NULL DEFAULT '',
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_call_records_ended ON call_records (ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_call_records_phone_ended ON call_records (phone_number, ended_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveCall(ctx context.Context, record CallRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EndedAt.IsZero() {
		record.EndedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_records (id, room_name, dispatch_id, phone_number, customer_name,
			outcome, failure_reason, transcript_path, prediction_path, duration_seconds,
			started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID,
		record.RoomName,
		record.DispatchID,
		record.PhoneNumber,
		record.CustomerName,
		record.Outcome,
		record.FailureReason,
		record.TranscriptPath,
		record.PredictionPath,
		record.DurationSeconds,
		record.StartedAt,
		record.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("save call record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	return s.query(ctx,
		`SELECT id, room_name, dispatch_id, phone_number, customer_name,
			outcome, failure_reason, transcript_path, prediction_path, duration_seconds,
			started_at, ended_at
		 FROM call_records ORDER BY ended_at DESC LIMIT $1`,
		limit)
}

func (s *PostgresStore) CallsForPhone(ctx context.Context, phoneNumber string, limit int) ([]CallRecord, error) {
	return s.query(ctx,
		`SELECT id, room_name, dispatch_id, phone_number, customer_name,
			outcome, failure_reason, transcript_path, prediction_path, duration_seconds,
			started_at, ended_at
		 FROM call_records WHERE phone_number=$2 ORDER BY ended_at DESC LIMIT $1`,
		limit, phoneNumber)
}

func (s *PostgresStore) query(ctx context.Context, sql string, limit int, args ...any) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	queryArgs := append([]any{limit}, args...)
	rows, err := s.pool.Query(ctx, sql, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	items := make([]CallRecord, 0, limit)
	for rows.Next() {
		var r CallRecord
		if err := rows.Scan(&r.ID, &r.RoomName, &r.DispatchID, &r.PhoneNumber, &r.CustomerName,
			&r.Outcome, &r.FailureReason, &r.TranscriptPath, &r.PredictionPath, &r.DurationSeconds,
			&r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call records: %w", err)
	}

	// Reverse into chronological order for display.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
