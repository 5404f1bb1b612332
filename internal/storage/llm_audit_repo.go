package storage

import (
	"context"
	"fmt"
	"time"

	"docreader/internal/models"

	"github.com/google/uuid"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

const insertLLMCall = `
INSERT INTO llm_calls(call_id, request_id, operation, stage, provider_name, model, status, error_type, latency_ms, created_at)
VALUES ($1::uuid, NULLIF($2,''), $3, NULLIF($4,''), $5, $6, $7, NULLIF($8,''), $9, $10)`

const selectRecentLLMCalls = `
SELECT call_id::text, COALESCE(request_id,''), operation, COALESCE(stage,''), provider_name, model, status,
       COALESCE(error_type,''), latency_ms, created_at
FROM llm_calls
ORDER BY created_at DESC
LIMIT $1`

func (r *LLMAuditRepo) Insert(ctx context.Context, rec models.LLMCall) error {
	if _, err := r.db.Pool.Exec(ctx, insertLLMCall, insertArgs(rec)...); err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// Recent returns the newest audit rows, newest first.
func (r *LLMAuditRepo) Recent(ctx context.Context, limit int) ([]models.LLMCall, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, selectRecentLLMCalls, limit)
	if err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	defer rows.Close()
	out := make([]models.LLMCall, 0, limit)
	for rows.Next() {
		rec, err := scanLLMCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// insertArgs fills a missing call id and timestamp and orders the values for
// insertLLMCall. Latency is stored in whole milliseconds.
func insertArgs(rec models.LLMCall) []any {
	if rec.CallID == "" {
		rec.CallID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return []any{
		rec.CallID, rec.RequestID, rec.Operation, rec.Stage, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType,
		rec.Latency.Milliseconds(), rec.CreatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLLMCall(row rowScanner) (models.LLMCall, error) {
	var rec models.LLMCall
	var latencyMS int64
	if err := row.Scan(&rec.CallID, &rec.RequestID, &rec.Operation, &rec.Stage, &rec.ProviderName, &rec.Model,
		&rec.Status, &rec.ErrorType, &latencyMS, &rec.CreatedAt); err != nil {
		return models.LLMCall{}, fmt.Errorf("scan llm call: %w", err)
	}
	rec.Latency = time.Duration(latencyMS) * time.Millisecond
	return rec, nil
}
