// Package repository implements the request store on Postgres via pgx.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/unlockmate/internal/model"
	"github.com/dharsanguruparan/unlockmate/internal/store"
)

// RequestRepository wraps all SQL used by the API server.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository constructs a repository.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

const selectColumns = `id, url, email, status, metadata, unlocked_url, unlock_type, created_at`

func scanRequest(row pgx.Row) (*model.UnlockRequest, error) {
	var (
		req      model.UnlockRequest
		metadata []byte
	)
	if err := row.Scan(&req.ID, &req.URL, &req.Email, &req.Status, &metadata, &req.UnlockedURL, &req.UnlockType, &req.CreatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		var meta model.DocumentMetadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		req.Metadata = &meta
	}
	return &req, nil
}

func encodeMetadata(meta *model.DocumentMetadata) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

// GetAll returns every request, newest first.
func (r *RequestRepository) GetAll(ctx context.Context) ([]model.UnlockRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM requests ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	defer rows.Close()
	var out []model.UnlockRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// GetByID returns the request or model.ErrNotFound.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*model.UnlockRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("select request: %w", err)
	}
	return req, nil
}

// Insert stores a freshly created request.
func (r *RequestRepository) Insert(ctx context.Context, req *model.UnlockRequest) error {
	metadata, err := encodeMetadata(req.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO requests (id, url, email, status, metadata, unlocked_url, unlock_type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, req.ID, req.URL, req.Email, req.Status, metadata, req.UnlockedURL, req.UnlockType, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// Update applies the mutator inside a transaction holding a row lock, so two
// concurrent updates of the same request serialize instead of clobbering
// each other.
func (r *RequestRepository) Update(ctx context.Context, id string, mutate store.Mutator) (*model.UnlockRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM requests WHERE id=$1 FOR UPDATE`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if err := mutate(req); err != nil {
		return nil, err
	}
	metadata, err := encodeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE requests
		SET url=$1, email=$2, status=$3, metadata=$4, unlocked_url=$5, unlock_type=$6
		WHERE id=$7
	`, req.URL, req.Email, req.Status, metadata, req.UnlockedURL, req.UnlockType, id)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return req, nil
}
