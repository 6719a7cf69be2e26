// Package store defines the request store contract plus the in-memory and
// file-backed implementations used by tests and the local deployment.
package store

import (
	"context"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// Mutator edits a request in place inside an atomic update. Returning an
// error aborts the update and leaves the stored record untouched.
type Mutator func(*model.UnlockRequest) error

// Store is the system of record for unlock requests. Implementations must
// guarantee that Update on a given id is atomic (no interleaving with a
// concurrent Update of the same id) and that updating an unknown id fails
// with model.ErrNotFound rather than creating a record.
type Store interface {
	// GetAll returns every request, newest first.
	GetAll(ctx context.Context) ([]model.UnlockRequest, error)
	// GetByID returns the request or model.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.UnlockRequest, error)
	// Insert adds a new request. The id must not already exist.
	Insert(ctx context.Context, req *model.UnlockRequest) error
	// Update applies mutate to the stored request and persists the result.
	Update(ctx context.Context, id string, mutate Mutator) (*model.UnlockRequest, error)
}
