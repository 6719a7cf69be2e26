package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// FileStore persists the whole collection as one JSON document on disk. It
// is the local deployment alternative to the Postgres store: a single
// well-known file holding every request, rewritten atomically on each
// mutation. Suitable for the CLI, not for concurrent processes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (or lazily creates) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: store path is empty", model.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) load() ([]model.UnlockRequest, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var requests []model.UnlockRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("decode store file: %w", err)
	}
	return requests, nil
}

func (f *FileStore) save(requests []model.UnlockRequest) error {
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// GetAll returns every request, newest first.
func (f *FileStore) GetAll(ctx context.Context) ([]model.UnlockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests, err := f.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID > requests[j].ID
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

// GetByID returns the request or model.ErrNotFound.
func (f *FileStore) GetByID(ctx context.Context, id string) (*model.UnlockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests, err := f.load()
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].ID == id {
			cp := requests[i]
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

// Insert appends a new request and rewrites the file.
func (f *FileStore) Insert(ctx context.Context, req *model.UnlockRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests, err := f.load()
	if err != nil {
		return err
	}
	for i := range requests {
		if requests[i].ID == req.ID {
			return fmt.Errorf("%w: duplicate id %s", model.ErrValidation, req.ID)
		}
	}
	requests = append(requests, *req)
	return f.save(requests)
}

// Update mutates one request under the store lock and rewrites the file.
func (f *FileStore) Update(ctx context.Context, id string, mutate Mutator) (*model.UnlockRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests, err := f.load()
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].ID != id {
			continue
		}
		cp := requests[i]
		if err := mutate(&cp); err != nil {
			return nil, err
		}
		requests[i] = cp
		if err := f.save(requests); err != nil {
			return nil, err
		}
		out := cp
		return &out, nil
	}
	return nil, model.ErrNotFound
}
