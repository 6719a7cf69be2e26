package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

func testRequest(id string, createdAt time.Time) *model.UnlockRequest {
	return &model.UnlockRequest{
		ID:        id,
		URL:       "https://coursehero.com/doc/" + id,
		Status:    model.StatusRequested,
		CreatedAt: createdAt,
	}
}

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(ctx, "missing", func(r *model.UnlockRequest) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("update missing: err = %v, want ErrNotFound", err)
	}

	if err := s.Insert(ctx, testRequest("older", base)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, testRequest("newer", base.Add(time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, testRequest("older", base)); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("duplicate insert: err = %v, want ErrValidation", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(all) != 2 || all[0].ID != "newer" || all[1].ID != "older" {
		t.Fatalf("order = %+v", all)
	}

	updated, err := s.Update(ctx, "older", func(r *model.UnlockRequest) error {
		r.Status = model.StatusFailed
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusFailed {
		t.Fatalf("updated status = %s", updated.Status)
	}
	got, err := s.GetByID(ctx, "older")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("persisted status = %s", got.Status)
	}

	// A mutator error aborts the update without touching the record.
	boom := errors.New("boom")
	if _, err := s.Update(ctx, "newer", func(r *model.UnlockRequest) error {
		r.Status = model.StatusReady
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("aborted update err = %v", err)
	}
	got, _ = s.GetByID(ctx, "newer")
	if got.Status != model.StatusRequested {
		t.Fatalf("aborted update mutated record: %s", got.Status)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStoreContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	runStoreContract(t, fs)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.json")
	ctx := context.Background()

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Insert(ctx, testRequest("r1", time.Now().UTC())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.URL != "https://coursehero.com/doc/r1" {
		t.Fatalf("reloaded request = %+v", got)
	}
}

func TestMemoryStoreCopiesOut(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.Insert(ctx, testRequest("r1", time.Now().UTC())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, _ := m.GetByID(ctx, "r1")
	got.Status = model.StatusReady
	again, _ := m.GetByID(ctx, "r1")
	if again.Status != model.StatusRequested {
		t.Fatalf("caller mutation leaked into store: %s", again.Status)
	}
}
