package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// localBlobs satisfies the fulfillment service's blob store with a plain
// directory next to the JSON store, standing in for object storage in the
// client-only deployment.
type localBlobs struct {
	dir string
}

func newLocalBlobs(dir string) *localBlobs {
	return &localBlobs{dir: filepath.Join(dir, "uploads")}
}

func (l *localBlobs) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	path := filepath.Join(l.dir, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("write deliverable: %w", err)
	}
	return nil
}

func (l *localBlobs) ObjectURL(objectKey string) string {
	abs, err := filepath.Abs(filepath.Join(l.dir, filepath.FromSlash(objectKey)))
	if err != nil {
		abs = filepath.Join(l.dir, filepath.FromSlash(objectKey))
	}
	return "file://" + filepath.ToSlash(abs)
}

// storeDir is where uploads live, alongside the JSON store file.
func (e *env) storeDir() string {
	path := storePath
	if path == "" {
		path = e.cfg.LocalStorePath
	}
	return filepath.Dir(path)
}

func unlockTypeFromFlag(tier string) model.UnlockType {
	// Validation happens in the controller; this only maps the flag value.
	return model.UnlockType(tier)
}
