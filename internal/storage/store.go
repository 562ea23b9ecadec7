package storage

import (
	"context"
	"io"
)

// ObjectStore opens pack payloads by locator. The returned size is -1 when
// the backend does not report one. Missing objects wrap ErrNotFound.
type ObjectStore interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, int64, error)
}

var (
	_ ObjectStore = (*LocalStore)(nil)
	_ ObjectStore = (*SupabaseStore)(nil)
	_ ObjectStore = (*URLFetcher)(nil)
	_ ObjectStore = (*MockObjectStore)(nil)
)
