// Package blob abstracts file content storage. The service only ever moves
// opaque byte streams: it never inspects file bytes.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// Store reads and writes blobs addressed by an opaque storage key.
type Store interface {
	// Put streams r into the store under key.
	Put(ctx context.Context, key string, r io.Reader) error

	// Open returns a reader for the blob stored under key. The caller
	// closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// NewStorageKey returns a date-prefixed random key preserving the original
// file extension, e.g. "2026/8/30/9f2d....docx".
func NewStorageKey(ext string) string {
	d := time.Now()
	return path.Join(fmt.Sprintf("%d/%d/%d", d.Year(), d.Month(), d.Day()), uuid.NewString()+ext)
}
