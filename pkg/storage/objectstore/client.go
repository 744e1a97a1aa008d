// File: pkg/storage/objectstore/client.go
package objectstore

import (
	"context"
	"io"
	"iter"
	"time"

	"cabinet/pkg/storage"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client is the minimal flat-namespace API a cloud adapter provides. Keys are
// effective backend keys. Failures should be *storage.BackendError values so
// the provider can tell absent items from real errors.
type Client interface {
	Head(ctx context.Context, key string) (ObjectInfo, error)
	// List returns every key under prefix when delimiter is empty. Otherwise
	// deeper keys are folded into CommonPrefix entries.
	List(ctx context.Context, prefix, delimiter string) iter.Seq2[storage.ListEntry, error]
	Copy(ctx context.Context, sourceKey, destKey string) error
	Delete(ctx context.Context, key string) error
	// size is -1 when unknown
	Upload(ctx context.Context, key string, r io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Close() error
}
