// File: pkg/storage/storage.go
package storage

import (
	"context"
	"io"
	"iter"

	"cabinet/pkg/common"
)

// Storage is the operation set every cabinet backend implements.
// Keys are always expressed relative to the cabinet's configured prefix.
type Storage interface {
	ProviderType() common.Provider

	// Exists reports false for absent, forbidden and unauthorized items.
	// Any other backend failure is returned as an error.
	Exists(ctx context.Context, key string) (bool, error)

	// GetItem returns the item at key, or an ItemInfo with Exists=false
	GetItem(ctx context.Context, key string) (ItemInfo, error)
	GetItems(ctx context.Context, prefix string, recursive bool) iter.Seq2[ItemInfo, error]
	ListKeys(ctx context.Context, prefix string, recursive bool) iter.Seq2[string, error]

	// OpenReadStream returns ErrNotFound when the item is absent. The caller closes the reader.
	OpenReadStream(ctx context.Context, key string) (io.ReadCloser, error)

	SaveFile(ctx context.Context, key, sourcePath string, policy HandleExisting, sink ProgressSink) (SaveResult, error)
	// size may be -1 when unknown
	SaveStream(ctx context.Context, key string, r io.Reader, size int64, policy HandleExisting, sink ProgressSink) (SaveResult, error)

	Move(ctx context.Context, sourceKey, destKey string, policy HandleExisting) (MoveResult, error)
	Delete(ctx context.Context, key string) (DeleteResult, error)

	Close() error
}

// UsageReporter is implemented by backends that can report stored bytes cheaply
type UsageReporter interface {
	Usage(ctx context.Context) (int64, error)
}

// TotalSize sums the sizes of every file in a recursive listing of prefix
func TotalSize(ctx context.Context, s Storage, prefix string) (int64, error) {
	var total int64
	for item, err := range s.GetItems(ctx, prefix, true) {
		if err != nil {
			return 0, err
		}
		if item.Type == File {
			total += item.Size
		}
	}
	return total, nil
}
