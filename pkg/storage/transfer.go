// File: pkg/storage/transfer.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// OpenSource opens a local file as a save source and returns its size.
// The caller closes the file.
func OpenSource(path string) (*os.File, int64, error) {
	if strings.TrimSpace(path) == "" {
		return nil, 0, invalidArgument("source path", "must not be empty")
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("source file %s: %w", path, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("failed to open source file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat source file %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, invalidArgument("source path", "is a directory")
	}

	return f, info.Size(), nil
}

// BeginSave consults policy before a write. When proceed is false the
// returned result is final and no I/O must happen. The existence probe is
// skipped for Overwrite.
func BeginSave(key string, policy HandleExisting, exists func() (bool, error)) (result SaveResult, proceed bool, err error) {
	existing := false
	if policy != Overwrite {
		existing, err = exists()
		if err != nil {
			return SaveFailed(key, err, "failed to check for an existing item"), false, nil
		}
	}

	decision, err := ResolveExisting(existing, policy)
	if err != nil {
		return SaveFailed(key, err, ""), false, err
	}

	switch decision {
	case SkipWrite:
		return SaveSkipped(key), false, nil
	case Fail:
		failed := SaveFailed(key, ErrItemExists, "item exists and the policy is throw")
		failed.AlreadyExists = true
		return failed, false, fmt.Errorf("save %s: %w", key, ErrItemExists)
	default:
		return SaveResult{Key: key}, true, nil
	}
}

// CopyThenDelete moves an item by copying it and then removing the source.
// The source is only deleted after a successful copy, so a failed copy never
// loses data. A source that vanished before the delete counts as moved.
func CopyThenDelete(ctx context.Context, sourceKey, destKey string, copyFn, deleteFn func(context.Context) error) MoveResult {
	if err := copyFn(ctx); err != nil {
		return MoveFailed(sourceKey, destKey, err, "copy failed, source left in place")
	}

	if err := deleteFn(ctx); err != nil && OutcomeOf(err) != OutcomeNotFound {
		return MoveFailed(sourceKey, destKey, err, "copied but failed to delete source")
	}

	return MoveResult{SourceKey: sourceKey, DestKey: destKey, Success: true}
}

// SaveFromPath implements SaveFile on top of a backend's SaveStream. The
// policy is settled here so the source file is never opened for a skipped write.
func SaveFromPath(ctx context.Context, s Storage, key, sourcePath string, policy HandleExisting, sink ProgressSink) (SaveResult, error) {
	if err := ValidateKey("key", key); err != nil {
		return SaveResult{Key: key}, err
	}
	if strings.TrimSpace(sourcePath) == "" {
		return SaveResult{Key: key}, invalidArgument("source path", "must not be empty")
	}

	result, proceed, err := BeginSave(key, policy, func() (bool, error) {
		return s.Exists(ctx, key)
	})
	if !proceed {
		return result, err
	}

	f, size, err := OpenSource(sourcePath)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return SaveResult{Key: key}, err
		}
		return SaveFailed(key, err, "failed to open source"), nil
	}
	defer f.Close()

	return s.SaveStream(ctx, key, f, size, Overwrite, sink)
}
