// File: internal/service/cabinet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"cabinet/internal/provider/factory"
	"cabinet/pkg/storage"
)

// Parallel transfers used by batch operations when the caller gives no limit
const DefaultConcurrency = 4

type CabinetService struct {
	factory *factory.Factory
	logger  *slog.Logger
}

func NewCabinetService(cabinetFactory *factory.Factory, logger *slog.Logger) *CabinetService {
	return &CabinetService{
		factory: cabinetFactory,
		logger:  logger.With("service", "CabinetService"),
	}
}

// --- Item Operations ---

func (s *CabinetService) ListItems(ctx context.Context, cabinet, prefix string, recursive bool) ([]storage.ItemInfo, error) {
	s.logger.Debug("Starting ListItems operation", "cabinet", cabinet, "prefix", prefix, "recursive", recursive)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	items, err := storage.CollectItems(client.GetItems(ctx, prefix, recursive))
	if err != nil {
		s.logger.Error("Failed to list items", "cabinet", cabinet, "prefix", prefix, "error", err)
		return nil, err
	}
	return items, nil
}

func (s *CabinetService) DescribeItem(ctx context.Context, cabinet, key string) (storage.ItemInfo, error) {
	s.logger.Debug("Starting DescribeItem operation", "cabinet", cabinet, "key", key)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return storage.ItemInfo{}, err
	}
	defer client.Close()

	item, err := client.GetItem(ctx, key)
	if err != nil {
		s.logger.Error("Failed to describe item", "cabinet", cabinet, "key", key, "error", err)
		return storage.ItemInfo{}, err
	}
	return item, nil
}

func (s *CabinetService) Exists(ctx context.Context, cabinet, key string) (bool, error) {
	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return false, err
	}
	defer client.Close()

	return client.Exists(ctx, key)
}

func (s *CabinetService) Upload(ctx context.Context, cabinet, key, sourcePath string, policy storage.HandleExisting, sink storage.ProgressSink) (storage.SaveResult, error) {
	s.logger.Debug("Starting Upload operation", "cabinet", cabinet, "key", key, "source", sourcePath, "policy", policy)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return storage.SaveResult{Key: key}, err
	}
	defer client.Close()

	result, err := client.SaveFile(ctx, key, sourcePath, policy, sink)
	if !result.Success {
		s.logger.Error("Upload failed", "cabinet", cabinet, "key", key, "error", result.ErrorMessage())
	}
	return result, err
}

// Download copies an item into destPath and returns the number of bytes written.
// A partially written file is removed on failure.
func (s *CabinetService) Download(ctx context.Context, cabinet, key, destPath string) (int64, error) {
	s.logger.Debug("Starting Download operation", "cabinet", cabinet, "key", key, "dest", destPath)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	r, err := client.OpenReadStream(ctx, key)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		s.logger.Error("Download failed", "cabinet", cabinet, "key", key, "error", err)
		return 0, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return n, nil
}

func (s *CabinetService) Move(ctx context.Context, cabinet, sourceKey, destKey string, policy storage.HandleExisting) (storage.MoveResult, error) {
	s.logger.Debug("Starting Move operation", "cabinet", cabinet, "source", sourceKey, "dest", destKey)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return storage.MoveResult{SourceKey: sourceKey, DestKey: destKey}, err
	}
	defer client.Close()

	result, err := client.Move(ctx, sourceKey, destKey, policy)
	if err == nil && !result.Success {
		s.logger.Error("Move failed", "cabinet", cabinet, "source", sourceKey, "dest", destKey, "error", result.ErrorMessage())
	}
	return result, err
}

func (s *CabinetService) Delete(ctx context.Context, cabinet, key string) (storage.DeleteResult, error) {
	s.logger.Debug("Starting Delete operation", "cabinet", cabinet, "key", key)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return storage.DeleteResult{Key: key}, err
	}
	defer client.Close()

	result, err := client.Delete(ctx, key)
	if err == nil && !result.Success {
		s.logger.Error("Delete failed", "cabinet", cabinet, "key", key, "error", result.ErrorMessage())
	}
	return result, err
}

// Usage reports stored bytes below prefix. Backends that track whole-cabinet
// usage answer an empty prefix directly; everything else sums a listing.
func (s *CabinetService) Usage(ctx context.Context, cabinet, prefix string) (int64, error) {
	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	if reporter, ok := client.(storage.UsageReporter); ok && prefix == "" {
		return reporter.Usage(ctx)
	}
	return storage.TotalSize(ctx, client, prefix)
}

// --- Batch Operations ---

// SaveRequest is one file handed to SaveBatch
type SaveRequest struct {
	Key        string
	SourcePath string
	// The source is a temporary intake file and is removed once its transfer ends
	Temporary bool
}

// SaveBatch saves every request in parallel and returns one result per
// request, in request order. A failed item never stops the others. The
// returned error only reports that the cabinet itself could not be opened.
func (s *CabinetService) SaveBatch(ctx context.Context, cabinet string, requests []SaveRequest, policy storage.HandleExisting, concurrency int, sink storage.ProgressSink) ([]storage.SaveResult, error) {
	defer removeTemporary(requests)

	s.logger.Debug("Starting SaveBatch operation", "cabinet", cabinet, "items", len(requests), "policy", policy)

	client, err := s.getCabinet(ctx, cabinet)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	results := make([]storage.SaveResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(concurrency))

	for i, req := range requests {
		g.Go(func() error {
			result, err := client.SaveFile(gctx, req.Key, req.SourcePath, policy, sink)
			if err != nil && !result.Success && result.Err == nil {
				result = storage.SaveFailed(req.Key, err, "")
			}
			if req.Temporary {
				removeFile(req.SourcePath)
			}
			if !result.Success {
				s.logger.Warn("Batch item failed", "cabinet", cabinet, "key", req.Key, "error", result.ErrorMessage())
			}
			results[i] = result
			return nil
		})
	}
	g.Wait()

	return results, nil
}

// Migrate copies every file below prefix from one cabinet to another under
// the same key, deleting each source only after its copy succeeded when
// deleteSource is set. Items skipped by the policy keep their source.
func (s *CabinetService) Migrate(ctx context.Context, fromCabinet, toCabinet, prefix string, policy storage.HandleExisting, deleteSource bool, concurrency int) ([]storage.MoveResult, error) {
	s.logger.Debug("Starting Migrate operation", "from", fromCabinet, "to", toCabinet, "prefix", prefix, "delete_source", deleteSource)

	// Every item would be rewritten onto itself, then deleted with deleteSource
	if s.factory.SameStore(fromCabinet, toCabinet) {
		return nil, fmt.Errorf("%w: cannot migrate %s into %s, both address the same storage", storage.ErrInvalidArgument, fromCabinet, toCabinet)
	}

	source, err := s.getCabinet(ctx, fromCabinet)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	dest, err := s.getCabinet(ctx, toCabinet)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	items, err := storage.CollectItems(source.GetItems(ctx, prefix, true))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", fromCabinet, err)
	}

	results := make([]storage.MoveResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(concurrency))

	for i, item := range items {
		g.Go(func() error {
			results[i] = migrateItem(gctx, source, dest, item, policy, deleteSource)
			if !results[i].Success {
				s.logger.Warn("Migration item failed", "key", item.Key, "error", results[i].ErrorMessage())
			}
			return nil
		})
	}
	g.Wait()

	return results, nil
}

func migrateItem(ctx context.Context, source, dest storage.Storage, item storage.ItemInfo, policy storage.HandleExisting, deleteSource bool) storage.MoveResult {
	skipped := false

	copyFn := func(ctx context.Context) error {
		r, err := source.OpenReadStream(ctx, item.Key)
		if err != nil {
			return err
		}
		defer r.Close()

		saved, err := dest.SaveStream(ctx, item.Key, r, item.Size, policy, nil)
		if err != nil {
			return err
		}
		if !saved.Success {
			if saved.Err != nil {
				return saved.Err
			}
			return errors.New(saved.ErrorMessage())
		}
		skipped = saved.AlreadyExists
		return nil
	}

	deleteFn := func(ctx context.Context) error {
		if skipped || !deleteSource {
			return nil
		}
		deleted, err := source.Delete(ctx, item.Key)
		if err != nil {
			return err
		}
		return deleted.Err
	}

	result := storage.CopyThenDelete(ctx, item.Key, item.Key, copyFn, deleteFn)
	if skipped || errors.Is(result.Err, storage.ErrItemExists) {
		result.AlreadyExists = true
	}
	return result
}

// Helper to initialize the cabinet client and handle common error logging
func (s *CabinetService) getCabinet(ctx context.Context, name string) (storage.Storage, error) {
	client, err := s.factory.GetCabinet(ctx, name)
	if err != nil {
		s.logger.Error("Failed to initialize cabinet", "cabinet", name, "error", err)
		return nil, fmt.Errorf("error initializing cabinet: %w", err)
	}
	return client, nil
}

func limit(concurrency int) int {
	if concurrency <= 0 {
		return DefaultConcurrency
	}
	return concurrency
}

func removeTemporary(requests []SaveRequest) {
	for _, req := range requests {
		if req.Temporary {
			removeFile(req.SourcePath)
		}
	}
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to remove temporary file", "path", path, "error", err)
	}
}
