// File: pkg/storage/filesystem/filesystem.go
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"cabinet/pkg/common"
	"cabinet/pkg/storage"
)

// Config binds a cabinet to a directory tree
type Config struct {
	Root string `mapstructure:"root" validate:"required"`
	// Optional sub-tree every key is placed under
	KeyPrefix string `mapstructure:"key_prefix"`
	// Creates Root when it does not exist yet
	CreateRoot bool `mapstructure:"create_root"`
}

// FileSystemStorage stores items as regular files below a root directory.
// Keys are slash-delimited regardless of the host separator.
type FileSystemStorage struct {
	root string
	// root joined with the key prefix; no key may resolve outside it
	base   string
	keys   storage.KeySpace
	logger *slog.Logger
}

var (
	_ storage.Storage       = (*FileSystemStorage)(nil)
	_ storage.UsageReporter = (*FileSystemStorage)(nil)
)

func New(cfg *Config, logger *slog.Logger) (*FileSystemStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: filesystem configuration is required", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, fmt.Errorf("%w: filesystem root is required", storage.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.CreateRoot {
		if err := os.MkdirAll(cfg.Root, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create root %q: %w", cfg.Root, err)
		}
	}

	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", cfg.Root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("root %q is not accessible: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %q is not a directory", storage.ErrInvalidArgument, absRoot)
	}

	keys := storage.NewKeySpace(cfg.KeyPrefix, storage.DefaultDelimiter)
	base := filepath.Join(absRoot, filepath.FromSlash(keys.Prefix()))
	if !within(absRoot, base) {
		return nil, fmt.Errorf("%w: key prefix %q escapes root %q", storage.ErrInvalidArgument, cfg.KeyPrefix, absRoot)
	}

	return &FileSystemStorage{
		root:   absRoot,
		base:   base,
		keys:   keys,
		logger: logger,
	}, nil
}

func (s *FileSystemStorage) ProviderType() common.Provider {
	return common.FileSystem
}

func (s *FileSystemStorage) Close() error {
	return nil
}

// Resolves an effective key to a path, rejecting anything that escapes the
// key prefix directory
func (s *FileSystemStorage) abs(effectiveKey string) (string, error) {
	joined := filepath.Join(s.root, filepath.Clean(filepath.FromSlash(effectiveKey)))
	if !within(s.base, joined) {
		return "", fmt.Errorf("%w: key %q escapes the cabinet root", storage.ErrInvalidArgument, effectiveKey)
	}
	return joined, nil
}

// Reports whether path is dir or lies below it
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *FileSystemStorage) pathFor(key string) (string, error) {
	effective, err := s.keys.Resolve(key)
	if err != nil {
		return "", err
	}
	return s.abs(effective)
}

// Converts an absolute path under root back to a slash-delimited effective key
func (s *FileSystemStorage) effectiveKey(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func classify(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		// A path through a regular file names nothing, as on a flat store
		return storage.NewBackendError(op, key, storage.OutcomeNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return storage.NewBackendError(op, key, storage.OutcomeForbidden, err)
	default:
		return storage.NewBackendError(op, key, storage.OutcomeOtherError, err)
	}
}

func (s *FileSystemStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		classified := classify("stat", key, err)
		if storage.IsAbsent(classified) {
			return false, nil
		}
		return false, classified
	}
	return info.Mode().IsRegular(), nil
}

// Directories are reported as existing Directory items
func (s *FileSystemStorage) GetItem(ctx context.Context, key string) (storage.ItemInfo, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return storage.ItemInfo{}, err
	}

	item := storage.ItemInfo{Key: key, Provider: common.FileSystem}
	info, err := os.Stat(path)
	if err != nil {
		classified := classify("stat", key, err)
		if storage.IsAbsent(classified) {
			return item, nil
		}
		return item, classified
	}

	item.Exists = true
	if info.IsDir() {
		item.Type = storage.Directory
		return item, nil
	}
	item.Size = info.Size()
	item.LastModifiedUTC = info.ModTime().UTC()
	return item, nil
}

func (s *FileSystemStorage) GetItems(ctx context.Context, prefix string, recursive bool) iter.Seq2[storage.ItemInfo, error] {
	req := storage.ListRequest{
		Keys:      s.keys,
		Prefix:    s.keys.SearchPrefix(prefix),
		Recursive: recursive,
		Provider:  common.FileSystem,
	}
	s.logger.Debug("Listing directory", "prefix", req.Prefix, "recursive", recursive)

	dir, err := s.abs(req.Prefix)
	if err != nil {
		return func(yield func(storage.ItemInfo, error) bool) {
			yield(storage.ItemInfo{}, err)
		}
	}

	if recursive {
		return storage.FoldEntries(req, s.walk(ctx, dir))
	}
	return storage.FoldEntries(req, s.readDir(dir))
}

func (s *FileSystemStorage) ListKeys(ctx context.Context, prefix string, recursive bool) iter.Seq2[string, error] {
	return storage.ItemKeys(s.GetItems(ctx, prefix, recursive))
}

// Lists one directory level; subdirectories become common-prefix entries
func (s *FileSystemStorage) readDir(dir string) iter.Seq2[storage.ListEntry, error] {
	return func(yield func(storage.ListEntry, error) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			yield(storage.ListEntry{}, classify("list", dir, err))
			return
		}

		for _, d := range entries {
			key, err := s.effectiveKey(filepath.Join(dir, d.Name()))
			if err != nil {
				yield(storage.ListEntry{}, classify("list", dir, err))
				return
			}

			if d.IsDir() {
				if !yield(storage.ListEntry{Key: key + storage.DefaultDelimiter, CommonPrefix: true}, nil) {
					return
				}
				continue
			}
			if !d.Type().IsRegular() {
				continue
			}

			entry, ok, err := s.fileEntry(key, d)
			if err != nil {
				if !yield(storage.ListEntry{}, err) {
					return
				}
				continue
			}
			if ok && !yield(entry, nil) {
				return
			}
		}
	}
}

// Walks every regular file below dir in lexical order
func (s *FileSystemStorage) walk(ctx context.Context, dir string) iter.Seq2[storage.ListEntry, error] {
	return func(yield func(storage.ListEntry, error) bool) {
		stopped := false
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return walkError(dir, path, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !d.Type().IsRegular() {
				return nil
			}

			key, err := s.effectiveKey(path)
			if err != nil {
				return err
			}
			entry, ok, err := s.fileEntry(key, d)
			if err != nil {
				return err
			}
			if ok && !yield(entry, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			var classified *storage.BackendError
			if !errors.As(err, &classified) {
				err = classify("list", dir, err)
			}
			yield(storage.ListEntry{}, err)
		}
	}
}

// Only the listing root may come back absent. A subtree that cannot be read
// fails the listing instead of cutting it short.
func walkError(dir, path string, err error) error {
	if path == dir {
		return err
	}
	return storage.NewBackendError("list", path, storage.OutcomeOtherError, err)
}

// A file removed between the directory read and the stat is skipped
func (s *FileSystemStorage) fileEntry(key string, d fs.DirEntry) (storage.ListEntry, bool, error) {
	info, err := d.Info()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ListEntry{}, false, nil
		}
		return storage.ListEntry{}, false, classify("stat", key, err)
	}
	return storage.ListEntry{Key: key, Size: info.Size(), LastModified: info.ModTime()}, true, nil
}

func (s *FileSystemStorage) OpenReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		classified := classify("open", key, err)
		if storage.IsAbsent(classified) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, classified
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classify("stat", key, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a file", storage.ErrNotFound, key)
	}
	return f, nil
}

func (s *FileSystemStorage) SaveFile(ctx context.Context, key, sourcePath string, policy storage.HandleExisting, sink storage.ProgressSink) (storage.SaveResult, error) {
	return storage.SaveFromPath(ctx, s, key, sourcePath, policy, sink)
}

func (s *FileSystemStorage) SaveStream(ctx context.Context, key string, r io.Reader, size int64, policy storage.HandleExisting, sink storage.ProgressSink) (storage.SaveResult, error) {
	if r == nil {
		return storage.SaveResult{Key: key}, fmt.Errorf("%w: source stream must not be nil", storage.ErrInvalidArgument)
	}
	dest, err := s.pathFor(key)
	if err != nil {
		return storage.SaveResult{Key: key}, err
	}

	result, proceed, err := storage.BeginSave(key, policy, func() (bool, error) {
		return s.Exists(ctx, key)
	})
	if !proceed {
		return result, err
	}

	s.logger.Debug("Writing file", "key", key, "path", dest, "size", size)
	if err := writeAtomic(ctx, dest, storage.NewProgressReader(r, key, size, sink)); err != nil {
		s.logger.Error("Failed to write file", "key", key, "error", err)
		return storage.SaveFailed(key, classify("write", key, err), "failed to write file"), nil
	}
	return storage.SaveSucceeded(key), nil
}

// Streams r into a temp file beside dest, then renames it into place
func writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cabinet-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, werr := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	cerr := tmp.Close()
	if werr != nil {
		os.Remove(tmpPath)
		return werr
	}
	if cerr != nil {
		os.Remove(tmpPath)
		return cerr
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Aborts a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Move renames in place. Renames across devices fall back to copy then delete.
func (s *FileSystemStorage) Move(ctx context.Context, sourceKey, destKey string, policy storage.HandleExisting) (storage.MoveResult, error) {
	result := storage.MoveResult{SourceKey: sourceKey, DestKey: destKey}
	if err := storage.ValidateKey("source key", sourceKey); err != nil {
		return result, err
	}
	if err := storage.ValidateKey("destination key", destKey); err != nil {
		return result, err
	}
	if err := storage.RequireOverwrite("move", policy); err != nil {
		return result, err
	}

	src, err := s.pathFor(sourceKey)
	if err != nil {
		return result, err
	}
	dst, err := s.pathFor(destKey)
	if err != nil {
		return result, err
	}

	s.logger.Debug("Moving file", "source", sourceKey, "destination", destKey)

	info, err := os.Stat(src)
	if err != nil {
		return storage.MoveFailed(sourceKey, destKey, classify("stat", sourceKey, err), "source is not accessible"), nil
	}
	if !info.Mode().IsRegular() {
		return storage.MoveFailed(sourceKey, destKey, storage.NewBackendError("move", sourceKey, storage.OutcomeNotFound, errors.New("not a regular file")), "source is not a file"), nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return storage.MoveFailed(sourceKey, destKey, classify("mkdir", destKey, err), "failed to create destination directory"), nil
	}

	err = os.Rename(src, dst)
	if err == nil {
		result.Success = true
		return result, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return storage.MoveFailed(sourceKey, destKey, classify("rename", sourceKey, err), "failed to rename"), nil
	}

	s.logger.Debug("Rename crosses devices, copying instead", "source", sourceKey)
	return storage.CopyThenDelete(ctx, sourceKey, destKey,
		func(ctx context.Context) error {
			in, err := os.Open(src)
			if err != nil {
				return classify("open", sourceKey, err)
			}
			defer in.Close()
			return classify("write", destKey, writeAtomic(ctx, dst, in))
		},
		func(ctx context.Context) error {
			return classify("delete", sourceKey, os.Remove(src))
		},
	), nil
}

// Deleting a missing file succeeds
func (s *FileSystemStorage) Delete(ctx context.Context, key string) (storage.DeleteResult, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return storage.DeleteResult{Key: key}, err
	}

	s.logger.Debug("Deleting file", "key", key)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storage.DeleteFailed(key, classify("delete", key, err), "failed to delete file"), nil
	}
	return storage.DeleteResult{Key: key, Success: true}, nil
}

func (s *FileSystemStorage) Usage(ctx context.Context) (int64, error) {
	return storage.TotalSize(ctx, s, "")
}
