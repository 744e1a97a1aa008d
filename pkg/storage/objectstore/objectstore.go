// File: pkg/storage/objectstore/objectstore.go
package objectstore

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"cabinet/pkg/common"
	"cabinet/pkg/storage"
)

type Options struct {
	Provider  common.Provider
	KeyPrefix string
	Delimiter string
	Logger    *slog.Logger
}

// Provider implements storage.Storage over a flat object store. Hierarchy is
// simulated with the configured delimiter and moves are copy then delete.
type Provider struct {
	client   Client
	keys     storage.KeySpace
	provider common.Provider
	logger   *slog.Logger
}

var _ storage.Storage = (*Provider)(nil)

func New(client Client, opts Options) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: object store client is required", storage.ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client:   client,
		keys:     storage.NewKeySpace(opts.KeyPrefix, opts.Delimiter),
		provider: opts.Provider,
		logger:   logger,
	}, nil
}

func (p *Provider) ProviderType() common.Provider {
	return p.provider
}

func (p *Provider) KeySpace() storage.KeySpace {
	return p.keys
}

func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	effective, err := p.keys.Resolve(key)
	if err != nil {
		return false, err
	}

	_, err = p.client.Head(ctx, effective)
	switch {
	case err == nil:
		return true, nil
	case storage.IsAbsent(err):
		p.logger.Debug("Object not visible", "key", effective, "outcome", storage.OutcomeOf(err))
		return false, nil
	default:
		return false, err
	}
}

func (p *Provider) GetItem(ctx context.Context, key string) (storage.ItemInfo, error) {
	effective, err := p.keys.Resolve(key)
	if err != nil {
		return storage.ItemInfo{}, err
	}

	item := storage.ItemInfo{Key: key, Provider: p.provider}
	info, err := p.client.Head(ctx, effective)
	if err != nil {
		if storage.IsAbsent(err) {
			return item, nil
		}
		return item, err
	}

	item.Exists = true
	item.Size = info.Size
	item.LastModifiedUTC = info.LastModified.UTC()
	return item, nil
}

func (p *Provider) GetItems(ctx context.Context, prefix string, recursive bool) iter.Seq2[storage.ItemInfo, error] {
	req := storage.ListRequest{
		Keys:      p.keys,
		Prefix:    p.keys.SearchPrefix(prefix),
		Recursive: recursive,
		Provider:  p.provider,
	}

	delimiter := ""
	if !recursive {
		delimiter = p.keys.Delimiter()
	}
	p.logger.Debug("Listing objects", "prefix", req.Prefix, "delimiter", delimiter)

	return storage.FoldEntries(req, p.client.List(ctx, req.Prefix, delimiter))
}

func (p *Provider) ListKeys(ctx context.Context, prefix string, recursive bool) iter.Seq2[string, error] {
	return storage.ItemKeys(p.GetItems(ctx, prefix, recursive))
}

func (p *Provider) OpenReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	effective, err := p.keys.Resolve(key)
	if err != nil {
		return nil, err
	}

	r, err := p.client.Download(ctx, effective)
	if err != nil {
		if storage.IsAbsent(err) {
			return nil, fmt.Errorf("%w: %s: %v", storage.ErrNotFound, key, err)
		}
		return nil, err
	}
	return r, nil
}

func (p *Provider) SaveFile(ctx context.Context, key, sourcePath string, policy storage.HandleExisting, sink storage.ProgressSink) (storage.SaveResult, error) {
	return storage.SaveFromPath(ctx, p, key, sourcePath, policy, sink)
}

func (p *Provider) SaveStream(ctx context.Context, key string, r io.Reader, size int64, policy storage.HandleExisting, sink storage.ProgressSink) (storage.SaveResult, error) {
	if r == nil {
		return storage.SaveResult{Key: key}, fmt.Errorf("%w: source stream must not be nil", storage.ErrInvalidArgument)
	}
	effective, err := p.keys.Resolve(key)
	if err != nil {
		return storage.SaveResult{Key: key}, err
	}

	result, proceed, err := storage.BeginSave(key, policy, func() (bool, error) {
		return p.Exists(ctx, key)
	})
	if !proceed {
		return result, err
	}

	p.logger.Debug("Uploading object", "key", effective, "size", size)
	if err := p.client.Upload(ctx, effective, storage.NewProgressReader(r, key, size, sink), size); err != nil {
		p.logger.Error("Failed to upload object", "key", effective, "error", err)
		return storage.SaveFailed(key, err, "upload failed"), nil
	}
	return storage.SaveSucceeded(key), nil
}

func (p *Provider) Move(ctx context.Context, sourceKey, destKey string, policy storage.HandleExisting) (storage.MoveResult, error) {
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

	src, err := p.keys.Resolve(sourceKey)
	if err != nil {
		return result, err
	}
	dst, err := p.keys.Resolve(destKey)
	if err != nil {
		return result, err
	}
	p.logger.Debug("Moving object", "source", src, "destination", dst)

	// Copying an object onto itself and deleting the source would lose it
	if src == dst {
		if _, err := p.client.Head(ctx, src); err != nil {
			return storage.MoveFailed(sourceKey, destKey, err, "source is not accessible"), nil
		}
		result.Success = true
		return result, nil
	}

	moved := storage.CopyThenDelete(ctx, sourceKey, destKey,
		func(ctx context.Context) error { return p.client.Copy(ctx, src, dst) },
		func(ctx context.Context) error { return p.client.Delete(ctx, src) },
	)
	if !moved.Success {
		p.logger.Error("Failed to move object", "source", src, "destination", dst, "error", moved.Err)
	}
	return moved, nil
}

// A missing object counts as deleted
func (p *Provider) Delete(ctx context.Context, key string) (storage.DeleteResult, error) {
	effective, err := p.keys.Resolve(key)
	if err != nil {
		return storage.DeleteResult{Key: key}, err
	}

	p.logger.Debug("Deleting object", "key", effective)
	if err := p.client.Delete(ctx, effective); err != nil && storage.OutcomeOf(err) != storage.OutcomeNotFound {
		return storage.DeleteFailed(key, err, "delete failed"), nil
	}
	return storage.DeleteResult{Key: key, Success: true}, nil
}
