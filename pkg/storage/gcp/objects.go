// File: pkg/storage/gcp/objects.go
package gcp

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"cabinet/pkg/storage"
	"cabinet/pkg/storage/objectstore"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Adapts a bucket handle to the flat object store contract
type gcsClient struct {
	bucket *gcpstorage.BucketHandle
	logger *slog.Logger
}

var _ objectstore.Client = (*gcsClient)(nil)

func newGCSClient(bucket *gcpstorage.BucketHandle, logger *slog.Logger) *gcsClient {
	return &gcsClient{bucket: bucket, logger: logger}
}

func (c *gcsClient) Head(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	attrs, err := c.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return objectstore.ObjectInfo{}, classify("head", key, err)
	}
	return mapObjectInfo(attrs), nil
}

func (c *gcsClient) List(ctx context.Context, prefix, delimiter string) iter.Seq2[storage.ListEntry, error] {
	return func(yield func(storage.ListEntry, error) bool) {
		c.logger.Debug("Starting GCS object listing", "prefix", prefix, "delimiter", delimiter)

		query := &gcpstorage.Query{
			Prefix:    prefix,
			Delimiter: delimiter,
		}
		if err := query.SetAttrSelection([]string{"Name", "Size", "Updated"}); err != nil {
			yield(storage.ListEntry{}, classify("list", prefix, err))
			return
		}

		it := c.bucket.Objects(ctx, query)
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(storage.ListEntry{}, classify("list", prefix, err))
				return
			}
			if !yield(mapListEntry(attrs), nil) {
				return
			}
		}
	}
}

func (c *gcsClient) Copy(ctx context.Context, sourceKey, destKey string) error {
	src := c.bucket.Object(sourceKey)
	_, err := c.bucket.Object(destKey).CopierFrom(src).Run(ctx)
	return classify("copy", sourceKey, err)
}

func (c *gcsClient) Delete(ctx context.Context, key string) error {
	return classify("delete", key, c.bucket.Object(key).Delete(ctx))
}

// Cancelling the writer's context is how a partial upload is abandoned
func (c *gcsClient) Upload(ctx context.Context, key string, r io.Reader, size int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := c.bucket.Object(key).NewWriter(ctx)
	if size >= 0 && size < googleapi.DefaultUploadChunkSize {
		// Small objects go up in a single request
		w.ChunkSize = 0
	}

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		w.Close()
		return classify("upload", key, err)
	}
	return classify("upload", key, w.Close())
}

func (c *gcsClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := c.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify("download", key, err)
	}
	return r, nil
}

// The owning GCPStorage closes the shared client
func (c *gcsClient) Close() error {
	return nil
}
