// File: pkg/storage/aws/client.go
package aws

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"cabinet/pkg/storage"
	"cabinet/pkg/storage/objectstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// The subset of *s3.Client the adapter uses
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ s3API = (*s3.Client)(nil)

type s3Client struct {
	api    s3API
	bucket string
	logger *slog.Logger
}

var _ objectstore.Client = (*s3Client)(nil)

func newS3Client(api s3API, bucket string, logger *slog.Logger) *s3Client {
	return &s3Client{api: api, bucket: bucket, logger: logger}
}

func (c *s3Client) Head(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return objectstore.ObjectInfo{}, classify("head", key, err)
	}
	return objectstore.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Pages through ListObjectsV2. Each page's objects and common prefixes are
// merged back into one lexically ordered run.
func (c *s3Client) List(ctx context.Context, prefix, delimiter string) iter.Seq2[storage.ListEntry, error] {
	return func(yield func(storage.ListEntry, error) bool) {
		input := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		if delimiter != "" {
			input.Delimiter = aws.String(delimiter)
		}

		paginator := s3.NewListObjectsV2Paginator(c.api, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(storage.ListEntry{}, classify("list", prefix, err))
				return
			}
			c.logger.Debug("Fetched S3 listing page", "prefix", prefix, "objects", len(page.Contents), "prefixes", len(page.CommonPrefixes))

			for _, entry := range mergePage(page) {
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

func mergePage(page *s3.ListObjectsV2Output) []storage.ListEntry {
	entries := make([]storage.ListEntry, 0, len(page.Contents)+len(page.CommonPrefixes))
	objects, prefixes := page.Contents, page.CommonPrefixes

	for len(objects) > 0 || len(prefixes) > 0 {
		if len(prefixes) == 0 || (len(objects) > 0 && aws.ToString(objects[0].Key) < aws.ToString(prefixes[0].Prefix)) {
			obj := objects[0]
			objects = objects[1:]
			entries = append(entries, storage.ListEntry{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
			continue
		}
		entries = append(entries, storage.ListEntry{Key: aws.ToString(prefixes[0].Prefix), CommonPrefix: true})
		prefixes = prefixes[1:]
	}
	return entries
}

func (c *s3Client) Copy(ctx context.Context, sourceKey, destKey string) error {
	_, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(copySource(c.bucket, sourceKey)),
	})
	return classify("copy", sourceKey, err)
}

// CopySource is "bucket/key" with every key segment URL-escaped
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func (c *s3Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return classify("delete", key, err)
}

// PutObject needs a known length, so sources that cannot seek or report
// their size are spooled to a temporary file first
func (c *s3Client) Upload(ctx context.Context, key string, r io.Reader, size int64) error {
	body, ok := r.(io.ReadSeeker)
	if !ok || size < 0 {
		spooled, n, cleanup, err := spool(r)
		if err != nil {
			return storage.NewBackendError("upload", key, storage.OutcomeOtherError, err)
		}
		defer cleanup()
		body, size = spooled, n
	}

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	return classify("upload", key, err)
}

// Copies r into a temp file and rewinds it. cleanup closes and removes the file.
func spool(r io.Reader) (*os.File, int64, func(), error) {
	tmp, err := os.CreateTemp("", "cabinet-s3-*")
	if err != nil {
		return nil, 0, nil, err
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	return tmp, n, cleanup, nil
}

func (c *s3Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("download", key, err)
	}
	return out.Body, nil
}

// *s3.Client holds no resources that need releasing
func (c *s3Client) Close() error {
	return nil
}
