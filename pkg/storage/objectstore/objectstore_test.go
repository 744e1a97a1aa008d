package objectstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"cabinet/pkg/common"
	"cabinet/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, prefix string) (*Provider, *MemoryClient) {
	t.Helper()
	client := NewMemoryClient()
	p, err := New(client, Options{
		Provider:  common.AmazonS3,
		KeyPrefix: prefix,
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return p, client
}

func failWith(outcome storage.Outcome, ops ...string) func(op, key string) error {
	return func(op, key string) error {
		for _, o := range ops {
			if o == op {
				return storage.NewBackendError(op, key, outcome, errors.New("injected"))
			}
		}
		return nil
	}
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestPrefixedLifecycle(t *testing.T) {
	p, client := newTestProvider(t, "folder")
	ctx := context.Background()

	res, err := p.SaveStream(ctx, "test-key", strings.NewReader("abc"), 3, storage.Overwrite, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "test-key", res.Key)
	assert.Equal(t, []string{"folder/test-key"}, client.Keys())

	ok, err := p.Exists(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, ok)

	del, err := p.Delete(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, del.Success)

	ok, err = p.Exists(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExistsOutcomes(t *testing.T) {
	ctx := context.Background()
	for _, outcome := range []storage.Outcome{storage.OutcomeNotFound, storage.OutcomeForbidden, storage.OutcomeUnauthorized} {
		p, client := newTestProvider(t, "")
		client.Put("k", []byte("x"))
		client.Fail = failWith(outcome, "head")

		ok, err := p.Exists(ctx, "k")
		require.NoError(t, err, outcome.String())
		assert.False(t, ok, outcome.String())
	}

	p, client := newTestProvider(t, "")
	client.Fail = failWith(storage.OutcomeOtherError, "head")
	_, err := p.Exists(ctx, "k")
	assert.Equal(t, storage.OutcomeOtherError, storage.OutcomeOf(err))
}

func TestListingScenario(t *testing.T) {
	p, client := newTestProvider(t, "")
	for _, k := range []string{"file.txt", "bar/one.txt", "bar/two.txt", "bar/baz/three", "foo/one.txt"} {
		client.Put(k, []byte(k))
	}
	ctx := context.Background()

	items, err := storage.CollectItems(p.GetItems(ctx, "", false))
	require.NoError(t, err)
	var files, dirs []string
	for _, i := range items {
		if i.Type == storage.Directory {
			dirs = append(dirs, i.Key)
		} else {
			files = append(files, i.Key)
		}
	}
	assert.Equal(t, []string{"file.txt"}, files)
	assert.Equal(t, []string{"bar", "foo"}, dirs)

	var keys []string
	for k, err := range p.ListKeys(ctx, "bar", true) {
		require.NoError(t, err)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"bar/baz/three", "bar/one.txt", "bar/two.txt"}, keys)
}

func TestListingMissingBucketIsEmpty(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Fail = failWith(storage.OutcomeNotFound, "list")

	items, err := storage.CollectItems(p.GetItems(context.Background(), "", true))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSaveSkipDoesNoIO(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("k", []byte("old"))

	res, err := p.SaveStream(context.Background(), "k", strings.NewReader("new"), 3, storage.Skip, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.AlreadyExists)
	assert.Zero(t, client.Calls("upload"))
}

func TestSaveThrowOnExisting(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("k", []byte("old"))

	res, err := p.SaveStream(context.Background(), "k", strings.NewReader("new"), 3, storage.Throw, nil)
	assert.ErrorIs(t, err, storage.ErrItemExists)
	assert.False(t, res.Success)
	assert.True(t, res.AlreadyExists)
	assert.Zero(t, client.Calls("upload"))
}

func TestSaveOverwriteSkipsProbe(t *testing.T) {
	p, client := newTestProvider(t, "")
	_, err := p.SaveStream(context.Background(), "k", strings.NewReader("v"), 1, storage.Overwrite, nil)
	require.NoError(t, err)
	assert.Zero(t, client.Calls("head"))
	assert.Equal(t, 1, client.Calls("upload"))
}

func TestSaveUploadFailureIsCaptured(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Fail = failWith(storage.OutcomeOtherError, "upload")

	res, err := p.SaveStream(context.Background(), "k", strings.NewReader("v"), 1, storage.Overwrite, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage(), "upload failed")
}

func TestSaveReportsProgress(t *testing.T) {
	p, _ := newTestProvider(t, "")
	var last storage.WriteProgress
	_, err := p.SaveStream(context.Background(), "k", strings.NewReader("hello"), 5, storage.Overwrite,
		storage.ProgressFunc(func(w storage.WriteProgress) { last = w }))
	require.NoError(t, err)
	assert.Equal(t, storage.WriteProgress{Key: "k", BytesWritten: 5, TotalBytes: 5}, last)
}

func TestMoveCopiesThenDeletes(t *testing.T) {
	p, client := newTestProvider(t, "ns")
	client.Put("ns/a", []byte("payload"))

	res, err := p.Move(context.Background(), "a", "b", storage.Overwrite)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, client.Calls("copy"))
	assert.Equal(t, 1, client.Calls("delete"))
	assert.Equal(t, []string{"ns/b"}, client.Keys())
}

func TestMoveCopyFailureKeepsSource(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("a", []byte("payload"))
	client.Fail = failWith(storage.OutcomeForbidden, "copy")

	res, err := p.Move(context.Background(), "a", "b", storage.Overwrite)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, storage.OutcomeForbidden, storage.OutcomeOf(res.Err))
	assert.Zero(t, client.Calls("delete"))
	assert.Equal(t, []string{"a"}, client.Keys())
}

func TestMoveOntoSameKeyKeepsObject(t *testing.T) {
	p, client := newTestProvider(t, "folder")
	client.Put("folder/a.txt", []byte("payload"))

	for _, dest := range []string{"a.txt", "/a.txt", "//a.txt"} {
		res, err := p.Move(context.Background(), "a.txt", dest, storage.Overwrite)
		require.NoError(t, err)
		assert.True(t, res.Success, dest)
		assert.Equal(t, []string{"folder/a.txt"}, client.Keys())
	}
	assert.Zero(t, client.Calls("copy"))
	assert.Zero(t, client.Calls("delete"))

	res, err := p.Move(context.Background(), "gone.txt", "/gone.txt", storage.Overwrite)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, storage.IsAbsent(res.Err))
}

func TestMoveNonOverwriteIsNotImplemented(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("a", []byte("payload"))

	for _, policy := range []storage.HandleExisting{storage.Skip, storage.Throw} {
		_, err := p.Move(context.Background(), "a", "b", policy)
		assert.ErrorIs(t, err, storage.ErrNotImplemented)
	}
	assert.Zero(t, client.Calls("copy"))
}

func TestDelete(t *testing.T) {
	p, client := newTestProvider(t, "")
	ctx := context.Background()

	res, err := p.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.True(t, res.Success)

	client.Fail = failWith(storage.OutcomeForbidden, "delete")
	res, err = p.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage())
}

func TestOpenReadStream(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("k", []byte("content"))
	ctx := context.Background()

	r, err := p.OpenReadStream(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	require.NoError(t, r.Close())
	assert.Equal(t, "content", string(data))

	_, err = p.OpenReadStream(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetItem(t *testing.T) {
	p, client := newTestProvider(t, "")
	client.Put("k", []byte("12345"))

	item, err := p.GetItem(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, item.Exists)
	assert.Equal(t, int64(5), item.Size)
	assert.Equal(t, common.AmazonS3, item.Provider)

	item, err = p.GetItem(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, item.Exists)
}

func TestContractViolations(t *testing.T) {
	p, _ := newTestProvider(t, "")
	ctx := context.Background()

	_, err := p.Exists(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	_, err = p.GetItem(ctx, "  ")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	_, err = p.SaveStream(ctx, "k", nil, 0, storage.Overwrite, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	_, err = p.Move(ctx, "a", " ", storage.Overwrite)
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	_, err = p.OpenReadStream(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
}
