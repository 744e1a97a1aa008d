package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"cabinet/internal/config"
	"cabinet/internal/provider/factory"
	"cabinet/pkg/storage"
	_ "cabinet/pkg/storage/filesystem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *CabinetService
	docsRoot string
	archRoot string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	docs, arch := t.TempDir(), t.TempDir()
	cfg := &config.Config{Cabinets: map[string]config.CabinetConfig{
		"docs":    {Type: "filesystem", Settings: map[string]any{"root": docs}},
		"archive": {Type: "filesystem", Settings: map[string]any{"root": arch}},
	}}
	logger := slog.New(slog.DiscardHandler)
	return fixture{
		svc:      NewCabinetService(factory.NewFactory(cfg, logger), logger),
		docsRoot: docs,
		archRoot: arch,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}

func TestUploadListDescribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "report.txt")
	writeFile(t, src, "quarterly")

	var mu sync.Mutex
	var last storage.WriteProgress
	sink := storage.ProgressFunc(func(p storage.WriteProgress) {
		mu.Lock()
		last = p
		mu.Unlock()
	})

	result, err := f.svc.Upload(ctx, "docs", "reports/q1.txt", src, storage.Overwrite, sink)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(9), last.BytesWritten)

	items, err := f.svc.ListItems(ctx, "docs", "", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "reports", items[0].Key)
	assert.Equal(t, storage.Directory, items[0].Type)

	item, err := f.svc.DescribeItem(ctx, "docs", "reports/q1.txt")
	require.NoError(t, err)
	assert.True(t, item.Exists)
	assert.Equal(t, int64(9), item.Size)

	ok, err := f.svc.Exists(ctx, "docs", "reports/q1.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownCabinet(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListItems(context.Background(), "photos", "", true)
	assert.ErrorIs(t, err, factory.ErrUnknownCabinet)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(f.docsRoot, "a", "b.txt"), "hello")

	dest := filepath.Join(t.TempDir(), "out", "b.txt")
	n, err := f.svc.Download(ctx, "docs", "a/b.txt", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = f.svc.Download(ctx, "docs", "missing.txt", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMoveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(f.docsRoot, "old.txt"), "data")

	moved, err := f.svc.Move(ctx, "docs", "old.txt", "new/name.txt", storage.Overwrite)
	require.NoError(t, err)
	assert.True(t, moved.Success)
	assert.FileExists(t, filepath.Join(f.docsRoot, "new", "name.txt"))

	_, err = f.svc.Move(ctx, "docs", "new/name.txt", "other.txt", storage.Skip)
	assert.ErrorIs(t, err, storage.ErrNotImplemented)

	deleted, err := f.svc.Delete(ctx, "docs", "new/name.txt")
	require.NoError(t, err)
	assert.True(t, deleted.Success)
	assert.NoFileExists(t, filepath.Join(f.docsRoot, "new", "name.txt"))

	deleted, err = f.svc.Delete(ctx, "docs", "new/name.txt")
	require.NoError(t, err)
	assert.True(t, deleted.Success)
}

func TestUsage(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.docsRoot, "a.txt"), "12345")
	writeFile(t, filepath.Join(f.docsRoot, "sub", "b.txt"), "123")

	total, err := f.svc.Usage(context.Background(), "docs", "")
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)

	sub, err := f.svc.Usage(context.Background(), "docs", "sub")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sub)
}

func TestSaveBatch(t *testing.T) {
	f := newFixture(t)
	intake := t.TempDir()
	first := filepath.Join(intake, "one")
	second := filepath.Join(intake, "two")
	kept := filepath.Join(intake, "kept")
	writeFile(t, first, "1")
	writeFile(t, second, "22")
	writeFile(t, kept, "333")
	writeFile(t, filepath.Join(f.docsRoot, "exists.txt"), "old")

	requests := []SaveRequest{
		{Key: "one.txt", SourcePath: first, Temporary: true},
		{Key: "two.txt", SourcePath: second, Temporary: true},
		{Key: "missing.txt", SourcePath: filepath.Join(intake, "nope"), Temporary: true},
		{Key: "exists.txt", SourcePath: kept},
		{Key: "", SourcePath: kept},
	}

	results, err := f.svc.SaveBatch(context.Background(), "docs", requests, storage.Skip, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, len(requests))

	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	assert.False(t, results[2].Success)
	assert.ErrorIs(t, results[2].Err, storage.ErrNotFound)

	assert.True(t, results[3].Success)
	assert.True(t, results[3].AlreadyExists)

	assert.False(t, results[4].Success)
	assert.ErrorIs(t, results[4].Err, storage.ErrInvalidArgument)

	assert.False(t, storage.AllSucceeded(results))

	// Temporary intake files are gone whatever their outcome, others are left alone
	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
	assert.FileExists(t, kept)

	data, err := os.ReadFile(filepath.Join(f.docsRoot, "exists.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestSaveBatchUnknownCabinetStillRemovesTemporary(t *testing.T) {
	f := newFixture(t)
	tmp := filepath.Join(t.TempDir(), "upload")
	writeFile(t, tmp, "x")

	_, err := f.svc.SaveBatch(context.Background(), "nowhere", []SaveRequest{{Key: "x", SourcePath: tmp, Temporary: true}}, storage.Overwrite, 0, nil)
	assert.ErrorIs(t, err, factory.ErrUnknownCabinet)
	assert.NoFileExists(t, tmp)
}

func TestMigrate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(f.docsRoot, "keep", "a.txt"), "a")
	writeFile(t, filepath.Join(f.docsRoot, "keep", "deep", "b.txt"), "bb")
	writeFile(t, filepath.Join(f.docsRoot, "keep", "c.txt"), "new")
	writeFile(t, filepath.Join(f.docsRoot, "other.txt"), "o")
	writeFile(t, filepath.Join(f.archRoot, "keep", "c.txt"), "old")

	results, err := f.svc.Migrate(ctx, "docs", "archive", "keep", storage.Skip, true, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	sort.Slice(results, func(i, j int) bool { return results[i].SourceKey < results[j].SourceKey })
	for _, r := range results {
		assert.True(t, r.Success, r.SourceKey)
	}
	assert.Equal(t, "keep/c.txt", results[1].SourceKey)
	assert.True(t, results[1].AlreadyExists)

	assert.FileExists(t, filepath.Join(f.archRoot, "keep", "a.txt"))
	assert.FileExists(t, filepath.Join(f.archRoot, "keep", "deep", "b.txt"))
	assert.NoFileExists(t, filepath.Join(f.docsRoot, "keep", "a.txt"))
	assert.NoFileExists(t, filepath.Join(f.docsRoot, "keep", "deep", "b.txt"))

	// Skipped item keeps its source and the destination is untouched
	assert.FileExists(t, filepath.Join(f.docsRoot, "keep", "c.txt"))
	data, err := os.ReadFile(filepath.Join(f.archRoot, "keep", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	assert.FileExists(t, filepath.Join(f.docsRoot, "other.txt"))
	assert.NoFileExists(t, filepath.Join(f.archRoot, "other.txt"))
}

func TestMigrateThrowReportsExisting(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.docsRoot, "x.txt"), "new")
	writeFile(t, filepath.Join(f.archRoot, "x.txt"), "old")

	results, err := f.svc.Migrate(context.Background(), "docs", "archive", "", storage.Throw, true, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.True(t, results[0].AlreadyExists)
	assert.ErrorIs(t, results[0].Err, storage.ErrItemExists)
	assert.FileExists(t, filepath.Join(f.docsRoot, "x.txt"))
}

func TestMigrateIntoSameStoreIsRejected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	cfg := &config.Config{Cabinets: map[string]config.CabinetConfig{
		"docs":   {Type: "filesystem", Settings: map[string]any{"root": root}},
		"mirror": {Type: "FileSystem", Settings: map[string]any{"root": root}},
	}}
	logger := slog.New(slog.DiscardHandler)
	svc := NewCabinetService(factory.NewFactory(cfg, logger), logger)

	for _, pair := range [][2]string{{"docs", "docs"}, {"docs", " DOCS "}, {"docs", "mirror"}} {
		results, err := svc.Migrate(context.Background(), pair[0], pair[1], "", storage.Overwrite, true, 1)
		assert.ErrorIs(t, err, storage.ErrInvalidArgument, pair)
		assert.Empty(t, results)
	}

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}
