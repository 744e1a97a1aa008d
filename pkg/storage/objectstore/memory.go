// File: pkg/storage/objectstore/memory.go
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"cabinet/pkg/storage"
)

// MemoryClient is an in-process flat store. It backs tests and dry runs.
// Fail lets callers inject a per-operation failure.
type MemoryClient struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	calls   map[string]int
	now     func() time.Time

	// Returns a non-nil error to fail op ("head", "list", "copy", "delete", "upload", "download") for key
	Fail func(op, key string) error
}

type memoryObject struct {
	data     []byte
	modified time.Time
}

var _ Client = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects: make(map[string]memoryObject),
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

// Put stores data directly, bypassing call counting
func (m *MemoryClient) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: bytes.Clone(data), modified: m.now()}
}

// Keys returns every stored key in lexical order
func (m *MemoryClient) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedKeys()
}

// Calls reports how many times op was invoked
func (m *MemoryClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryClient) sortedKeys() []string {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records the call and returns an injected failure, if any
func (m *MemoryClient) begin(op, key string) error {
	m.calls[op]++
	if m.Fail != nil {
		return m.Fail(op, key)
	}
	return nil
}

func notFound(op, key string) error {
	return storage.NewBackendError(op, key, storage.OutcomeNotFound, errors.New("no such key"))
}

func (m *MemoryClient) Head(ctx context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("head", key); err != nil {
		return ObjectInfo{}, err
	}

	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, notFound("head", key)
	}
	return ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

// Snapshot of the matching keys is taken up front, like one page of a real listing
func (m *MemoryClient) List(ctx context.Context, prefix, delimiter string) iter.Seq2[storage.ListEntry, error] {
	return func(yield func(storage.ListEntry, error) bool) {
		m.mu.Lock()
		if err := m.begin("list", prefix); err != nil {
			m.mu.Unlock()
			yield(storage.ListEntry{}, err)
			return
		}

		var entries []storage.ListEntry
		seen := make(map[string]struct{})
		for _, k := range m.sortedKeys() {
			rest, ok := strings.CutPrefix(k, prefix)
			if !ok {
				continue
			}
			if delimiter != "" {
				if i := strings.Index(rest, delimiter); i >= 0 {
					common := prefix + rest[:i+len(delimiter)]
					if _, dup := seen[common]; !dup {
						seen[common] = struct{}{}
						entries = append(entries, storage.ListEntry{Key: common, CommonPrefix: true})
					}
					continue
				}
			}
			obj := m.objects[k]
			entries = append(entries, storage.ListEntry{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
		m.mu.Unlock()

		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *MemoryClient) Copy(ctx context.Context, sourceKey, destKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("copy", sourceKey); err != nil {
		return err
	}

	obj, ok := m.objects[sourceKey]
	if !ok {
		return notFound("copy", sourceKey)
	}
	m.objects[destKey] = memoryObject{data: bytes.Clone(obj.data), modified: m.now()}
	return nil
}

func (m *MemoryClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("delete", key); err != nil {
		return err
	}

	if _, ok := m.objects[key]; !ok {
		return notFound("delete", key)
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryClient) Upload(ctx context.Context, key string, r io.Reader, size int64) error {
	m.mu.Lock()
	err := m.begin("upload", key)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return storage.NewBackendError("upload", key, storage.OutcomeOtherError, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return storage.NewBackendError("upload", key, storage.OutcomeOtherError,
			fmt.Errorf("read %d bytes, expected %d", len(data), size))
	}

	m.Put(key, data)
	return nil
}

func (m *MemoryClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("download", key); err != nil {
		return nil, err
	}

	obj, ok := m.objects[key]
	if !ok {
		return nil, notFound("download", key)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

func (m *MemoryClient) Close() error {
	return nil
}
