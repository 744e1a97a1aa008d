// File: pkg/storage/listing.go
package storage

import (
	"iter"
	"strings"
	"time"

	"cabinet/pkg/common"
)

// ListEntry is a raw listing record in the backend's key space.
// CommonPrefix marks a folded group of deeper keys.
type ListEntry struct {
	Key          string
	CommonPrefix bool
	Size         int64
	LastModified time.Time
}

type ListRequest struct {
	Keys KeySpace
	// Backend search prefix, as returned by KeySpace.SearchPrefix
	Prefix    string
	Recursive bool
	Provider  common.Provider
}

// FoldEntries turns raw backend entries into caller-facing items.
//
// Recursive requests yield every file below the prefix. Direct-child requests
// yield files with no further delimiter plus one Directory item per child
// group, whether the backend folded the group into a common prefix or returned
// the deeper keys individually. Absent outcomes end the sequence quietly.
func FoldEntries(req ListRequest, entries iter.Seq2[ListEntry, error]) iter.Seq2[ItemInfo, error] {
	return func(yield func(ItemInfo, error) bool) {
		delim := req.Keys.Delimiter()
		seenDirs := make(map[string]struct{})

		for entry, err := range entries {
			if err != nil {
				if !IsAbsent(err) {
					yield(ItemInfo{}, err)
				}
				return
			}

			rel, ok := strings.CutPrefix(entry.Key, req.Prefix)
			if !ok || rel == "" {
				continue
			}

			if req.Recursive {
				// Zero-byte "dir/" placeholders are not files
				if entry.CommonPrefix || strings.HasSuffix(rel, delim) {
					continue
				}
				if !yield(fileItem(req, entry), nil) {
					return
				}
				continue
			}

			dir, _, nested := strings.Cut(rel, delim)
			if !nested && !entry.CommonPrefix {
				if !yield(fileItem(req, entry), nil) {
					return
				}
				continue
			}
			if dir == "" {
				continue
			}
			if _, dup := seenDirs[dir]; dup {
				continue
			}
			seenDirs[dir] = struct{}{}

			item := ItemInfo{
				Key:      req.Keys.Strip(req.Prefix + dir),
				Exists:   true,
				Type:     Directory,
				Provider: req.Provider,
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func fileItem(req ListRequest, entry ListEntry) ItemInfo {
	return ItemInfo{
		Key:             req.Keys.Strip(entry.Key),
		Exists:          true,
		Type:            File,
		Provider:        req.Provider,
		Size:            entry.Size,
		LastModifiedUTC: entry.LastModified.UTC(),
	}
}

// ItemKeys projects a listing onto its keys
func ItemKeys(items iter.Seq2[ItemInfo, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for item, err := range items {
			if !yield(item.Key, err) || err != nil {
				return
			}
		}
	}
}

// CollectItems drains a listing, stopping at the first error
func CollectItems(items iter.Seq2[ItemInfo, error]) ([]ItemInfo, error) {
	var out []ItemInfo
	for item, err := range items {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
