// File: pkg/storage/model.go
package storage

import (
	"fmt"
	"time"

	"cabinet/pkg/common"
)

type ItemType int

const (
	File ItemType = iota
	Directory
)

func (t ItemType) String() string {
	if t == Directory {
		return "directory"
	}
	return "file"
}

// ItemInfo describes an item found by a listing or an existence probe
type ItemInfo struct {
	Key      string
	Exists   bool
	Type     ItemType
	Provider common.Provider
	// Zero for directories and for items that do not exist
	Size            int64
	LastModifiedUTC time.Time
}

// Items compare by key only
func (i ItemInfo) SameKey(other ItemInfo) bool {
	return i.Key == other.Key
}

type SaveResult struct {
	Key           string
	Success       bool
	AlreadyExists bool
	Err           error
	Message       string
}

func (r SaveResult) ErrorMessage() string {
	return errorMessage(r.Message, r.Err)
}

type MoveResult struct {
	SourceKey     string
	DestKey       string
	Success       bool
	AlreadyExists bool
	Err           error
	Message       string
}

func (r MoveResult) ErrorMessage() string {
	return errorMessage(r.Message, r.Err)
}

type DeleteResult struct {
	Key     string
	Success bool
	Err     error
	Message string
}

func (r DeleteResult) ErrorMessage() string {
	return errorMessage(r.Message, r.Err)
}

func SaveSucceeded(key string) SaveResult {
	return SaveResult{Key: key, Success: true}
}

// The write was skipped because the item exists and the policy said Skip
func SaveSkipped(key string) SaveResult {
	return SaveResult{Key: key, Success: true, AlreadyExists: true}
}

func SaveFailed(key string, err error, message string) SaveResult {
	return SaveResult{Key: key, Err: err, Message: message}
}

func MoveFailed(sourceKey, destKey string, err error, message string) MoveResult {
	return MoveResult{SourceKey: sourceKey, DestKey: destKey, Err: err, Message: message}
}

func DeleteFailed(key string, err error, message string) DeleteResult {
	return DeleteResult{Key: key, Err: err, Message: message}
}

func (r SaveResult) Succeeded() bool { return r.Success }
func (r MoveResult) Succeeded() bool { return r.Success }
func (r DeleteResult) Succeeded() bool { return r.Success }

// AllSucceeded reports whether every result in a batch succeeded
func AllSucceeded[R interface{ Succeeded() bool }](results []R) bool {
	for _, r := range results {
		if !r.Succeeded() {
			return false
		}
	}
	return true
}

func errorMessage(message string, err error) string {
	if message != "" {
		if err != nil {
			return fmt.Sprintf("%s: %v", message, err)
		}
		return message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "N/A"
	}
	if bytes == 0 {
		return "0 B"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	if exp >= len(sizes) {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizes[exp])
}
