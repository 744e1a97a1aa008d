// File: pkg/storage/gcp/mappers.go
package gcp

import (
	"cabinet/pkg/storage"
	"cabinet/pkg/storage/objectstore"

	gcpstorage "cloud.google.com/go/storage"
)

// Maps GCP SDK object attributes to the object store model
func mapObjectInfo(attrs *gcpstorage.ObjectAttrs) objectstore.ObjectInfo {
	if attrs == nil {
		return objectstore.ObjectInfo{}
	}
	return objectstore.ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		LastModified: attrs.Updated,
	}
}

// If attrs.Prefix is set, it's a common prefix (directory)
func mapListEntry(attrs *gcpstorage.ObjectAttrs) storage.ListEntry {
	if attrs.Prefix != "" {
		return storage.ListEntry{Key: attrs.Prefix, CommonPrefix: true}
	}
	return storage.ListEntry{
		Key:          attrs.Name,
		Size:         attrs.Size,
		LastModified: attrs.Updated,
	}
}
