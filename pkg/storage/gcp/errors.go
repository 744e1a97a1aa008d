// File: pkg/storage/gcp/errors.go
package gcp

import (
	"errors"
	"net/http"

	"cabinet/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Maps a GCS client error onto the shared outcome vocabulary
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return storage.NewBackendError(op, key, outcomeOf(err), err)
}

func outcomeOf(err error) storage.Outcome {
	if errors.Is(err, gcpstorage.ErrObjectNotExist) || errors.Is(err, gcpstorage.ErrBucketNotExist) {
		return storage.OutcomeNotFound
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return storage.OutcomeNotFound
		case http.StatusForbidden:
			return storage.OutcomeForbidden
		case http.StatusUnauthorized:
			return storage.OutcomeUnauthorized
		}
	}
	return storage.OutcomeOtherError
}
