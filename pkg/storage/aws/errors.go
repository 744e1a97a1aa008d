// File: pkg/storage/aws/errors.go
package aws

import (
	"errors"
	"net/http"

	"cabinet/pkg/storage"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithy "github.com/aws/smithy-go"
)

// Maps an SDK error onto the shared outcome vocabulary
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return storage.NewBackendError(op, key, outcomeOf(err), err)
}

func outcomeOf(err error) storage.Outcome {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return storage.OutcomeNotFound
		case "AccessDenied", "Forbidden", "AllAccessDisabled":
			return storage.OutcomeForbidden
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "Unauthorized":
			return storage.OutcomeUnauthorized
		}
	}

	if status, ok := httpStatusCode(err); ok {
		switch status {
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

func httpStatusCode(err error) (int, bool) {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode(), true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode(), true
	}
	return 0, false
}
