// File: pkg/common/provider.go
package common

// Identifies the backend implementation behind a cabinet
type Provider string

const (
	FileSystem Provider = "filesystem"
	AmazonS3   Provider = "s3"
	GCS        Provider = "gcs"
)

func (p Provider) String() string {
	return string(p)
}
