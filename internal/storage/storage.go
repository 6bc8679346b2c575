package storage

import (
	"context"
	"time"
)

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

// URLIssuer hands out time-limited URLs for direct object access.
type URLIssuer interface {
	IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	IssueDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectWriter stores whole objects.
type ObjectWriter interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}
