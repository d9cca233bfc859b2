package interfaces

import "context"

// StorageService mirrors stored files to object storage.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ContentStore writes attachment bytes to disk and returns the stored path.
type ContentStore interface {
	Store(ctx context.Context, data []byte, originalName string) (string, error)
}
