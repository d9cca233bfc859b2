package interfaces

import (
	"context"
	"net/http"
)

type UploadClient interface {
	UploadVoucherFile(ctx context.Context, path string) (map[string]any, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
