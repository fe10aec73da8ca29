package ports

import (
	"context"
	"io"
)

// Asset is an uploaded file on its way to the asset host.
type Asset struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AssetHost stores binary images and returns stable URLs.
type AssetHost interface {
	Upload(ctx context.Context, folder string, asset Asset) (string, error)
	Delete(ctx context.Context, url string) error
}

// AssetEvictor deletes replaced assets in the background. Evictions for one
// user run in the order they were submitted; failures are never reported back.
type AssetEvictor interface {
	Evict(ctx context.Context, userID, url string)
}
