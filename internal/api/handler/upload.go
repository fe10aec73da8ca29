package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const sniffLen = 512

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// uploadLimits bounds a single uploaded file.
type uploadLimits struct {
	maxBytes int64
}

// formAsset opens the multipart file under field. A missing file yields a nil
// asset and no error; callers decide whether the file is required. The
// returned closer must be called once the asset has been consumed.
func (l uploadLimits) formAsset(c echo.Context, field string) (*ports.Asset, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, domain.Validation("invalid multipart form: %v", err)
	}
	if l.maxBytes > 0 && fh.Size > l.maxBytes {
		return nil, func() {}, domain.Validation("%s exceeds the %d byte limit", field, l.maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s: %w", field, err)
	}
	closer := func() { _ = f.Close() }

	contentType, err := sniffImage(f)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	if !allowedImageTypes[contentType] {
		closer()
		return nil, func() {}, domain.Validation("%s must be a jpeg, png, webp or gif image", field)
	}

	return &ports.Asset{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, closer, nil
}

// sniffImage detects the content type from the file header and rewinds the file.
func sniffImage(f multipart.File) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}
