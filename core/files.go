package core

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

const MaxUploadSize int64 = 50 << 20 // 50 MiB

var (
	ErrFileTooLarge        = errors.New("file exceeds the 50 MiB limit")
	ErrUnsupportedFileType = errors.New("only images (jpeg, png, webp, gif) and PDFs are allowed")
)

// StoredFile describes an object written to the FileStore.
type StoredFile struct {
	Path     string
	MimeType string
	Size     int64
}

// FileStore is any private object storage able to hand out short-lived download URLs.
type FileStore interface {
	Put(ctx context.Context, path string, r io.Reader) (StoredFile, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
}
