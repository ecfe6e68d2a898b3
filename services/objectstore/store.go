// Package objectstore holds private course files: on a local afero filesystem
// served through HMAC signed URLs, or in S3 with presigned URLs.
package objectstore

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

var allowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "application/pdf"}

// New returns the store of the configured backend.
func New(conf *core.Config) (core.FileStore, error) {
	switch conf.Storage.Backend {
	case BackendFS, "":
		return NewFSStore(conf), nil
	case BackendS3:
		return NewS3Store(conf)
	default:
		return nil, errors.Errorf("unsupported storage backend %q", conf.Storage.Backend)
	}
}

// readUpload buffers r, enforcing the size limit and the allowed content types.
func readUpload(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, core.MaxUploadSize+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > core.MaxUploadSize {
		return nil, "", core.ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	for _, allowed := range allowedMimeTypes {
		if mime.Is(allowed) {
			return data, allowed, nil
		}
	}
	return nil, "", core.ErrUnsupportedFileType
}

// cleanPath rejects absolute and parent-relative object paths.
func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	if p == "" || strings.Contains(p, "..") || strings.ContainsRune(p, '\\') {
		return "", errors.Errorf("invalid object path %q", p)
	}
	return p, nil
}
