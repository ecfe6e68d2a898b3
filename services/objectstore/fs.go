package objectstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/trezcool/darasa/core"
)

// FilesPrefix is the API route serving signed fs downloads.
const FilesPrefix = "/v1/files/"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrURLExpired       = errors.New("download link expired")

	nowFunc = time.Now // mockable
)

// FSStore keeps files on an afero filesystem rooted at the storage root.
type FSStore struct {
	fs     afero.Fs
	secret []byte
}

var _ core.FileStore = (*FSStore)(nil) // interface compliance check

func NewFSStore(conf *core.Config) *FSStore {
	return NewFSStoreWithFs(afero.NewBasePathFs(afero.NewOsFs(), conf.Storage.Root), conf.SecretKey)
}

// NewFSStoreWithFs is used by tests with an afero.NewMemMapFs().
func NewFSStoreWithFs(fs afero.Fs, secret string) *FSStore {
	return &FSStore{fs: fs, secret: []byte(secret)}
}

func (s *FSStore) Put(_ context.Context, p string, r io.Reader) (core.StoredFile, error) {
	p, err := cleanPath(p)
	if err != nil {
		return core.StoredFile{}, err
	}
	data, mime, err := readUpload(r)
	if err != nil {
		return core.StoredFile{}, err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating directory")
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "writing file")
	}
	return core.StoredFile{Path: p, MimeType: mime, Size: int64(len(data))}, nil
}

func (s *FSStore) sign(p string, expires int64) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = fmt.Fprintf(h, "%s\n%d", p, expires)
	return hex.EncodeToString(h.Sum(nil))
}

// SignedURL returns a relative API URL valid for ttl.
func (s *FSStore) SignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	p, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	expires := nowFunc().Add(ttl).Unix()
	q := make(url.Values)
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(p, expires))
	return FilesPrefix + p + "?" + q.Encode(), nil
}

// Verify checks the expires and sig query values of a signed URL for p.
func (s *FSStore) Verify(p, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare([]byte(s.sign(p, exp)), []byte(sig)) == 0 {
		return ErrInvalidSignature
	}
	if nowFunc().Unix() > exp {
		return ErrURLExpired
	}
	return nil
}

// Open returns the file at p, whose signature the caller has verified.
func (s *FSStore) Open(p string) (afero.File, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

func (s *FSStore) Delete(_ context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !isNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}
