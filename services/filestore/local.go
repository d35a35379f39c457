// Package filestore keeps uploaded attachments on the local disk, served back under a base URL.
package filestore

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/wizard"
)

var ErrTooLarge = errors.New("file exceeds the maximum upload size")

type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64 // 0: unlimited
}

var _ wizard.Uploader = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(conf core.UploadConfig) (*LocalStore, error) {
	if err := os.MkdirAll(conf.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &LocalStore{
		dir:     conf.Dir,
		baseURL: strings.TrimSuffix(conf.BaseURL, "/"),
		maxSize: conf.MaxSize,
	}, nil
}

// Upload copies file under a fresh name, keeping its extension, and returns its URL.
// A partially written file is removed.
func (s *LocalStore) Upload(ctx context.Context, file wizard.File) (string, error) {
	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", file.Name)
	}
	defer func() { _ = src.Close() }()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Name))
	fp := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating upload")
	}

	var rdr io.Reader = &ctxReader{ctx: ctx, r: src}
	if s.maxSize > 0 {
		rdr = io.LimitReader(rdr, s.maxSize+1)
	}
	n, err := io.Copy(dst, rdr)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(fp)
		return "", errors.Wrapf(err, "storing %s", file.Name)
	}
	return s.baseURL + "/" + path.Join("uploads", url.PathEscape(name)), nil
}

// ctxReader stops reading once ctx is done, so a cancelled batch does not finish its copies.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
