package wizard

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/berguardian/core"
)

type (
	// File is one file of an upload batch.
	File struct {
		Name string
		Size int64
		Type string // MIME type
		Open func() (io.ReadCloser, error)
	}

	// Uploader stores a file and returns its durable URL.
	Uploader interface {
		Upload(ctx context.Context, file File) (url string, err error)
	}
)

// UploadBatch uploads files in parallel. It is all-or-nothing: the first failure cancels the
// uploads still in flight and no attachment is returned.
func UploadBatch(ctx context.Context, up Uploader, files []File, now time.Time) ([]Attachment, error) {
	atts := make([]Attachment, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		file := files[i]
		g.Go(func() error {
			url, err := up.Upload(gctx, file)
			if err != nil {
				return err
			}
			atts[i] = Attachment{
				Name:       file.Name,
				URL:        url,
				Size:       file.Size,
				Type:       file.Type,
				UploadedAt: now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.NewRemoteError("upload", err)
	}
	return atts, nil
}

// AttachFiles uploads files and appends them to the file upload field at key.
// On failure the returned state holds no attachment of the batch and notify is called once.
func (e *Engine) AttachFiles(ctx context.Context, state FormState, key string, up Uploader, files []File, notify func(error)) FormState {
	fail := func(err error) FormState {
		if notify != nil {
			notify(err)
		}
		return state.Clone()
	}

	f, ok := e.cfg.Field(key)
	if !ok {
		return fail(ErrUnknownField)
	}
	if f.Kind != KindFileUpload {
		return fail(ErrNotFileUpload)
	}
	if len(files) == 0 {
		return state.Clone()
	}

	atts, err := UploadBatch(ctx, up, files, e.now())
	if err != nil {
		return fail(err)
	}
	next := state.Clone()
	next[key] = append(next.Attachments(key), atts...)
	return next
}
