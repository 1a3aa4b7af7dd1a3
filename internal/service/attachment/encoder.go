// Package attachment turns uploaded file content into a self-contained
// FileAttachment whose URL is a base64 data URI.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/jwalitptl/dental-admin/internal/model"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

type Encoder struct {
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewEncoder returns an encoder rejecting content above maxBytes; 0 means no
// limit.
func NewEncoder(maxBytes int64) *Encoder {
	return &Encoder{maxBytes: maxBytes, now: time.Now, newID: uuid.NewString}
}

// Encode reads r to the end. When contentType is empty it is detected from
// the content.
func (e *Encoder) Encode(ctx context.Context, name, contentType string, r io.Reader) (model.FileAttachment, error) {
	if err := ctx.Err(); err != nil {
		return model.FileAttachment{}, apperrors.NewFileReadFailure(name, err)
	}

	src := r
	if e.maxBytes > 0 {
		src = io.LimitReader(r, e.maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: src}); err != nil {
		return model.FileAttachment{}, apperrors.NewFileReadFailure(name, err)
	}
	if e.maxBytes > 0 && int64(buf.Len()) > e.maxBytes {
		return model.FileAttachment{}, apperrors.NewBadRequest(
			fmt.Sprintf("file %q exceeds the %d byte limit", name, e.maxBytes), nil)
	}

	content := buf.Bytes()
	if contentType == "" {
		contentType = mimetype.Detect(content).String()
	}

	return model.FileAttachment{
		ID:         model.AttachmentIDPrefix + e.newID(),
		Name:       name,
		URL:        DataURI(contentType, content),
		Type:       contentType,
		Size:       int64(len(content)),
		UploadedAt: e.now().UTC(),
	}, nil
}

// EncodeFile encodes a file from disk, guessing its type from the content.
func (e *Encoder) EncodeFile(ctx context.Context, path string) (model.FileAttachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.FileAttachment{}, apperrors.NewFileReadFailure(path, err)
	}
	defer f.Close()
	return e.Encode(ctx, filepath.Base(path), "", f)
}

// DataURI renders content as data:<mime>;base64,<payload>.
func DataURI(contentType string, content []byte) string {
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(content)))
	sb.WriteString("data:")
	sb.WriteString(contentType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(content))
	return sb.String()
}

// ctxReader stops a long copy once the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
