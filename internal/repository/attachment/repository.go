package attachment

import (
	"context"
	"io"
)

// ImageJPEG is the content type avatars are persisted with when the caller
// does not supply one.
const ImageJPEG = "image/jpeg"

// Meta describes a stored attachment.
type Meta struct {
	ContentType string
	Size        int64
}

// Store persists and serves raw attachment bytes, such as contact avatars.
type Store interface {
	Persist(ctx context.Context, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, id string) (io.ReadCloser, Meta, error)
}
