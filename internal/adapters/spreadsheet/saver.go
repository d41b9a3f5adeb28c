package spreadsheet

import (
	"context"
	"mime"
	"net/http"
	"strconv"
)

// AttachmentSaver writes a file to an HTTP response as a download.
type AttachmentSaver struct {
	W http.ResponseWriter
}

// Save sets the download headers and writes the body.
func (s AttachmentSaver) Save(_ context.Context, filename, contentType string, data []byte) error {
	h := s.W.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	_, err := s.W.Write(data)
	return err
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, filename, contentType string, data []byte) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, filename, contentType string, data []byte) error {
	return f(ctx, filename, contentType, data)
}
