package service

import (
	"context"
	"io"

	"github.com/sci-com/scicom-api/internal/media"
)

type stubImageProcessor struct {
	output      []byte
	contentType string
	err         error

	calls   int
	last    media.Upload
	lastMax int
}

func (s *stubImageProcessor) Process(ctx context.Context, upload media.Upload, maxDimension int) (*media.Result, error) {
	s.calls++
	s.last = upload
	s.lastMax = maxDimension
	if s.err != nil {
		return nil, s.err
	}
	if upload.Reader != nil {
		_, _ = io.Copy(io.Discard, upload.Reader)
	}
	ct := s.contentType
	if ct == "" {
		ct = "image/png"
	}
	ext, _ := media.ImageExtension(ct)
	return &media.Result{
		Bytes:       append([]byte(nil), s.output...),
		ContentType: ct,
		Extension:   ext,
		Resized:     true,
	}, nil
}
