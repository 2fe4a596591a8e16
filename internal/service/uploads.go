package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sci-com/scicom-api/internal/media"
)

type preparedUpload struct {
	reader      io.Reader
	size        int64
	contentType string
	extension   string
}

func prepareImageForUpload(ctx context.Context, processor media.Processor, upload media.Upload, maxDimension int) (*preparedUpload, error) {
	result, err := processor.Process(ctx, upload, maxDimension)
	if err != nil {
		return nil, uploadError(err)
	}
	ext := result.Extension
	if ext == "" {
		ext, _ = media.ImageExtension(result.ContentType)
	}
	return &preparedUpload{
		reader:      bytes.NewReader(result.Bytes),
		size:        int64(len(result.Bytes)),
		contentType: result.ContentType,
		extension:   ext,
	}, nil
}

func prepareDocumentForUpload(upload media.Upload, maxBytes int64) (*preparedUpload, error) {
	data, err := media.ReadDocument(upload, maxBytes)
	if err != nil {
		return nil, uploadError(err)
	}
	return &preparedUpload{
		reader:      bytes.NewReader(data),
		size:        int64(len(data)),
		contentType: "application/pdf",
		extension:   ".pdf",
	}, nil
}

func uploadError(err error) error {
	var tooLarge *media.ErrTooLarge
	switch {
	case errors.Is(err, media.ErrUnsupportedImage), errors.Is(err, media.ErrNotPDF), errors.Is(err, media.ErrEmpty):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}
