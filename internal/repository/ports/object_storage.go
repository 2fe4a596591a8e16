package ports

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	ContentType string
	Size        int64
}

type ObjectStorage interface {
	Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error)
	Open(ctx context.Context, bucket, objectName string) (io.ReadCloser, ObjectInfo, error)
	Remove(ctx context.Context, bucket, objectName string) error
}
