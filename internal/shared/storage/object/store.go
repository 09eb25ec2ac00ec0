package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary payloads.
// The signing engine only reads (Open); Save exists for the document-producing
// side of the system and for tests that seed payloads.
type ObjectStore interface {
	Save(ctx context.Context, documentID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
