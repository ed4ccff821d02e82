package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for persisting and retrieving binary
// objects under caller-computed keys. Upload intake is owned elsewhere, so
// there is no auto-keyed save; debug-artifact keys are deterministic and
// computed by the artifact store.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
