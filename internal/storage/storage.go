package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable signals that the backend session is not ready for use.
	ErrUnavailable = errors.New("storage: backend not available")
)

// PutInput describes a single object write.
type PutInput struct {
	// Folder is the logical destination (Notes, PPT, Docs, thumbnails...).
	Folder string
	// Name is the original file name; backends derive their own unique key.
	Name         string
	Body         []byte
	ContentType  string
	CacheControl string
}

// PutResult identifies the stored object.
type PutResult struct {
	// ExternalID addresses the object for later deletion.
	ExternalID string
	// URL is the retrieval link, produced synchronously at put time.
	URL string
}

// BlobStore is the capability contract over a remote object store.
//
// Delete is idempotent: removing an object that is already gone is not an
// error, so callers can run compensation without special-casing it.
type BlobStore interface {
	Put(ctx context.Context, input PutInput) (*PutResult, error)
	Delete(ctx context.Context, externalID string) error
}
