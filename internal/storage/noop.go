package storage

import (
	"context"
)

// NoopStore reports the backend as unavailable for every call.
type NoopStore struct{}

// Put always fails with ErrUnavailable.
func (NoopStore) Put(ctx context.Context, input PutInput) (*PutResult, error) {
	return nil, ErrUnavailable
}

// Delete always fails with ErrUnavailable.
func (NoopStore) Delete(ctx context.Context, externalID string) error {
	return ErrUnavailable
}
