package upload

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collegecompass/api/internal/storage"
)

// Draft carries the validated fields of a pending record write, plus the
// identity used for duplicate detection.
type Draft interface {
	Validate() error
	DedupKey() (owner uuid.UUID, title string)
}

// Entity exposes the blob reference currently persisted on a record.
type Entity interface {
	BlobRef() Blob
}

// Repository persists one entity type on behalf of the coordinator.
//
// Update receives a nil blob when the caller uploaded no replacement file;
// the stored reference must then be preserved untouched. Get, Update and
// Delete return ErrNotFound when the record does not exist.
type Repository[E Entity, D Draft] interface {
	HasRecent(ctx context.Context, owner uuid.UUID, title string, window time.Duration) (bool, error)
	Create(ctx context.Context, draft D, blob Blob) (E, error)
	Get(ctx context.Context, id uuid.UUID) (E, error)
	Update(ctx context.Context, id uuid.UUID, draft D, blob *Blob) (E, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Coordinator drives the upload-then-persist workflow for one entity type.
type Coordinator[E Entity, D Draft] struct {
	repo        Repository[E, D]
	router      *Router
	dedupWindow time.Duration
	log         zerolog.Logger
}

func NewCoordinator[E Entity, D Draft](repo Repository[E, D], router *Router, dedupWindow time.Duration, log zerolog.Logger) *Coordinator[E, D] {
	return &Coordinator[E, D]{repo: repo, router: router, dedupWindow: dedupWindow, log: log}
}

// Create validates the draft, rejects rapid duplicate submissions, uploads
// the file and persists the record. When the record write fails after the
// upload succeeded, the fresh blob is deleted best-effort and the failure is
// reported as a PersistError.
func (c *Coordinator[E, D]) Create(ctx context.Context, draft D, file *File) (E, error) {
	var zero E

	if err := draft.Validate(); err != nil {
		return zero, err
	}
	if file == nil || len(file.Data) == 0 {
		return zero, NewValidationError("file", "a file is required")
	}

	owner, title := draft.DedupKey()
	recent, err := c.repo.HasRecent(ctx, owner, title, c.dedupWindow)
	if err != nil {
		return zero, &PersistError{Err: err}
	}
	if recent {
		return zero, ErrDuplicateSubmission
	}

	store, folder := c.router.Route(file.Name)
	blob, err := c.put(ctx, store, folder, file)
	if err != nil {
		return zero, err
	}

	created, err := c.repo.Create(ctx, draft, blob)
	if err != nil {
		return zero, &PersistError{Err: err, CleanupFailed: !c.deleteBlob(ctx, store, blob)}
	}
	return created, nil
}

// Update replaces the record's fields and, when a file is provided, its
// attachment. The old blob is deleted only after the record write succeeds;
// a failed record write triggers the same compensation as Create.
func (c *Coordinator[E, D]) Update(ctx context.Context, id uuid.UUID, draft D, file *File) (E, error) {
	var zero E

	if err := draft.Validate(); err != nil {
		return zero, err
	}

	existing, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, err
		}
		return zero, &PersistError{Err: err}
	}

	var (
		newBlob  *Blob
		newStore storage.BlobStore
	)
	if file != nil && len(file.Data) > 0 {
		store, folder := c.router.Route(file.Name)
		blob, err := c.put(ctx, store, folder, file)
		if err != nil {
			return zero, err
		}
		newBlob, newStore = &blob, store
	}

	updated, err := c.repo.Update(ctx, id, draft, newBlob)
	if err != nil {
		if newBlob != nil {
			return zero, &PersistError{Err: err, CleanupFailed: !c.deleteBlob(ctx, newStore, *newBlob)}
		}
		if errors.Is(err, ErrNotFound) {
			return zero, err
		}
		return zero, &PersistError{Err: err}
	}

	if newBlob != nil {
		if old := existing.BlobRef(); !old.IsZero() && old.ExternalID != newBlob.ExternalID {
			store, _ := c.router.Route(old.Name)
			if !c.deleteBlob(ctx, store, old) {
				c.log.Warn().
					Str("external_id", old.ExternalID).
					Msg("replaced blob could not be deleted")
			}
		}
	}
	return updated, nil
}

// Delete removes the record's blob first and the record second. A blob that
// cannot be deleted does not block the record delete; a record delete that
// fails after the blob is gone is a hard failure.
func (c *Coordinator[E, D]) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistError{Err: err}
	}

	if blob := existing.BlobRef(); !blob.IsZero() {
		store, _ := c.router.Route(blob.Name)
		if !c.deleteBlob(ctx, store, blob) {
			c.log.Warn().
				Str("external_id", blob.ExternalID).
				Msg("blob delete failed, removing record anyway")
		}
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistError{Err: err}
	}
	return nil
}

func (c *Coordinator[E, D]) put(ctx context.Context, store storage.BlobStore, folder string, file *File) (Blob, error) {
	res, err := store.Put(ctx, storage.PutInput{
		Folder:      folder,
		Name:        file.Name,
		Body:        file.Data,
		ContentType: file.ContentType,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return Blob{}, err
		}
		return Blob{}, &UploadError{Err: err}
	}
	return Blob{
		ExternalID:  res.ExternalID,
		URL:         res.URL,
		Name:        file.Name,
		Size:        file.Size,
		ContentType: file.ContentType,
	}, nil
}

func (c *Coordinator[E, D]) deleteBlob(ctx context.Context, store storage.BlobStore, blob Blob) bool {
	if err := store.Delete(ctx, blob.ExternalID); err != nil {
		c.log.Error().Err(err).
			Str("external_id", blob.ExternalID).
			Msg("compensating blob delete failed")
		return false
	}
	return true
}
