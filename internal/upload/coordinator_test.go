package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collegecompass/api/internal/storage"
)

type fakeDraft struct {
	owner   uuid.UUID
	title   string
	invalid bool
}

func (d fakeDraft) Validate() error {
	if d.invalid {
		return NewValidationError("title", "title is required")
	}
	return nil
}

func (d fakeDraft) DedupKey() (uuid.UUID, string) { return d.owner, d.title }

type fakeEntity struct {
	id   uuid.UUID
	blob Blob
}

func (e fakeEntity) BlobRef() Blob { return e.blob }

type fakeRepo struct {
	recent    bool
	recentErr error

	// With trackTime set, HasRecent answers from lastCreate the way the
	// real repositories answer from created_at.
	trackTime  bool
	lastCreate time.Time

	entities map[uuid.UUID]fakeEntity

	createErr error
	updateErr error
	deleteErr error

	createdBlob *Blob
	updatedBlob *Blob
	updateCalls int
	deleteCalls int
}

func (r *fakeRepo) HasRecent(ctx context.Context, owner uuid.UUID, title string, window time.Duration) (bool, error) {
	if r.trackTime {
		return !r.lastCreate.IsZero() && r.lastCreate.After(time.Now().Add(-window)), r.recentErr
	}
	return r.recent, r.recentErr
}

func (r *fakeRepo) Create(ctx context.Context, draft fakeDraft, blob Blob) (fakeEntity, error) {
	if r.createErr != nil {
		return fakeEntity{}, r.createErr
	}
	r.createdBlob = &blob
	r.lastCreate = time.Now()
	e := fakeEntity{id: uuid.New(), blob: blob}
	if r.entities == nil {
		r.entities = map[uuid.UUID]fakeEntity{}
	}
	r.entities[e.id] = e
	return e, nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (fakeEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return fakeEntity{}, ErrNotFound
	}
	return e, nil
}

func (r *fakeRepo) Update(ctx context.Context, id uuid.UUID, draft fakeDraft, blob *Blob) (fakeEntity, error) {
	r.updateCalls++
	r.updatedBlob = blob
	if r.updateErr != nil {
		return fakeEntity{}, r.updateErr
	}
	e, ok := r.entities[id]
	if !ok {
		return fakeEntity{}, ErrNotFound
	}
	if blob != nil {
		e.blob = *blob
	}
	r.entities[id] = e
	return e, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deleteCalls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.entities[id]; !ok {
		return ErrNotFound
	}
	delete(r.entities, id)
	return nil
}

type fakeStore struct {
	putErr    error
	deleteErr error

	puts    []storage.PutInput
	deletes []string
}

func (s *fakeStore) Put(ctx context.Context, input storage.PutInput) (*storage.PutResult, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	s.puts = append(s.puts, input)
	id := uuid.NewString()
	return &storage.PutResult{ExternalID: id, URL: "https://files.test/" + id}, nil
}

func (s *fakeStore) Delete(ctx context.Context, externalID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletes = append(s.deletes, externalID)
	return nil
}

func newTestCoordinator(repo *fakeRepo, store *fakeStore) *Coordinator[fakeEntity, fakeDraft] {
	router := NewRouter(nil, Rule{Store: store, Folder: "Notes"})
	return NewCoordinator[fakeEntity, fakeDraft](repo, router, 5*time.Minute, zerolog.Nop())
}

func testFile() *File {
	return &File{Name: "algebra.pdf", Size: 4, ContentType: "application/pdf", Data: []byte("%PDF")}
}

func TestCoordinatorCreate(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	draft := fakeDraft{owner: uuid.New(), title: "Algebra"}
	created, err := coord.Create(context.Background(), draft, testFile())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one upload, got %d", len(store.puts))
	}
	if repo.createdBlob == nil || repo.createdBlob.ExternalID == "" {
		t.Fatal("record persisted without a blob reference")
	}
	if created.blob.URL != repo.createdBlob.URL {
		t.Fatalf("blob url mismatch: %q vs %q", created.blob.URL, repo.createdBlob.URL)
	}
}

func TestCoordinatorCreateInvalidDraft(t *testing.T) {
	store := &fakeStore{}
	coord := newTestCoordinator(&fakeRepo{}, store)

	_, err := coord.Create(context.Background(), fakeDraft{invalid: true}, testFile())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.puts) != 0 {
		t.Fatal("nothing should be uploaded for an invalid draft")
	}
}

func TestCoordinatorCreateMissingFile(t *testing.T) {
	coord := newTestCoordinator(&fakeRepo{}, &fakeStore{})

	_, err := coord.Create(context.Background(), fakeDraft{title: "x"}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "file" {
		t.Fatalf("expected file field, got %q", verr.Field)
	}
}

func TestCoordinatorCreateDuplicate(t *testing.T) {
	store := &fakeStore{}
	coord := newTestCoordinator(&fakeRepo{recent: true}, store)

	_, err := coord.Create(context.Background(), fakeDraft{title: "x"}, testFile())
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate submission, got %v", err)
	}
	if len(store.puts) != 0 {
		t.Fatal("duplicate must be rejected before upload")
	}
}

func TestCoordinatorCreateDuplicateWindowElapses(t *testing.T) {
	repo := &fakeRepo{trackTime: true}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	draft := fakeDraft{owner: uuid.New(), title: "Algebra"}
	if _, err := coord.Create(context.Background(), draft, testFile()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := coord.Create(context.Background(), draft, testFile()); !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate submission inside the window, got %v", err)
	}

	// Backdate the previous submission past the dedup window.
	repo.lastCreate = time.Now().Add(-10 * time.Minute)
	if _, err := coord.Create(context.Background(), draft, testFile()); err != nil {
		t.Fatalf("resubmission after the window: %v", err)
	}
	if len(store.puts) != 2 {
		t.Fatalf("expected two uploads, got %d", len(store.puts))
	}
}

func TestCoordinatorCreateCompensatesOnPersistFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	_, err := coord.Create(context.Background(), fakeDraft{title: "x"}, testFile())
	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if perr.CleanupFailed {
		t.Fatal("cleanup succeeded but was reported failed")
	}
	if len(store.deletes) != 1 {
		t.Fatalf("expected one compensating delete, got %d", len(store.deletes))
	}
}

func TestCoordinatorCreateReportsOrphanedBlob(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	store := &fakeStore{deleteErr: errors.New("delete failed")}
	coord := newTestCoordinator(repo, store)

	_, err := coord.Create(context.Background(), fakeDraft{title: "x"}, testFile())
	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if !perr.CleanupFailed {
		t.Fatal("orphaned blob not reported")
	}
}

func TestCoordinatorCreateStoreUnavailable(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeStore{putErr: storage.ErrUnavailable}
	coord := newTestCoordinator(repo, store)

	_, err := coord.Create(context.Background(), fakeDraft{title: "x"}, testFile())
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if repo.createdBlob != nil {
		t.Fatal("nothing should be persisted when the store is down")
	}
}

func TestCoordinatorUpdateWithoutFileKeepsBlob(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "keep-me", URL: "https://files.test/keep-me", Name: "old.pdf"},
	}
	repo := &fakeRepo{entities: map[uuid.UUID]fakeEntity{existing.id: existing}}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	updated, err := coord.Update(context.Background(), existing.id, fakeDraft{title: "renamed"}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updatedBlob != nil {
		t.Fatal("repository must receive a nil blob when no file is uploaded")
	}
	if updated.blob != existing.blob {
		t.Fatalf("blob reference changed: %+v vs %+v", updated.blob, existing.blob)
	}
	if len(store.puts) != 0 || len(store.deletes) != 0 {
		t.Fatal("store must not be touched without a new file")
	}
}

func TestCoordinatorUpdateReplacesBlob(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "old-id", URL: "https://files.test/old-id", Name: "old.pdf"},
	}
	repo := &fakeRepo{entities: map[uuid.UUID]fakeEntity{existing.id: existing}}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	updated, err := coord.Update(context.Background(), existing.id, fakeDraft{title: "x"}, testFile())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected one upload, got %d", len(store.puts))
	}
	if len(store.deletes) != 1 || store.deletes[0] != "old-id" {
		t.Fatalf("old blob should be deleted after the write, got %v", store.deletes)
	}
	if updated.blob.ExternalID == "old-id" {
		t.Fatal("record still references the old blob")
	}
}

func TestCoordinatorUpdateCompensatesNewBlob(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "old-id", URL: "https://files.test/old-id", Name: "old.pdf"},
	}
	repo := &fakeRepo{
		entities:  map[uuid.UUID]fakeEntity{existing.id: existing},
		updateErr: errors.New("update failed"),
	}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	_, err := coord.Update(context.Background(), existing.id, fakeDraft{title: "x"}, testFile())
	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if len(store.deletes) != 1 {
		t.Fatalf("expected one compensating delete, got %d", len(store.deletes))
	}
	if store.deletes[0] == "old-id" {
		t.Fatal("compensation must remove the new blob, not the old one")
	}
}

func TestCoordinatorUpdateNotFound(t *testing.T) {
	coord := newTestCoordinator(&fakeRepo{}, &fakeStore{})

	_, err := coord.Update(context.Background(), uuid.New(), fakeDraft{title: "x"}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCoordinatorDelete(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "blob-1", URL: "https://files.test/blob-1", Name: "a.pdf"},
	}
	repo := &fakeRepo{entities: map[uuid.UUID]fakeEntity{existing.id: existing}}
	store := &fakeStore{}
	coord := newTestCoordinator(repo, store)

	if err := coord.Delete(context.Background(), existing.id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "blob-1" {
		t.Fatalf("blob not deleted: %v", store.deletes)
	}
	if len(repo.entities) != 0 {
		t.Fatal("record not deleted")
	}
}

func TestCoordinatorDeleteContinuesOnBlobFailure(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "blob-1", URL: "https://files.test/blob-1", Name: "a.pdf"},
	}
	repo := &fakeRepo{entities: map[uuid.UUID]fakeEntity{existing.id: existing}}
	store := &fakeStore{deleteErr: errors.New("backend down")}
	coord := newTestCoordinator(repo, store)

	if err := coord.Delete(context.Background(), existing.id); err != nil {
		t.Fatalf("delete should succeed despite blob failure: %v", err)
	}
	if len(repo.entities) != 0 {
		t.Fatal("record not deleted")
	}
}

func TestCoordinatorDeleteRecordFailure(t *testing.T) {
	existing := fakeEntity{
		id:   uuid.New(),
		blob: Blob{ExternalID: "blob-1", URL: "https://files.test/blob-1", Name: "a.pdf"},
	}
	repo := &fakeRepo{
		entities:  map[uuid.UUID]fakeEntity{existing.id: existing},
		deleteErr: errors.New("delete failed"),
	}
	coord := newTestCoordinator(repo, &fakeStore{})

	err := coord.Delete(context.Background(), existing.id)
	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persist error, got %v", err)
	}
}

func TestCoordinatorDeleteNotFound(t *testing.T) {
	coord := newTestCoordinator(&fakeRepo{}, &fakeStore{})

	if err := coord.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
