package medrecord

import (
	"context"
	"sync"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

const blobKey = "medical_records"

type repoLocal struct {
	store *localstore.Store
	mu    sync.Mutex
	items []*Record
}

// NewRepoLocal returns the fallback medical record repository.
func NewRepoLocal(store *localstore.Store) (Repository, error) {
	r := &repoLocal{store: store}
	if _, err := store.Load(blobKey, &r.items); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *repoLocal) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	// Newest first keeps GetByEmail cheap.
	r.items = append([]*Record{&cp}, r.items...)
	return r.store.Save(blobKey, r.items)
}

func (r *repoLocal) GetByRecordID(_ context.Context, recordID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.items {
		if rec.RecordID == recordID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *repoLocal) GetByEmail(_ context.Context, email string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.items {
		if rec.Email == email {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
