package prescription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

// Blob keys. Pending and dispensed stay in separate blobs so the mirror
// matches the two-collection shape of the primary store.
const (
	pendingKey   = "prescriptions_pending"
	dispensedKey = "prescriptions_dispensed"
	counterKey   = "prescription_counter"
)

type repoLocal struct {
	store  *localstore.Store
	prefix string
	start  int64

	mu        sync.Mutex
	pending   []*Prescription
	dispensed []*Prescription
	counter   int64
}

// NewRepoLocal returns the fallback prescription repository. The counter
// starts at start when no persisted value exists.
func NewRepoLocal(store *localstore.Store, prefix string, start int64) (Repository, error) {
	r := &repoLocal{store: store, prefix: prefix, start: start, counter: start}

	if _, err := store.Load(pendingKey, &r.pending); err != nil {
		return nil, err
	}
	if _, err := store.Load(dispensedKey, &r.dispensed); err != nil {
		return nil, err
	}
	var counter int64
	found, err := store.Load(counterKey, &counter)
	if err != nil {
		return nil, err
	}
	if found {
		r.counter = counter
	}
	return r, nil
}

func clone(p *Prescription) *Prescription {
	cp := *p
	cp.Medicines = append([]MedicineLine(nil), p.Medicines...)
	if p.DispensedAt != nil {
		at := *p.DispensedAt
		cp.DispensedAt = &at
	}
	return &cp
}

func cloneAll(items []*Prescription) []*Prescription {
	out := make([]*Prescription, len(items))
	for i, p := range items {
		out[i] = clone(p)
	}
	return out
}

func (r *repoLocal) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Counter advances under the lock before anything is written, so rapid
	// double submits cannot read the same value twice.
	p.QueueNumber = fmt.Sprintf("%s%04d", r.prefix, r.counter)
	r.counter++

	r.pending = append([]*Prescription{clone(p)}, r.pending...)
	if err := r.store.Save(counterKey, r.counter); err != nil {
		return err
	}
	return r.store.Save(pendingKey, r.pending)
}

func (r *repoLocal) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pending {
		if p.ID == id {
			return clone(p), nil
		}
	}
	for _, p := range r.dispensed {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return nil, ErrNotFound
}

func (r *repoLocal) Pending(_ context.Context) ([]*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.pending), nil
}

func (r *repoLocal) Dispensed(_ context.Context) ([]*Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.dispensed), nil
}

func (r *repoLocal) UpdateStatus(_ context.Context, id uuid.UUID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pending {
		if p.ID == id {
			p.Status = status
			p.PharmacyStatus = status
			return true, r.store.Save(pendingKey, r.pending)
		}
	}
	return false, nil
}

func (r *repoLocal) Dispense(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.pending {
		if p.ID != id {
			continue
		}
		p.Status = StatusDispensed
		p.PharmacyStatus = PharmacyDispensed
		stamp := at
		p.DispensedAt = &stamp

		// Remove and prepend under the same lock; readers see the move as
		// one step.
		r.pending = append(r.pending[:i], r.pending[i+1:]...)
		r.dispensed = append([]*Prescription{p}, r.dispensed...)

		if err := r.store.Save(pendingKey, r.pending); err != nil {
			return false, err
		}
		return true, r.store.Save(dispensedKey, r.dispensed)
	}
	return false, nil
}

func (r *repoLocal) ClearAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = nil
	r.dispensed = nil
	r.counter = r.start

	if err := r.store.Save(pendingKey, r.pending); err != nil {
		return err
	}
	if err := r.store.Save(dispensedKey, r.dispensed); err != nil {
		return err
	}
	return r.store.Save(counterKey, r.counter)
}
