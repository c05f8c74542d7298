package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

const blobKey = "medicines"

type repoLocal struct {
	store *localstore.Store
	mu    sync.Mutex
	items []*Medicine
}

// NewRepoLocal returns the fallback medicine repository, mirrored to a local
// JSON blob. A missing or corrupt blob falls back to the seed dataset.
func NewRepoLocal(store *localstore.Store) (Repository, error) {
	r := &repoLocal{store: store}

	var items []*Medicine
	found, err := store.Load(blobKey, &items)
	if err != nil {
		return nil, err
	}
	if !found {
		items = SeedMedicines()
		if err := store.Save(blobKey, items); err != nil {
			return nil, err
		}
	}
	r.items = items
	return r, nil
}

// persist writes the whole collection back. Callers hold r.mu.
func (r *repoLocal) persist() error {
	return r.store.Save(blobKey, r.items)
}

func (r *repoLocal) Create(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *m
	r.items = append(r.items, &clone)
	return r.persist()
}

func (r *repoLocal) GetByID(_ context.Context, id uuid.UUID) (*Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.items {
		if m.ID == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *repoLocal) Update(_ context.Context, m *Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.items {
		if existing.ID == m.ID {
			clone := *m
			r.items[i] = &clone
			return r.persist()
		}
	}
	return ErrNotFound
}

func (r *repoLocal) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.items {
		if existing.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return r.persist()
		}
	}
	return nil
}

func (r *repoLocal) List(_ context.Context) ([]*Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Medicine, len(r.items))
	for i, m := range r.items {
		clone := *m
		out[i] = &clone
	}
	return out, nil
}

func (r *repoLocal) DecrementQuantities(_ context.Context, lines []DispenseLine, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		for _, m := range r.items {
			if m.ID == line.MedicineID {
				m.Quantity -= line.Quantity
				if m.Quantity < 0 {
					m.Quantity = 0
				}
				m.LastUpdated = now
				break
			}
		}
	}
	return r.persist()
}

// SeedMedicines is the fixed dataset used when the fallback blob is missing
// or unreadable.
func SeedMedicines() []*Medicine {
	now := time.Now()
	mk := func(name, dosage, category string, qty, min int, expiryDays int) *Medicine {
		return &Medicine{
			ID:          uuid.New(),
			Name:        name,
			Dosage:      dosage,
			Quantity:    qty,
			MinStock:    min,
			Category:    category,
			Expiry:      now.AddDate(0, 0, expiryDays),
			BatchNumber: "SEED",
			AddedBy:     "system",
			AddedDate:   now,
			LastUpdated: now,
		}
	}
	return []*Medicine{
		mk("Paracetamol", "500mg", "Analgesic", 120, 30, 365),
		mk("Amoxicillin", "250mg", "Antibiotic", 80, 20, 240),
		mk("Cetirizine", "10mg", "Antihistamine", 60, 15, 300),
		mk("Ibuprofen", "400mg", "Analgesic", 90, 25, 400),
		mk("Omeprazole", "20mg", "Antacid", 50, 10, 200),
	}
}
