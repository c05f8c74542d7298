package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no prescription exists for the given id.
var ErrNotFound = errors.New("prescription not found")

// Repository owns the two disjoint prescription collections and the
// monotonic queue-number counter. Create assigns the queue number from the
// counter; callers never compute one themselves.
type Repository interface {
	// Create stores p as pending, assigning its queue number from the
	// serialized counter. Newest prescriptions list first.
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Pending(ctx context.Context) ([]*Prescription, error)
	Dispensed(ctx context.Context) ([]*Prescription, error)
	// UpdateStatus sets both status fields on a pending prescription.
	// Dispensed prescriptions are never re-mutated; returns false then.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error)
	// Dispense atomically moves a pending prescription to the dispensed
	// collection, stamping the dispense time. Returns false when the
	// prescription is absent or already dispensed. No reader ever observes
	// the entry in both collections or neither.
	Dispense(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// ClearAll empties both collections and resets the counter.
	ClearAll(ctx context.Context) error
}
