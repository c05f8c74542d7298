package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no medicine exists for the given id.
var ErrNotFound = errors.New("medicine not found")

// Repository stores the medicine collection. Query helpers (low stock,
// expired, search) are pure functions in the service layered over List.
type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Medicine, error)
	// DecrementQuantities reduces each referenced medicine by the line
	// quantity, floored at zero, stamping last_updated. Sufficiency is the
	// caller's precondition; the floor keeps stock non-negative regardless.
	DecrementQuantities(ctx context.Context, lines []DispenseLine, now time.Time) error
}
