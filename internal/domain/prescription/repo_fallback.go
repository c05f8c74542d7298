package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// repoFallback replays failed primary operations on the local mirror. Domain
// errors (ErrNotFound) pass through untouched; only transport failures
// trigger the fallback.
type repoFallback struct {
	primary  Repository
	fallback Repository
	logger   zerolog.Logger
}

// NewRepoFallback composes a primary and a fallback repository.
func NewRepoFallback(primary, fallback Repository, logger zerolog.Logger) Repository {
	return &repoFallback{primary: primary, fallback: fallback, logger: logger}
}

func (r *repoFallback) transportError(op string, err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	r.logger.Warn().Err(err).Str("op", op).Msg("prescription primary store failed, using local fallback")
	return true
}

func (r *repoFallback) Create(ctx context.Context, p *Prescription) error {
	err := r.primary.Create(ctx, p)
	if r.transportError("create", err) {
		return r.fallback.Create(ctx, p)
	}
	return err
}

func (r *repoFallback) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := r.primary.GetByID(ctx, id)
	if r.transportError("get", err) {
		return r.fallback.GetByID(ctx, id)
	}
	return p, err
}

func (r *repoFallback) Pending(ctx context.Context) ([]*Prescription, error) {
	items, err := r.primary.Pending(ctx)
	if r.transportError("pending", err) {
		return r.fallback.Pending(ctx)
	}
	return items, err
}

func (r *repoFallback) Dispensed(ctx context.Context) ([]*Prescription, error) {
	items, err := r.primary.Dispensed(ctx)
	if r.transportError("dispensed", err) {
		return r.fallback.Dispensed(ctx)
	}
	return items, err
}

func (r *repoFallback) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	ok, err := r.primary.UpdateStatus(ctx, id, status)
	if r.transportError("update_status", err) {
		return r.fallback.UpdateStatus(ctx, id, status)
	}
	return ok, err
}

func (r *repoFallback) Dispense(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	ok, err := r.primary.Dispense(ctx, id, at)
	if r.transportError("dispense", err) {
		return r.fallback.Dispense(ctx, id, at)
	}
	return ok, err
}

func (r *repoFallback) ClearAll(ctx context.Context) error {
	err := r.primary.ClearAll(ctx)
	if r.transportError("clear_all", err) {
		return r.fallback.ClearAll(ctx)
	}
	return err
}
