package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// repoFallback tries the primary repository and replays the same logical
// operation on the fallback mirror when the primary fails with a transport
// error. Results are shaped identically on both paths, so callers stay
// agnostic to which one served them. Domain errors (ErrNotFound) come back
// unchanged and do not trigger the fallback.
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
	r.logger.Warn().Err(err).Str("op", op).Msg("inventory primary store failed, using local fallback")
	return true
}

func (r *repoFallback) Create(ctx context.Context, m *Medicine) error {
	err := r.primary.Create(ctx, m)
	if r.transportError("create", err) {
		return r.fallback.Create(ctx, m)
	}
	return err
}

func (r *repoFallback) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := r.primary.GetByID(ctx, id)
	if r.transportError("get", err) {
		return r.fallback.GetByID(ctx, id)
	}
	return m, err
}

func (r *repoFallback) Update(ctx context.Context, m *Medicine) error {
	err := r.primary.Update(ctx, m)
	if r.transportError("update", err) {
		return r.fallback.Update(ctx, m)
	}
	return err
}

func (r *repoFallback) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.primary.Delete(ctx, id)
	if r.transportError("delete", err) {
		return r.fallback.Delete(ctx, id)
	}
	return err
}

func (r *repoFallback) List(ctx context.Context) ([]*Medicine, error) {
	items, err := r.primary.List(ctx)
	if r.transportError("list", err) {
		return r.fallback.List(ctx)
	}
	return items, err
}

func (r *repoFallback) DecrementQuantities(ctx context.Context, lines []DispenseLine, now time.Time) error {
	err := r.primary.DecrementQuantities(ctx, lines, now)
	if r.transportError("decrement", err) {
		return r.fallback.DecrementQuantities(ctx, lines, now)
	}
	return err
}
