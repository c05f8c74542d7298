package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// repoFallback replays failed primary operations on the local mirror, which
// must preserve the same invariants (uniqueness within reception, forward-
// only movement). Domain errors (ErrNotFound, ErrDuplicate) pass through.
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
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return false
	}
	r.logger.Warn().Err(err).Str("op", op).Msg("queue primary store failed, using local fallback")
	return true
}

func (r *repoFallback) Insert(ctx context.Context, e *Entry) error {
	err := r.primary.Insert(ctx, e)
	if r.transportError("insert", err) {
		return r.fallback.Insert(ctx, e)
	}
	return err
}

func (r *repoFallback) FindByIdentity(ctx context.Context, stage, email, nic, medicalRecordID string) (*Entry, error) {
	e, err := r.primary.FindByIdentity(ctx, stage, email, nic, medicalRecordID)
	if r.transportError("find_by_identity", err) {
		return r.fallback.FindByIdentity(ctx, stage, email, nic, medicalRecordID)
	}
	return e, err
}

func (r *repoFallback) GetByQueueNo(ctx context.Context, queueNo string) (*Entry, error) {
	e, err := r.primary.GetByQueueNo(ctx, queueNo)
	if r.transportError("get", err) {
		return r.fallback.GetByQueueNo(ctx, queueNo)
	}
	return e, err
}

func (r *repoFallback) ListStage(ctx context.Context, stage string) ([]*Entry, error) {
	items, err := r.primary.ListStage(ctx, stage)
	if r.transportError("list", err) {
		return r.fallback.ListStage(ctx, stage)
	}
	return items, err
}

func (r *repoFallback) MoveToDoctor(ctx context.Context, queueNo string, at time.Time) (*Entry, error) {
	e, err := r.primary.MoveToDoctor(ctx, queueNo, at)
	if r.transportError("move_to_doctor", err) {
		return r.fallback.MoveToDoctor(ctx, queueNo, at)
	}
	return e, err
}

func (r *repoFallback) MoveToPharmacy(ctx context.Context, queueNo string, prescription json.RawMessage, at time.Time) (*Entry, error) {
	e, err := r.primary.MoveToPharmacy(ctx, queueNo, prescription, at)
	if r.transportError("move_to_pharmacy", err) {
		return r.fallback.MoveToPharmacy(ctx, queueNo, prescription, at)
	}
	return e, err
}

func (r *repoFallback) Complete(ctx context.Context, queueNo string, at time.Time) (*Entry, error) {
	e, err := r.primary.Complete(ctx, queueNo, at)
	if r.transportError("complete", err) {
		return r.fallback.Complete(ctx, queueNo, at)
	}
	return e, err
}

func (r *repoFallback) UpdateStatus(ctx context.Context, stage, queueNo string, upd StatusUpdate) (*Entry, error) {
	e, err := r.primary.UpdateStatus(ctx, stage, queueNo, upd)
	if r.transportError("update_status", err) {
		return r.fallback.UpdateStatus(ctx, stage, queueNo, upd)
	}
	return e, err
}

func (r *repoFallback) Stats(ctx context.Context) (*Stats, error) {
	st, err := r.primary.Stats(ctx)
	if r.transportError("stats", err) {
		return r.fallback.Stats(ctx)
	}
	return st, err
}

func (r *repoFallback) ClearAll(ctx context.Context) error {
	err := r.primary.ClearAll(ctx)
	if r.transportError("clear_all", err) {
		return r.fallback.ClearAll(ctx)
	}
	return err
}
