package medrecord

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

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
	r.logger.Warn().Err(err).Str("op", op).Msg("medical record primary store failed, using local fallback")
	return true
}

func (r *repoFallback) Save(ctx context.Context, rec *Record) error {
	err := r.primary.Save(ctx, rec)
	if r.transportError("save", err) {
		return r.fallback.Save(ctx, rec)
	}
	return err
}

func (r *repoFallback) GetByRecordID(ctx context.Context, recordID string) (*Record, error) {
	rec, err := r.primary.GetByRecordID(ctx, recordID)
	if r.transportError("get_by_record_id", err) {
		return r.fallback.GetByRecordID(ctx, recordID)
	}
	return rec, err
}

func (r *repoFallback) GetByEmail(ctx context.Context, email string) (*Record, error) {
	rec, err := r.primary.GetByEmail(ctx, email)
	if r.transportError("get_by_email", err) {
		return r.fallback.GetByEmail(ctx, email)
	}
	return rec, err
}
