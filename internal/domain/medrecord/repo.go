package medrecord

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("medical record not found")

type Repository interface {
	Save(ctx context.Context, r *Record) error
	GetByRecordID(ctx context.Context, recordID string) (*Record, error)
	// GetByEmail returns the newest record for the email.
	GetByEmail(ctx context.Context, email string) (*Record, error)
}
