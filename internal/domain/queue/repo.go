package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no entry matches the queue number in the
	// expected stage.
	ErrNotFound = errors.New("queue entry not found")
	// ErrDuplicate is returned by Insert when the patient already has a
	// reception entry. The insert is atomic; callers re-read the existing
	// entry, they never race a check against it.
	ErrDuplicate = errors.New("duplicate queue entry")
)

// Repository owns the four stage collections. Transitions are explicit
// single operations so that, on either backing store, an entry is never
// observable in two stages or none.
type Repository interface {
	// Insert adds a reception entry, assigning its display queue number.
	// Returns ErrDuplicate when an entry matching the patient's identity
	// (email, nic or medical record id; empty fields never match) already
	// exists in reception.
	Insert(ctx context.Context, e *Entry) error
	// FindByIdentity looks for an entry matching any non-empty identity
	// field. stage narrows the search; the empty string searches all
	// stages. Returns ErrNotFound on no match.
	FindByIdentity(ctx context.Context, stage, email, nic, medicalRecordID string) (*Entry, error)
	GetByQueueNo(ctx context.Context, queueNo string) (*Entry, error)
	ListStage(ctx context.Context, stage string) ([]*Entry, error)

	MoveToDoctor(ctx context.Context, queueNo string, at time.Time) (*Entry, error)
	MoveToPharmacy(ctx context.Context, queueNo string, prescription json.RawMessage, at time.Time) (*Entry, error)
	Complete(ctx context.Context, queueNo string, at time.Time) (*Entry, error)

	UpdateStatus(ctx context.Context, stage, queueNo string, upd StatusUpdate) (*Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	ClearAll(ctx context.Context) error
}
