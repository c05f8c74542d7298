package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

var errConnRefused = errors.New("dial tcp: connection refused")

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *Entry) error { return errConnRefused }
func (failingRepo) FindByIdentity(context.Context, string, string, string, string) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) GetByQueueNo(context.Context, string) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) ListStage(context.Context, string) ([]*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) MoveToDoctor(context.Context, string, time.Time) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) MoveToPharmacy(context.Context, string, json.RawMessage, time.Time) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) Complete(context.Context, string, time.Time) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) UpdateStatus(context.Context, string, string, StatusUpdate) (*Entry, error) {
	return nil, errConnRefused
}
func (failingRepo) Stats(context.Context) (*Stats, error) { return nil, errConnRefused }
func (failingRepo) ClearAll(context.Context) error        { return errConnRefused }

func newLocal(t *testing.T) Repository {
	t.Helper()
	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	repo, err := NewRepoLocal(store)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	return repo
}

func TestFallback_WorkflowSurvivesPrimaryOutage(t *testing.T) {
	svc := NewService(NewRepoFallback(failingRepo{}, newLocal(t), zerolog.Nop()))
	ctx := context.Background()

	result, err := svc.AddStudentToReception(ctx, intake("Alice", "alice@uni.test"))
	if err != nil {
		t.Fatalf("intake via fallback: %v", err)
	}
	if _, err := svc.MoveToDoctor(ctx, result.Entry.QueueNo); err != nil {
		t.Fatalf("move via fallback: %v", err)
	}

	// The fallback mirror enforces the same duplicate invariant.
	second, err := svc.AddStudentToReception(ctx, intake("Alice", "alice@uni.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.IsDuplicate {
		t.Error("expected no duplicate flag once the entry moved past reception")
	}
	if second.ElsewhereStage != StageDoctor {
		t.Errorf("expected a doctor-stage note, got %q", second.ElsewhereStage)
	}
}

func TestFallback_DomainErrorsPassThrough(t *testing.T) {
	local := newLocal(t)
	// Seed the mirror so a fallback would find the entry if wrongly used.
	local.Insert(context.Background(), &Entry{Stage: StageReception, StudentName: "Alice", Email: "alice@uni.test"})

	healthy := newLocal(t)
	repo := NewRepoFallback(healthy, local, zerolog.Nop())

	if _, err := repo.GetByQueueNo(context.Background(), "Q001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from the primary, got %v", err)
	}
}
