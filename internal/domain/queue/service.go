package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddStudentToReception performs reception intake. Insertion is atomic
// against the duplicate check: when the patient already has a reception
// entry, that entry comes back tagged IsDuplicate and nothing new is
// created. A match in a later stage is informational only and never blocks
// the intake.
func (s *Service) AddStudentToReception(ctx context.Context, rec IntakeRecord) (*IntakeResult, error) {
	if rec.StudentName == "" {
		return nil, fmt.Errorf("student_name is required")
	}

	e := &Entry{
		ID:              uuid.New(),
		Stage:           StageReception,
		StudentName:     rec.StudentName,
		StudentID:       rec.StudentID,
		Email:           rec.Email,
		NIC:             rec.NIC,
		Phone:           rec.Phone,
		MedicalRecordID: rec.MedicalRecordID,
		Status:          StatusWaiting,
		Priority:        PriorityNormal,
		AddedTime:       time.Now(),
	}

	err := s.repo.Insert(ctx, e)
	if errors.Is(err, ErrDuplicate) {
		existing, findErr := s.repo.FindByIdentity(ctx, StageReception, rec.Email, rec.NIC, rec.MedicalRecordID)
		if findErr != nil {
			return nil, findErr
		}
		s.stampWait(existing)
		return &IntakeResult{
			Entry:       existing,
			IsDuplicate: true,
			Message:     fmt.Sprintf("%s is already in the reception queue as %s", existing.StudentName, existing.QueueNo),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &IntakeResult{Entry: e}
	// Non-blocking note when the same patient is already past reception.
	if elsewhere, findErr := s.findElsewhere(ctx, rec); findErr == nil && elsewhere != nil {
		result.ElsewhereStage = elsewhere.Stage
		result.Message = fmt.Sprintf("note: %s also has an entry in the %s queue (%s)",
			elsewhere.StudentName, elsewhere.Stage, elsewhere.QueueNo)
	}
	return result, nil
}

func (s *Service) findElsewhere(ctx context.Context, rec IntakeRecord) (*Entry, error) {
	for _, stage := range []string{StageDoctor, StagePharmacy, StageCompleted} {
		e, err := s.repo.FindByIdentity(ctx, stage, rec.Email, rec.NIC, rec.MedicalRecordID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, nil
}

// MoveToDoctor advances a reception entry to the doctor stage.
func (s *Service) MoveToDoctor(ctx context.Context, queueNo string) (*Entry, error) {
	return s.repo.MoveToDoctor(ctx, queueNo, time.Now())
}

// AddPrescriptionAndMoveToPharmacy advances a doctor entry to pharmacy,
// attaching the prescription payload.
func (s *Service) AddPrescriptionAndMoveToPharmacy(ctx context.Context, queueNo string, prescription json.RawMessage) (*Entry, error) {
	if len(prescription) == 0 {
		return nil, fmt.Errorf("prescription payload is required")
	}
	return s.repo.MoveToPharmacy(ctx, queueNo, prescription, time.Now())
}

// CompletePharmacy advances a pharmacy entry to completed.
func (s *Service) CompletePharmacy(ctx context.Context, queueNo string) (*Entry, error) {
	return s.repo.Complete(ctx, queueNo, time.Now())
}

// UpdateEntryStatus is an in-place merge within one stage, not a
// transition.
func (s *Service) UpdateEntryStatus(ctx context.Context, stage, queueNo string, upd StatusUpdate) (*Entry, error) {
	if _, ok := stageKeys()[stage]; !ok {
		return nil, fmt.Errorf("invalid stage: %s", stage)
	}
	e, err := s.repo.UpdateStatus(ctx, stage, queueNo, upd)
	if err != nil {
		return nil, err
	}
	s.stampWait(e)
	return e, nil
}

// ListStage returns one stage collection, wait times stamped at read time.
func (s *Service) ListStage(ctx context.Context, stage string) ([]*Entry, error) {
	if _, ok := stageKeys()[stage]; !ok {
		return nil, fmt.Errorf("invalid stage: %s", stage)
	}
	items, err := s.repo.ListStage(ctx, stage)
	if err != nil {
		return nil, err
	}
	for _, e := range items {
		s.stampWait(e)
	}
	return items, nil
}

// Get searches all stages by display queue number.
func (s *Service) Get(ctx context.Context, queueNo string) (*Entry, error) {
	e, err := s.repo.GetByQueueNo(ctx, queueNo)
	if err != nil {
		return nil, err
	}
	s.stampWait(e)
	return e, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// ClearAll empties every stage collection; administrative reset only.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.repo.ClearAll(ctx)
}

func (s *Service) stampWait(e *Entry) {
	e.WaitMinutes = int(time.Since(e.AddedTime).Minutes())
}
