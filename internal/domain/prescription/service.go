package prescription

import (
	"context"
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

// Add validates and stores a new pending prescription. The repository
// assigns the queue number; the internal id is independent of it.
func (s *Service) Add(ctx context.Context, p *Prescription) (uuid.UUID, error) {
	if p.PatientName == "" {
		return uuid.Nil, fmt.Errorf("patient_name is required")
	}
	if len(p.Medicines) == 0 {
		return uuid.Nil, fmt.Errorf("at least one medicine line is required")
	}
	for i, line := range p.Medicines {
		if line.Quantity < 1 {
			return uuid.Nil, fmt.Errorf("medicine line %d: quantity must be at least 1, got %d", i, line.Quantity)
		}
	}

	now := time.Now()
	p.ID = uuid.New()
	p.Status = StatusPending
	p.PharmacyStatus = PharmacyPending
	if p.PrescriptionDate.IsZero() {
		p.PrescriptionDate = now
	}
	p.CreatedAt = now
	p.DispensedAt = nil

	if err := s.repo.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// UpdateStatus advances the pharmacy workflow label on a pending
// prescription. Returns false when the prescription is absent or already
// dispensed.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	if !validPharmacyStatuses[status] {
		return false, fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Dispense moves a pending prescription into the dispensed collection,
// stamping the dispense time. A false return means there was nothing to
// dispense; it is not an error.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Dispense(ctx, id, time.Now())
}

func (s *Service) Pending(ctx context.Context) ([]*Prescription, error) {
	return s.repo.Pending(ctx)
}

func (s *Service) Dispensed(ctx context.Context) ([]*Prescription, error) {
	return s.repo.Dispensed(ctx)
}

// ByID searches both collections.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// ClearAll is an administrative reset: both collections emptied and the
// queue counter back to its starting value.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.repo.ClearAll(ctx)
}
