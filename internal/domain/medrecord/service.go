package medrecord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save stores a new medical record, generating the human reference when the
// caller did not bring one (QR cards carry pre-printed record ids).
func (s *Service) Save(ctx context.Context, r *Record) (*Record, error) {
	if r.StudentName == "" {
		return nil, fmt.Errorf("student_name is required")
	}
	r.ID = uuid.New()
	if r.RecordID == "" {
		r.RecordID = "MR-" + strings.ToUpper(r.ID.String()[:8])
	}
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.CreatedAt = time.Now()

	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetByRecordID(ctx context.Context, recordID string) (*Record, error) {
	return s.repo.GetByRecordID(ctx, recordID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}
