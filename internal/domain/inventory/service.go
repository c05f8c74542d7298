package inventory

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

// Add validates and stores a new medicine, assigning its id and creation
// metadata. Returns the new id.
func (s *Service) Add(ctx context.Context, m *Medicine) (uuid.UUID, error) {
	if m.Name == "" {
		return uuid.Nil, fmt.Errorf("name is required")
	}
	if m.Quantity < 0 {
		return uuid.Nil, fmt.Errorf("quantity must not be negative, got %d", m.Quantity)
	}
	if m.MinStock < 0 {
		return uuid.Nil, fmt.Errorf("min_stock must not be negative, got %d", m.MinStock)
	}

	now := time.Now()
	m.ID = uuid.New()
	if m.AddedBy == "" {
		m.AddedBy = "unknown"
	}
	m.AddedDate = now
	m.LastUpdated = now
	if err := s.repo.Create(ctx, m); err != nil {
		return uuid.Nil, err
	}
	return m.ID, nil
}

// Update merges the non-nil fields of in into the stored record and stamps
// last_updated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in *UpdateInput) (*Medicine, error) {
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative, got %d", *in.Quantity)
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		return nil, fmt.Errorf("min_stock must not be negative, got %d", *in.MinStock)
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		m.Name = *in.Name
	}
	if in.Dosage != nil {
		m.Dosage = *in.Dosage
	}
	if in.Quantity != nil {
		m.Quantity = *in.Quantity
	}
	if in.MinStock != nil {
		m.MinStock = *in.MinStock
	}
	if in.Category != nil {
		m.Category = *in.Category
	}
	if in.Expiry != nil {
		m.Expiry = *in.Expiry
	}
	if in.BatchNumber != nil {
		m.BatchNumber = *in.BatchNumber
	}
	m.LastUpdated = time.Now()

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the medicine; an absent id is a safe no-op.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Medicine, error) {
	return s.repo.List(ctx)
}

// DecrementForDispense reduces stock for every line, floored at zero.
// Sufficiency must already have been validated by the dispense workflow;
// this operation never rejects on insufficient stock.
func (s *Service) DecrementForDispense(ctx context.Context, lines []DispenseLine) error {
	for _, line := range lines {
		if line.Quantity < 1 {
			return fmt.Errorf("dispense quantity must be at least 1, got %d", line.Quantity)
		}
	}
	return s.repo.DecrementQuantities(ctx, lines, time.Now())
}

// -- Query helpers: pure functions over the current collection --

func (s *Service) filter(ctx context.Context, keep func(*Medicine) bool) ([]*Medicine, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Medicine
	for _, m := range items {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// LowStock returns medicines at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]*Medicine, error) {
	return s.filter(ctx, func(m *Medicine) bool { return m.Quantity <= m.MinStock })
}

// Expired returns medicines whose expiry date has passed.
func (s *Service) Expired(ctx context.Context) ([]*Medicine, error) {
	now := time.Now()
	return s.filter(ctx, func(m *Medicine) bool { return m.StockStatusAt(now) == StatusExpired })
}

// NearExpiry returns medicines expiring within the next 30 days.
func (s *Service) NearExpiry(ctx context.Context) ([]*Medicine, error) {
	now := time.Now()
	return s.filter(ctx, func(m *Medicine) bool { return m.StockStatusAt(now) == StatusNearExpiry })
}

// ByCategory returns medicines in the given category (exact, case-insensitive).
func (s *Service) ByCategory(ctx context.Context, category string) ([]*Medicine, error) {
	return s.filter(ctx, func(m *Medicine) bool { return strings.EqualFold(m.Category, category) })
}

// Search matches a case-insensitive substring over name, category and dosage.
func (s *Service) Search(ctx context.Context, term string) ([]*Medicine, error) {
	term = strings.ToLower(term)
	return s.filter(ctx, func(m *Medicine) bool {
		return strings.Contains(strings.ToLower(m.Name), term) ||
			strings.Contains(strings.ToLower(m.Category), term) ||
			strings.Contains(strings.ToLower(m.Dosage), term)
	})
}

// Status aggregates the inventory snapshot for dashboards and the monitor.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	st := &Status{TotalMedicines: len(items), GeneratedAt: now}
	for _, m := range items {
		st.TotalQuantity += m.Quantity
		switch m.StockStatusAt(now) {
		case StatusExpired:
			st.Expired++
		case StatusNearExpiry:
			st.NearExpiry++
		case StatusLowStock:
			st.LowStock++
		}
	}
	return st, nil
}

// Alerts derives the active alert list from the current collection. Alert IDs
// are stable per medicine and condition so acknowledgements survive re-polls.
func (s *Service) Alerts(ctx context.Context) ([]Alert, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var alerts []Alert
	for _, m := range items {
		switch m.StockStatusAt(now) {
		case StatusExpired:
			alerts = append(alerts, Alert{
				ID:           m.ID.String() + ":" + AlertExpired,
				Type:         AlertExpired,
				Severity:     SeverityCritical,
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Message:      fmt.Sprintf("%s expired on %s", m.Name, m.Expiry.Format("2006-01-02")),
				CreatedAt:    now,
			})
		case StatusNearExpiry:
			alerts = append(alerts, Alert{
				ID:           m.ID.String() + ":" + AlertNearExpiry,
				Type:         AlertNearExpiry,
				Severity:     SeverityWarning,
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Message:      fmt.Sprintf("%s expires on %s", m.Name, m.Expiry.Format("2006-01-02")),
				CreatedAt:    now,
			})
		}
		// Low stock is reported independently of expiry status: a medicine
		// can need reordering and be near expiry at the same time.
		if m.Quantity <= m.MinStock {
			alerts = append(alerts, Alert{
				ID:           m.ID.String() + ":" + AlertLowStock,
				Type:         AlertLowStock,
				Severity:     SeverityWarning,
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Message:      fmt.Sprintf("%s stock %d is at or below minimum %d", m.Name, m.Quantity, m.MinStock),
				CreatedAt:    now,
			})
		}
	}
	return alerts, nil
}
