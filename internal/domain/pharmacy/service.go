package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uniclinic/uniclinic/internal/domain/inventory"
	"github.com/uniclinic/uniclinic/internal/domain/prescription"
	"github.com/uniclinic/uniclinic/internal/domain/queue"
)

// ErrNotPending is returned when the prescription is absent from the pending
// collection (unknown id or already dispensed).
var ErrNotPending = errors.New("prescription is not pending")

// InsufficientStockError names every medicine whose stock falls short.
// Nothing is mutated when it is returned.
type InsufficientStockError struct {
	Medicines []string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock: " + strings.Join(e.Medicines, ", ")
}

// PrescriptionStore is the slice of prescription.Service the dispense
// workflow needs.
type PrescriptionStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error)
	Dispense(ctx context.Context, id uuid.UUID) (bool, error)
}

// InventoryStore is the slice of inventory.Service the dispense workflow
// needs.
type InventoryStore interface {
	Get(ctx context.Context, id uuid.UUID) (*inventory.Medicine, error)
	DecrementForDispense(ctx context.Context, lines []inventory.DispenseLine) error
}

// QueueCompleter closes out the patient's queue entry after a dispense.
type QueueCompleter interface {
	CompletePharmacy(ctx context.Context, queueNo string) (*queue.Entry, error)
}

// Service coordinates the dispense workflow across the prescription and
// inventory stores. There is no cross-store transaction; see Dispense.
type Service struct {
	prescriptions PrescriptionStore
	inventory     InventoryStore
	queue         QueueCompleter
	logger        zerolog.Logger
}

func NewService(prescriptions PrescriptionStore, inv InventoryStore, q QueueCompleter, logger zerolog.Logger) *Service {
	return &Service{prescriptions: prescriptions, inventory: inv, queue: q, logger: logger}
}

// Result reports a completed dispense.
type Result struct {
	Prescription *prescription.Prescription `json:"prescription"`
	QueueEntry   *queue.Entry               `json:"queue_entry,omitempty"`
}

// Dispense fulfills a pending prescription: every line is checked against
// current stock before anything mutates, then stock is decremented for all
// lines and the prescription moves to dispensed. The decrement and the
// dispense are two sequential calls with no shared transaction; if the
// second fails, inventory stays decremented while the prescription stays
// pending. That window is accepted and surfaced in the returned error rather
// than hidden.
//
// queueNo, when non-empty, identifies the patient's pharmacy queue entry to
// complete afterwards; its failure never fails the dispense.
func (s *Service) Dispense(ctx context.Context, prescriptionID uuid.UUID, queueNo string) (*Result, error) {
	p, err := s.prescriptions.ByID(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			return nil, ErrNotPending
		}
		return nil, err
	}
	if !p.IsPending() {
		return nil, ErrNotPending
	}

	var short []string
	lines := make([]inventory.DispenseLine, 0, len(p.Medicines))
	for _, line := range p.Medicines {
		med, err := s.inventory.Get(ctx, line.MedicineID)
		if errors.Is(err, inventory.ErrNotFound) {
			short = append(short, line.MedicineName)
			continue
		}
		if err != nil {
			return nil, err
		}
		if med.Quantity < line.Quantity {
			short = append(short, med.Name)
			continue
		}
		lines = append(lines, inventory.DispenseLine{MedicineID: line.MedicineID, Quantity: line.Quantity})
	}
	if len(short) > 0 {
		return nil, &InsufficientStockError{Medicines: short}
	}

	if err := s.inventory.DecrementForDispense(ctx, lines); err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	ok, err := s.prescriptions.Dispense(ctx, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("stock decremented but prescription %s not dispensed: %w", prescriptionID, err)
	}
	if !ok {
		return nil, fmt.Errorf("stock decremented but prescription %s no longer pending", prescriptionID)
	}

	result := &Result{}
	if result.Prescription, err = s.prescriptions.ByID(ctx, prescriptionID); err != nil {
		// The dispense itself succeeded; fall back to the stale copy.
		result.Prescription = p
	}

	if queueNo != "" {
		entry, err := s.queue.CompletePharmacy(ctx, queueNo)
		if err != nil {
			s.logger.Warn().Err(err).Str("queue_no", queueNo).
				Msg("prescription dispensed but queue entry not completed")
		} else {
			result.QueueEntry = entry
		}
	}
	return result, nil
}
