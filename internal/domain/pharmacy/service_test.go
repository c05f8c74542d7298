package pharmacy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uniclinic/uniclinic/internal/domain/inventory"
	"github.com/uniclinic/uniclinic/internal/domain/prescription"
	"github.com/uniclinic/uniclinic/internal/domain/queue"
	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

type fixture struct {
	pharmacy      *Service
	inventory     *inventory.Service
	prescriptions *prescription.Service
	queue         *queue.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	invRepo, err := inventory.NewRepoLocal(store)
	if err != nil {
		t.Fatalf("open inventory repo: %v", err)
	}
	rxRepo, err := prescription.NewRepoLocal(store, "P", 1000)
	if err != nil {
		t.Fatalf("open prescription repo: %v", err)
	}
	qRepo, err := queue.NewRepoLocal(store)
	if err != nil {
		t.Fatalf("open queue repo: %v", err)
	}

	f := &fixture{
		inventory:     inventory.NewService(invRepo),
		prescriptions: prescription.NewService(rxRepo),
		queue:         queue.NewService(qRepo),
	}
	f.pharmacy = NewService(f.prescriptions, f.inventory, f.queue, zerolog.Nop())
	return f
}

func (f *fixture) addMedicine(t *testing.T, name string, quantity int) uuid.UUID {
	t.Helper()
	id, err := f.inventory.Add(context.Background(), &inventory.Medicine{
		Name: name, Quantity: quantity, MinStock: 5,
		Expiry: time.Now().Add(365 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("add medicine: %v", err)
	}
	return id
}

func (f *fixture) addPrescription(t *testing.T, lines ...prescription.MedicineLine) uuid.UUID {
	t.Helper()
	id, err := f.prescriptions.Add(context.Background(), &prescription.Prescription{
		PatientName: "Alice", DoctorName: "Dr. Silva", Medicines: lines,
	})
	if err != nil {
		t.Fatalf("add prescription: %v", err)
	}
	return id
}

func TestDispense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	medID := f.addMedicine(t, "Paracetamol", 10)
	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: medID, MedicineName: "Paracetamol", Quantity: 4,
	})

	result, err := f.pharmacy.Dispense(ctx, rxID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	med, _ := f.inventory.Get(ctx, medID)
	if med.Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", med.Quantity)
	}
	if result.Prescription.Status != prescription.StatusDispensed {
		t.Errorf("expected dispensed, got %s", result.Prescription.Status)
	}
	if result.Prescription.DispensedAt == nil {
		t.Error("expected a dispense timestamp")
	}

	pending, _ := f.prescriptions.Pending(ctx)
	dispensed, _ := f.prescriptions.Dispensed(ctx)
	if len(pending) != 0 || len(dispensed) != 1 {
		t.Errorf("expected 0 pending and 1 dispensed, got %d and %d", len(pending), len(dispensed))
	}
}

func TestDispense_InsufficientStockAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	okID := f.addMedicine(t, "Paracetamol", 10)
	shortID := f.addMedicine(t, "Amoxicillin", 3)
	rxID := f.addPrescription(t,
		prescription.MedicineLine{MedicineID: okID, MedicineName: "Paracetamol", Quantity: 4},
		prescription.MedicineLine{MedicineID: shortID, MedicineName: "Amoxicillin", Quantity: 10},
	)

	_, err := f.pharmacy.Dispense(ctx, rxID, "")
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(insufficient.Medicines) != 1 || insufficient.Medicines[0] != "Amoxicillin" {
		t.Errorf("expected the short medicine to be named, got %v", insufficient.Medicines)
	}

	// Nothing mutated: sufficient lines stay untouched too.
	okMed, _ := f.inventory.Get(ctx, okID)
	shortMed, _ := f.inventory.Get(ctx, shortID)
	if okMed.Quantity != 10 || shortMed.Quantity != 3 {
		t.Errorf("expected quantities 10 and 3, got %d and %d", okMed.Quantity, shortMed.Quantity)
	}
	pending, _ := f.prescriptions.Pending(ctx)
	if len(pending) != 1 {
		t.Errorf("expected the prescription to stay pending, got %d pending", len(pending))
	}
}

func TestDispense_UnknownMedicineCountsAsShort(t *testing.T) {
	f := newFixture(t)

	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: uuid.New(), MedicineName: "Ghostocillin", Quantity: 1,
	})

	_, err := f.pharmacy.Dispense(context.Background(), rxID, "")
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Medicines[0] != "Ghostocillin" {
		t.Errorf("expected the unknown medicine named by its line, got %v", insufficient.Medicines)
	}
}

func TestDispense_NotPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	medID := f.addMedicine(t, "Paracetamol", 10)
	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: medID, MedicineName: "Paracetamol", Quantity: 4,
	})

	if _, err := f.pharmacy.Dispense(ctx, rxID, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second dispense of the same prescription must not touch stock again.
	if _, err := f.pharmacy.Dispense(ctx, rxID, ""); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
	med, _ := f.inventory.Get(ctx, medID)
	if med.Quantity != 6 {
		t.Errorf("expected quantity to stay 6, got %d", med.Quantity)
	}
}

func TestDispense_CompletesQueueEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.queue.AddStudentToReception(ctx, queue.IntakeRecord{StudentName: "Alice", Email: "alice@uni.test"})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	queueNo := result.Entry.QueueNo
	f.queue.MoveToDoctor(ctx, queueNo)
	f.queue.AddPrescriptionAndMoveToPharmacy(ctx, queueNo, json.RawMessage(`{}`))

	medID := f.addMedicine(t, "Paracetamol", 10)
	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: medID, MedicineName: "Paracetamol", Quantity: 4,
	})

	dispensed, err := f.pharmacy.Dispense(ctx, rxID, queueNo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dispensed.QueueEntry == nil || dispensed.QueueEntry.Stage != queue.StageCompleted {
		t.Errorf("expected the queue entry completed, got %+v", dispensed.QueueEntry)
	}
}

func TestDispense_QueueFailureDoesNotFailDispense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	medID := f.addMedicine(t, "Paracetamol", 10)
	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: medID, MedicineName: "Paracetamol", Quantity: 4,
	})

	// No such queue entry: completion fails, the dispense still succeeds.
	result, err := f.pharmacy.Dispense(ctx, rxID, "Q999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QueueEntry != nil {
		t.Error("expected no queue entry in the result")
	}
	if result.Prescription.Status != prescription.StatusDispensed {
		t.Error("expected the prescription dispensed despite the queue failure")
	}
}

// brokenPrescriptionStore reads fine but fails the dispense call, simulating
// a crash between the two sequential store calls.
type brokenPrescriptionStore struct {
	PrescriptionStore
}

func (b brokenPrescriptionStore) Dispense(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("connection reset by peer")
}

func TestDispense_InconsistencyWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	medID := f.addMedicine(t, "Paracetamol", 10)
	rxID := f.addPrescription(t, prescription.MedicineLine{
		MedicineID: medID, MedicineName: "Paracetamol", Quantity: 4,
	})

	svc := NewService(brokenPrescriptionStore{f.prescriptions}, f.inventory, f.queue, zerolog.Nop())
	_, err := svc.Dispense(ctx, rxID, "")
	if err == nil {
		t.Fatal("expected the dispense to fail")
	}

	// The accepted inconsistency window: stock already decremented, the
	// prescription still pending, and the error says so.
	med, _ := f.inventory.Get(ctx, medID)
	if med.Quantity != 6 {
		t.Errorf("expected stock decremented to 6, got %d", med.Quantity)
	}
	pending, _ := f.prescriptions.Pending(ctx)
	if len(pending) != 1 {
		t.Errorf("expected the prescription still pending, got %d pending", len(pending))
	}
}
