package prescription

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/uniclinic/uniclinic/internal/platform/localstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	repo, err := NewRepoLocal(store, "P", 1000)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	return NewService(repo)
}

func testPrescription(name string) *Prescription {
	return &Prescription{
		PatientName: name,
		PatientID:   "ST-001",
		DoctorName:  "Dr. Silva",
		Medicines: []MedicineLine{
			{MedicineID: uuid.New(), MedicineName: "Paracetamol", Quantity: 4, Dosage: "500mg"},
		},
	}
}

func TestAdd_QueueNumbersMonotonic(t *testing.T) {
	svc := newTestService(t)

	first := testPrescription("Alice")
	second := testPrescription("Bob")
	svc.Add(context.Background(), first)
	svc.Add(context.Background(), second)

	if first.QueueNumber != "P1000" {
		t.Errorf("expected P1000, got %s", first.QueueNumber)
	}
	if second.QueueNumber != "P1001" {
		t.Errorf("expected P1001, got %s", second.QueueNumber)
	}
	if first.ID == second.ID {
		t.Error("expected distinct internal ids")
	}
	if first.ID.String() == first.QueueNumber {
		t.Error("expected the internal id to be independent of the queue number")
	}
}

func TestAdd_NewestFirst(t *testing.T) {
	svc := newTestService(t)
	svc.Add(context.Background(), testPrescription("Alice"))
	svc.Add(context.Background(), testPrescription("Bob"))

	pending, err := svc.Pending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].PatientName != "Bob" {
		t.Errorf("expected newest first, got %s", pending[0].PatientName)
	}
}

func TestAdd_Validation(t *testing.T) {
	svc := newTestService(t)

	p := testPrescription("Alice")
	p.PatientName = ""
	if _, err := svc.Add(context.Background(), p); err == nil {
		t.Error("expected error for missing patient name")
	}

	p = testPrescription("Alice")
	p.Medicines = nil
	if _, err := svc.Add(context.Background(), p); err == nil {
		t.Error("expected error for empty medicine list")
	}

	p = testPrescription("Alice")
	p.Medicines[0].Quantity = 0
	if _, err := svc.Add(context.Background(), p); err == nil {
		t.Error("expected error for zero line quantity")
	}
}

func TestAdd_InitialState(t *testing.T) {
	svc := newTestService(t)

	p := testPrescription("Alice")
	id, err := svc.Add(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusPending || got.PharmacyStatus != PharmacyPending {
		t.Errorf("expected pending/Pending, got %s/%s", got.Status, got.PharmacyStatus)
	}
	if got.DispensedAt != nil {
		t.Error("expected no dispense stamp on a new prescription")
	}
}

func TestDispense(t *testing.T) {
	svc := newTestService(t)
	p := testPrescription("Alice")
	id, _ := svc.Add(context.Background(), p)

	ok, err := svc.Dispense(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected dispense to succeed")
	}

	pending, _ := svc.Pending(context.Background())
	dispensed, _ := svc.Dispensed(context.Background())
	if len(pending) != 0 {
		t.Errorf("expected empty pending collection, got %d", len(pending))
	}
	if len(dispensed) != 1 {
		t.Fatalf("expected 1 dispensed, got %d", len(dispensed))
	}
	if dispensed[0].DispensedAt == nil {
		t.Error("expected a dispense timestamp")
	}
	if dispensed[0].Status != StatusDispensed || dispensed[0].PharmacyStatus != PharmacyDispensed {
		t.Errorf("expected dispensed/Dispensed, got %s/%s", dispensed[0].Status, dispensed[0].PharmacyStatus)
	}
}

func TestDispense_ExactlyOnce(t *testing.T) {
	svc := newTestService(t)
	id, _ := svc.Add(context.Background(), testPrescription("Alice"))

	ok, _ := svc.Dispense(context.Background(), id)
	if !ok {
		t.Fatal("expected first dispense to succeed")
	}
	ok, err := svc.Dispense(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second dispense to report false")
	}

	dispensed, _ := svc.Dispensed(context.Background())
	if len(dispensed) != 1 {
		t.Errorf("expected exactly one dispensed entry, got %d", len(dispensed))
	}
}

func TestDispense_UnknownID(t *testing.T) {
	svc := newTestService(t)
	ok, err := svc.Dispense(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected false for an unknown id")
	}
}

func TestUpdateStatus(t *testing.T) {
	svc := newTestService(t)
	id, _ := svc.Add(context.Background(), testPrescription("Alice"))

	ok, err := svc.UpdateStatus(context.Background(), id, PharmacyPreparing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected update to apply")
	}

	got, _ := svc.ByID(context.Background(), id)
	if got.PharmacyStatus != PharmacyPreparing {
		t.Errorf("expected Preparing, got %s", got.PharmacyStatus)
	}
	// Still in the pending collection regardless of the interim label.
	pending, _ := svc.Pending(context.Background())
	if len(pending) != 1 {
		t.Errorf("expected the prescription to stay pending, got %d pending", len(pending))
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(t)
	id, _ := svc.Add(context.Background(), testPrescription("Alice"))

	if _, err := svc.UpdateStatus(context.Background(), id, "Lost"); err == nil {
		t.Error("expected error for an invalid status")
	}
}

func TestUpdateStatus_DispensedUntouched(t *testing.T) {
	svc := newTestService(t)
	id, _ := svc.Add(context.Background(), testPrescription("Alice"))
	svc.Dispense(context.Background(), id)

	ok, err := svc.UpdateStatus(context.Background(), id, PharmacyPreparing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no effect on a dispensed prescription")
	}

	got, _ := svc.ByID(context.Background(), id)
	if got.PharmacyStatus != PharmacyDispensed {
		t.Errorf("expected Dispensed to stick, got %s", got.PharmacyStatus)
	}
}

func TestClearAll_ResetsCounter(t *testing.T) {
	svc := newTestService(t)
	svc.Add(context.Background(), testPrescription("Alice"))
	svc.Add(context.Background(), testPrescription("Bob"))

	if err := svc.ClearAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, _ := svc.Pending(context.Background())
	dispensed, _ := svc.Dispensed(context.Background())
	if len(pending) != 0 || len(dispensed) != 0 {
		t.Error("expected both collections to be empty")
	}

	next := testPrescription("Carol")
	svc.Add(context.Background(), next)
	if next.QueueNumber != "P1000" {
		t.Errorf("expected the counter to restart at P1000, got %s", next.QueueNumber)
	}
}

func TestCounterPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, _ := localstore.New(dir)
	repo, _ := NewRepoLocal(store, "P", 1000)
	svc := NewService(repo)
	svc.Add(context.Background(), testPrescription("Alice"))

	store2, _ := localstore.New(dir)
	repo2, _ := NewRepoLocal(store2, "P", 1000)
	svc2 := NewService(repo2)

	next := testPrescription("Bob")
	svc2.Add(context.Background(), next)
	if next.QueueNumber != "P1001" {
		t.Errorf("expected the persisted counter to continue at P1001, got %s", next.QueueNumber)
	}
}
