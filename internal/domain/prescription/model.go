package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Collection membership. A prescription stays in the pending collection until
// it is dispensed, whatever interim label its status carries.
const (
	StatusPending   = "pending"
	StatusDispensed = "dispensed"
)

// Pharmacy workflow labels, advanced by the pharmacy dashboard while the
// prescription is pending.
const (
	PharmacyPending   = "Pending"
	PharmacyPreparing = "Preparing"
	PharmacyReady     = "Ready"
	PharmacyDispensed = "Dispensed"
)

var validPharmacyStatuses = map[string]bool{
	PharmacyPending: true, PharmacyPreparing: true,
	PharmacyReady: true, PharmacyDispensed: true,
}

// MedicineLine is one prescribed medicine. MedicineName is denormalized so
// the prescription stays readable after inventory edits.
type MedicineLine struct {
	MedicineID   uuid.UUID `db:"medicine_id" json:"medicine_id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name"`
	Quantity     int       `db:"quantity" json:"quantity"`
	Dosage       string    `db:"dosage" json:"dosage"`
	Instructions string    `db:"instructions" json:"instructions"`
}

// Prescription maps to the prescriptions table, with lines in
// prescription_medicines. The internal id and the human-facing queue number
// are independent identifiers.
type Prescription struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	QueueNumber      string         `db:"queue_number" json:"queue_number"`
	PatientName      string         `db:"patient_name" json:"patient_name"`
	PatientID        string         `db:"patient_id" json:"patient_id"`
	DoctorName       string         `db:"doctor_name" json:"doctor_name"`
	Medicines        []MedicineLine `json:"medicines"`
	Status           string         `db:"status" json:"status"`
	PharmacyStatus   string         `db:"pharmacy_status" json:"pharmacy_status"`
	PrescriptionDate time.Time      `db:"prescription_date" json:"prescription_date"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	DispensedAt      *time.Time     `db:"dispensed_at" json:"dispensed_at,omitempty"`
}

// IsPending reports whether the prescription still sits in the pending
// collection.
func (p *Prescription) IsPending() bool {
	return p.Status != StatusDispensed
}
