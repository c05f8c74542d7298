package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stages, in workflow order. Movement is forward-only.
const (
	StageReception = "reception"
	StageDoctor    = "doctor"
	StagePharmacy  = "pharmacy"
	StageCompleted = "completed"
)

// Default entry fields at intake.
const (
	StatusWaiting    = "Waiting"
	StatusWithDoctor = "With Doctor"
	StatusAtPharmacy = "At Pharmacy"
	StatusCompleted  = "Completed"

	PriorityNormal = "Normal"
)

// Entry maps to the queue_entries table. A patient is in exactly one stage
// at a time; queue_no is the display identifier shown on dashboards and is
// distinct from the internal id.
type Entry struct {
	ID              uuid.UUID `db:"id" json:"id"`
	QueueNo         string    `db:"queue_no" json:"queue_no"`
	Stage           string    `db:"stage" json:"stage"`
	StudentName     string    `db:"student_name" json:"student_name"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Email           string    `db:"email" json:"email"`
	NIC             string    `db:"nic" json:"nic"`
	Phone           string    `db:"phone" json:"phone"`
	MedicalRecordID string    `db:"medical_record_id" json:"medical_record_id"`
	Status          string    `db:"status" json:"status"`
	Priority        string    `db:"priority" json:"priority"`
	AddedTime       time.Time `db:"added_time" json:"added_time"`

	MovedToDoctorAt   *time.Time `db:"moved_to_doctor_at" json:"moved_to_doctor_at,omitempty"`
	MovedToPharmacyAt *time.Time `db:"moved_to_pharmacy_at" json:"moved_to_pharmacy_at,omitempty"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	// Prescription is the payload attached on the move to pharmacy, stored
	// verbatim.
	Prescription   json.RawMessage `db:"prescription" json:"prescription,omitempty"`
	PharmacyStatus string          `db:"pharmacy_status" json:"pharmacy_status,omitempty"`

	// WaitMinutes is computed at read time, never persisted.
	WaitMinutes int `db:"-" json:"wait_minutes"`
}

// Identity returns the duplicate-matching fields. Empty fields never match.
func (e *Entry) Identity() (email, nic, medicalRecordID string) {
	return e.Email, e.NIC, e.MedicalRecordID
}

// IntakeRecord is the reception intake payload, from a QR scan or manual
// entry.
type IntakeRecord struct {
	StudentName     string `json:"student_name"`
	StudentID       string `json:"student_id"`
	Email           string `json:"email"`
	NIC             string `json:"nic"`
	Phone           string `json:"phone"`
	MedicalRecordID string `json:"medical_record_id"`
}

// IntakeResult reports the outcome of a reception intake. On a duplicate,
// Entry is the pre-existing reception entry and no new entry was created.
// ElsewhereStage carries a non-blocking note when the same patient already
// sits in a later stage.
type IntakeResult struct {
	Entry          *Entry `json:"entry"`
	IsDuplicate    bool   `json:"is_duplicate"`
	Message        string `json:"message,omitempty"`
	ElsewhereStage string `json:"elsewhere_stage,omitempty"`
}

// StatusUpdate is an in-place field merge, not a stage transition. Nil
// fields are left untouched.
type StatusUpdate struct {
	Status         *string `json:"status,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	PharmacyStatus *string `json:"pharmacy_status,omitempty"`
}

// Stats counts entries per stage, derived fresh on every call.
type Stats struct {
	Reception int `json:"reception"`
	Doctor    int `json:"doctor"`
	Pharmacy  int `json:"pharmacy"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
