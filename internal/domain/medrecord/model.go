package medrecord

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the medical_records table. RecordID is the human reference
// printed on QR cards; queue intake correlates on it.
type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RecordID    string    `db:"record_id" json:"record_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Email       string    `db:"email" json:"email"`
	NIC         string    `db:"nic" json:"nic"`
	Phone       string    `db:"phone" json:"phone"`
	Complaints  string    `db:"complaints" json:"complaints"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
