package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Stock status values, in evaluation precedence order: an expired medicine is
// always reported Expired even when it is also below its minimum stock.
const (
	StatusExpired    = "Expired"
	StatusNearExpiry = "Near Expiry"
	StatusLowStock   = "Low Stock"
	StatusInStock    = "In Stock"
)

// nearExpiryWindow is the lookahead within which a medicine counts as near
// expiry.
const nearExpiryWindow = 30 * 24 * time.Hour

// Medicine maps to the medicines table.
type Medicine struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Dosage      string    `db:"dosage" json:"dosage"`
	Quantity    int       `db:"quantity" json:"quantity"`
	MinStock    int       `db:"min_stock" json:"min_stock"`
	Category    string    `db:"category" json:"category"`
	Expiry      time.Time `db:"expiry" json:"expiry"`
	BatchNumber string    `db:"batch_number" json:"batch_number"`
	AddedBy     string    `db:"added_by" json:"added_by"`
	AddedDate   time.Time `db:"added_date" json:"added_date"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// StockStatusAt classifies the medicine relative to now. The status is
// derived, never stored.
func (m *Medicine) StockStatusAt(now time.Time) string {
	if !m.Expiry.IsZero() {
		untilExpiry := m.Expiry.Sub(now)
		if untilExpiry < 0 {
			return StatusExpired
		}
		if untilExpiry <= nearExpiryWindow {
			return StatusNearExpiry
		}
	}
	if m.Quantity <= m.MinStock {
		return StatusLowStock
	}
	return StatusInStock
}

// StockStatus classifies the medicine relative to the current time.
func (m *Medicine) StockStatus() string {
	return m.StockStatusAt(time.Now())
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string    `json:"name,omitempty"`
	Dosage      *string    `json:"dosage,omitempty"`
	Quantity    *int       `json:"quantity,omitempty"`
	MinStock    *int       `json:"min_stock,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	BatchNumber *string    `json:"batch_number,omitempty"`
}

// DispenseLine is one medicine/quantity pair of a dispense request.
type DispenseLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
}

// Status is the aggregate inventory snapshot served to dashboards and the
// automated monitor.
type Status struct {
	TotalMedicines int       `json:"total_medicines"`
	TotalQuantity  int       `json:"total_quantity"`
	LowStock       int       `json:"low_stock"`
	Expired        int       `json:"expired"`
	NearExpiry     int       `json:"near_expiry"`
	GeneratedAt    time.Time `json:"generated_at"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Alert types.
const (
	AlertExpired    = "expired"
	AlertLowStock   = "low_stock"
	AlertNearExpiry = "near_expiry"
)

// Alert describes one actionable inventory condition. The ID is derived from
// the medicine and alert type so the same condition keeps the same ID across
// polling cycles, which lets acknowledgements stick.
type Alert struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}
