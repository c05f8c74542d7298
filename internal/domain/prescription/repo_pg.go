package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewRepoPG returns the Postgres-backed prescription repository. Queue
// numbers come from the prescription_queue_no sequence, rendered with the
// given prefix.
func NewRepoPG(pool *pgxpool.Pool, prefix string) Repository {
	return &repoPG{pool: pool, prefix: prefix}
}

const rxCols = `id, queue_number, patient_name, patient_id, doctor_name, status,
	pharmacy_status, prescription_date, created_at, dispensed_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.QueueNumber, &p.PatientName, &p.PatientID, &p.DoctorName,
		&p.Status, &p.PharmacyStatus, &p.PrescriptionDate, &p.CreatedAt, &p.DispensedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The sequence serializes counter increments; two concurrent creates can
	// never see the same value.
	var n int64
	if err := tx.QueryRow(ctx, `SELECT nextval('prescription_queue_no')`).Scan(&n); err != nil {
		return err
	}
	p.QueueNumber = fmt.Sprintf("%s%04d", r.prefix, n)

	if _, err := tx.Exec(ctx, `
		INSERT INTO prescriptions (id, queue_number, patient_name, patient_id, doctor_name,
			status, pharmacy_status, prescription_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.QueueNumber, p.PatientName, p.PatientID, p.DoctorName,
		p.Status, p.PharmacyStatus, p.PrescriptionDate, p.CreatedAt); err != nil {
		return err
	}

	for i, line := range p.Medicines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO prescription_medicines (prescription_id, position, medicine_id,
				medicine_name, quantity, dosage, instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			p.ID, i, line.MedicineID, line.MedicineName, line.Quantity,
			line.Dosage, line.Instructions); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repoPG) loadLines(ctx context.Context, items []*Prescription) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Prescription, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, p := range items {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT prescription_id, medicine_id, medicine_name, quantity, dosage, instructions
		FROM prescription_medicines
		WHERE prescription_id = ANY($1)
		ORDER BY prescription_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var pid uuid.UUID
		var line MedicineLine
		if err := rows.Scan(&pid, &line.MedicineID, &line.MedicineName,
			&line.Quantity, &line.Dosage, &line.Instructions); err != nil {
			return err
		}
		byID[pid].Medicines = append(byID[pid].Medicines, line)
	}
	return rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.pool.QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*Prescription{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) list(ctx context.Context, where string) ([]*Prescription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE `+where+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repoPG) Pending(ctx context.Context) ([]*Prescription, error) {
	return r.list(ctx, `status <> 'dispensed'`)
}

func (r *repoPG) Dispensed(ctx context.Context) ([]*Prescription, error) {
	return r.list(ctx, `status = 'dispensed'`)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET status = $2, pharmacy_status = $2
		WHERE id = $1 AND status <> 'dispensed'`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Dispense(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	// Collection membership is the status column, so the move is one UPDATE
	// and readers can never observe an intermediate state.
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET status = 'dispensed', pharmacy_status = 'Dispensed',
			dispensed_at = $2
		WHERE id = $1 AND status <> 'dispensed'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) ClearAll(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM prescription_medicines`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM prescriptions`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `ALTER SEQUENCE prescription_queue_no RESTART`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
