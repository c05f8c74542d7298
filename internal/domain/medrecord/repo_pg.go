package medrecord

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed medical record repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordCols = `id, record_id, student_name, student_id, email, nic, phone,
	complaints, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.RecordID, &r.StudentName, &r.StudentID, &r.Email,
		&r.NIC, &r.Phone, &r.Complaints, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) Save(ctx context.Context, rec *Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medical_records (id, record_id, student_name, student_id, email,
			nic, phone, complaints, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.RecordID, rec.StudentName, rec.StudentID, rec.Email,
		rec.NIC, rec.Phone, rec.Complaints, rec.CreatedAt)
	return err
}

func (r *repoPG) GetByRecordID(ctx context.Context, recordID string) (*Record, error) {
	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE record_id = $1`, recordID))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return scanRecord(r.pool.QueryRow(ctx, `
		SELECT `+recordCols+` FROM medical_records
		WHERE email = $1 ORDER BY created_at DESC LIMIT 1`, email))
}
