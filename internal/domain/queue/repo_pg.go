package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed queue repository. Duplicate intake
// is enforced by partial unique indexes on the reception stage, so Insert is
// a true insert-if-absent rather than a check-then-act sequence.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const entryCols = `id, queue_no, stage, student_name, student_id, email, nic, phone,
	medical_record_id, status, priority, added_time, moved_to_doctor_at,
	moved_to_pharmacy_at, completed_at, prescription, pharmacy_status`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var pharmacyStatus *string
	err := row.Scan(&e.ID, &e.QueueNo, &e.Stage, &e.StudentName, &e.StudentID, &e.Email,
		&e.NIC, &e.Phone, &e.MedicalRecordID, &e.Status, &e.Priority, &e.AddedTime,
		&e.MovedToDoctorAt, &e.MovedToPharmacyAt, &e.CompletedAt, &e.Prescription,
		&pharmacyStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if pharmacyStatus != nil {
		e.PharmacyStatus = *pharmacyStatus
	}
	return &e, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var n int64
	if err := tx.QueryRow(ctx, `SELECT nextval('queue_display_no')`).Scan(&n); err != nil {
		return err
	}
	e.QueueNo = fmt.Sprintf("Q%03d", n)

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (id, queue_no, stage, student_name, student_id, email,
			nic, phone, medical_record_id, status, priority, added_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.QueueNo, e.Stage, e.StudentName, e.StudentID, e.Email,
		e.NIC, e.Phone, e.MedicalRecordID, e.Status, e.Priority, e.AddedTime)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) FindByIdentity(ctx context.Context, stage, email, nic, medicalRecordID string) (*Entry, error) {
	// Empty identity fields never match anything.
	return scanEntry(r.pool.QueryRow(ctx, `
		SELECT `+entryCols+` FROM queue_entries
		WHERE ($1 = '' OR stage = $1)
		  AND ((email = $2 AND $2 <> '') OR (nic = $3 AND $3 <> '')
			OR (medical_record_id = $4 AND $4 <> ''))
		ORDER BY added_time DESC
		LIMIT 1`, stage, email, nic, medicalRecordID))
}

func (r *repoPG) GetByQueueNo(ctx context.Context, queueNo string) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+entryCols+` FROM queue_entries WHERE queue_no = $1`, queueNo))
}

func (r *repoPG) ListStage(ctx context.Context, stage string) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryCols+` FROM queue_entries WHERE stage = $1 ORDER BY added_time`, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Stage transitions are a single conditional UPDATE: the stage column is the
// collection membership, so no reader observes the entry in two stages or
// none, and moving from the wrong stage is a not-found.

func (r *repoPG) MoveToDoctor(ctx context.Context, queueNo string, at time.Time) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		UPDATE queue_entries SET stage = 'doctor', status = $2, moved_to_doctor_at = $3
		WHERE queue_no = $1 AND stage = 'reception'
		RETURNING `+entryCols, queueNo, StatusWithDoctor, at))
}

func (r *repoPG) MoveToPharmacy(ctx context.Context, queueNo string, prescription json.RawMessage, at time.Time) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		UPDATE queue_entries SET stage = 'pharmacy', status = $2, prescription = $3,
			pharmacy_status = 'Pending', moved_to_pharmacy_at = $4
		WHERE queue_no = $1 AND stage = 'doctor'
		RETURNING `+entryCols, queueNo, StatusAtPharmacy, prescription, at))
}

func (r *repoPG) Complete(ctx context.Context, queueNo string, at time.Time) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		UPDATE queue_entries SET stage = 'completed', status = $2,
			pharmacy_status = 'Dispensed', completed_at = $3
		WHERE queue_no = $1 AND stage = 'pharmacy'
		RETURNING `+entryCols, queueNo, StatusCompleted, at))
}

func (r *repoPG) UpdateStatus(ctx context.Context, stage, queueNo string, upd StatusUpdate) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `
		UPDATE queue_entries SET status = COALESCE($3, status),
			priority = COALESCE($4, priority),
			pharmacy_status = COALESCE($5, pharmacy_status)
		WHERE queue_no = $1 AND stage = $2
		RETURNING `+entryCols, queueNo, stage, upd.Status, upd.Priority, upd.PharmacyStatus))
}

func (r *repoPG) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.pool.Query(ctx, `SELECT stage, COUNT(*) FROM queue_entries GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{}
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		switch stage {
		case StageReception:
			st.Reception = count
		case StageDoctor:
			st.Doctor = count
		case StagePharmacy:
			st.Pharmacy = count
		case StageCompleted:
			st.Completed = count
		}
		st.Total += count
	}
	return st, rows.Err()
}

func (r *repoPG) ClearAll(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM queue_entries`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `ALTER SEQUENCE queue_display_no RESTART`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
