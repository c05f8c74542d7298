package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed medicine repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const medCols = `id, name, dosage, quantity, min_stock, category, expiry,
	batch_number, added_by, added_date, last_updated`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Dosage, &m.Quantity, &m.MinStock, &m.Category,
		&m.Expiry, &m.BatchNumber, &m.AddedBy, &m.AddedDate, &m.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medicines (id, name, dosage, quantity, min_stock, category, expiry,
			batch_number, added_by, added_date, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		m.ID, m.Name, m.Dosage, m.Quantity, m.MinStock, m.Category, m.Expiry,
		m.BatchNumber, m.AddedBy, m.AddedDate, m.LastUpdated)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(r.pool.QueryRow(ctx, `SELECT `+medCols+` FROM medicines WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medicines SET name=$2, dosage=$3, quantity=$4, min_stock=$5, category=$6,
			expiry=$7, batch_number=$8, last_updated=$9
		WHERE id = $1`,
		m.ID, m.Name, m.Dosage, m.Quantity, m.MinStock, m.Category,
		m.Expiry, m.BatchNumber, m.LastUpdated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	// Deleting an absent id is a safe no-op.
	_, err := r.pool.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context) ([]*Medicine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+medCols+` FROM medicines ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) DecrementQuantities(ctx context.Context, lines []DispenseLine, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, line := range lines {
		// GREATEST keeps the no-negative-stock invariant even if the
		// caller's sufficiency check was skipped.
		if _, err := tx.Exec(ctx, `
			UPDATE medicines SET quantity = GREATEST(quantity - $2, 0), last_updated = $3
			WHERE id = $1`,
			line.MedicineID, line.Quantity, now); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
