// Package postgres реализует хранилища на PostgreSQL через pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/bill-tracker/backend/internal/models"
	"example.com/bill-tracker/backend/internal/repository"
)

var _ repository.BillRepository = (*BillRepository)(nil)

const billColumns = `bill_id, series_id, owner_email, name, category, amount_cents, due_date,
	is_paid, date_paid, recurring, last_generated, created_at, updated_at`

type BillRepository struct {
	db *pgxpool.Pool
}

// NewBillRepository создает репозиторий счетов.
func NewBillRepository(db *pgxpool.Pool) *BillRepository {
	return &BillRepository{db: db}
}

// ListByOwner возвращает счета владельца.
func (r *BillRepository) ListByOwner(ctx context.Context, owner string) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE owner_email = $1`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	return collectBills(rows)
}

// ListRecurring возвращает повторяющиеся счета всех владельцев.
func (r *BillRepository) ListRecurring(ctx context.Context) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE recurring <> ''
		 ORDER BY owner_email`,
	)
	if err != nil {
		return nil, err
	}
	return collectBills(rows)
}

// Get возвращает счет владельца по идентификатору.
func (r *BillRepository) Get(ctx context.Context, owner string, id models.BillID) (models.Bill, error) {
	bill, err := scanBill(r.db.QueryRow(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE owner_email = $1 AND bill_id = $2`,
		owner, id.String(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bill, repository.ErrNotFound
		}
		return bill, err
	}
	return bill, nil
}

// Create сохраняет счет. Первичный ключ (owner_email, bill_id) исключает дубли.
func (r *BillRepository) Create(ctx context.Context, bill models.Bill) (models.Bill, error) {
	var seriesID *string
	if bill.SeriesID != "" {
		value := bill.SeriesID.String()
		seriesID = &value
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO bills (bill_id, series_id, owner_email, name, category, amount_cents, due_date,
		                    is_paid, date_paid, recurring, last_generated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()))
		 RETURNING created_at`,
		bill.ID.String(), seriesID, bill.OwnerEmail, bill.Name, string(bill.Category),
		models.AmountToCents(bill.Amount), bill.DueDate.Time, bill.IsPaid, datePtr(bill.DatePaid),
		string(bill.Recurring), datePtr(bill.LastGenerated), timePtr(bill.CreatedAt),
	).Scan(&bill.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return bill, repository.ErrConflict
			case "23514":
				return bill, repository.ErrInvalid
			}
		}
		return bill, err
	}

	return bill, nil
}

// Update применяет патч одним UPDATE и возвращает число найденных строк.
func (r *BillRepository) Update(ctx context.Context, owner string, id models.BillID, patch models.BillPatch, updatedAt time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE bills
		 SET name = COALESCE($3, name),
		     category = COALESCE($4, category),
		     amount_cents = COALESCE($5, amount_cents),
		     due_date = COALESCE($6, due_date),
		     is_paid = COALESCE($7, is_paid),
		     date_paid = CASE WHEN $8 THEN NULL ELSE COALESCE($9, date_paid) END,
		     recurring = COALESCE($10, recurring),
		     last_generated = CASE WHEN $11 THEN NULL ELSE COALESCE($12, last_generated) END,
		     updated_at = $13
		 WHERE owner_email = $1 AND bill_id = $2`,
		updateArgs(owner, id, patch, updatedAt)...,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return 0, repository.ErrInvalid
		}
		return 0, err
	}

	return cmd.RowsAffected(), nil
}

// Delete удаляет счет владельца.
func (r *BillRepository) Delete(ctx context.Context, owner string, id models.BillID) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM bills
		 WHERE owner_email = $1 AND bill_id = $2`,
		owner, id.String(),
	)
	if err != nil {
		return 0, err
	}

	return cmd.RowsAffected(), nil
}

func updateArgs(owner string, id models.BillID, patch models.BillPatch, updatedAt time.Time) []any {
	var name, category, recurring *string
	if patch.Name != nil {
		name = patch.Name
	}
	if patch.Category != nil {
		value := string(*patch.Category)
		category = &value
	}
	if patch.Recurring != nil {
		value := string(*patch.Recurring)
		recurring = &value
	}

	var amountCents *int64
	if patch.Amount != nil {
		value := models.AmountToCents(*patch.Amount)
		amountCents = &value
	}

	return []any{
		owner,
		id.String(),
		name,
		category,
		amountCents,
		datePtr(patch.DueDate),
		patch.IsPaid,
		patch.ClearDatePaid,
		datePtr(patch.DatePaid),
		recurring,
		patch.ClearLastGenerated,
		datePtr(patch.LastGenerated),
		updatedAt.UTC(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (models.Bill, error) {
	var (
		bill          models.Bill
		billID        string
		seriesID      *string
		category      string
		amountCents   int64
		dueDate       time.Time
		datePaid      *time.Time
		recurring     string
		lastGenerated *time.Time
	)

	err := row.Scan(&billID, &seriesID, &bill.OwnerEmail, &bill.Name, &category, &amountCents, &dueDate,
		&bill.IsPaid, &datePaid, &recurring, &lastGenerated, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return bill, err
	}

	bill.ID = models.BillID(billID)
	if seriesID != nil {
		bill.SeriesID = models.BillID(*seriesID)
	}
	bill.Category = models.Category(category)
	bill.Amount = models.AmountFromCents(amountCents)
	bill.DueDate = models.DateOf(dueDate)
	bill.Recurring = models.Recurrence(recurring)
	if datePaid != nil {
		bill.DatePaid = models.DateOf(*datePaid).Ptr()
	}
	if lastGenerated != nil {
		bill.LastGenerated = models.DateOf(*lastGenerated).Ptr()
	}

	return bill, nil
}

func collectBills(rows pgx.Rows) ([]models.Bill, error) {
	defer rows.Close()

	bills := make([]models.Bill, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bills, nil
}

func datePtr(d *models.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	value := d.Time
	return &value
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	value := t.UTC()
	return &value
}
