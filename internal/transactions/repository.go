package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines transaction data access. Deleted rows are excluded from
// every read.
type Repository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	CreateBatch(ctx context.Context, txs []Transaction) ([]Transaction, error)
	Update(ctx context.Context, tx Transaction) error
	UpdateBatch(ctx context.Context, txs []Transaction) error
	SoftDelete(ctx context.Context, id int64, when time.Time) error

	List(ctx context.Context) ([]Transaction, error)
	ListByPeriod(ctx context.Context, accountIDs []int64, from, to time.Time) ([]Transaction, error)
	ListByCategory(ctx context.Context, categoryID int64, accountIDs []int64) ([]Transaction, error)
	ListByKind(ctx context.Context, kind Kind, accountIDs []int64) ([]Transaction, error)
	ListByStatus(ctx context.Context, status Status, accountIDs []int64) ([]Transaction, error)
	ListOverdue(ctx context.Context, accountIDs []int64, now time.Time) ([]Transaction, error)
	ListRecurring(ctx context.Context, accountIDs []int64) ([]Transaction, error)
	ListChildren(ctx context.Context, parentID int64) ([]Transaction, error)
	ListFutureChildren(ctx context.Context, parentID int64, after time.Time) ([]Transaction, error)
	ListPaidBetween(ctx context.Context, accountIDs []int64, from, to time.Time) ([]Transaction, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const txColumns = `id, description, amount, due_date, payment_date, kind, status, notes,
	category_id, account_id, is_recurring, recurrence, installments, installment, parent_id,
	created_at, updated_at, deleted_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	err := row.Scan(&tx.ID, &tx.Description, &tx.Amount, &tx.DueDate, &tx.PaymentDate,
		&tx.Kind, &tx.Status, &tx.Notes, &tx.CategoryID, &tx.AccountID,
		&tx.IsRecurring, &tx.Recurrence, &tx.Installments, &tx.Installment, &tx.ParentID,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return tx, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanTransaction(row)
}

func (r *pgRepository) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions
			(description, amount, due_date, payment_date, kind, status, notes,
			 category_id, account_id, is_recurring, recurrence, installments, installment, parent_id,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING `+txColumns,
		tx.Description, tx.Amount, tx.DueDate, tx.PaymentDate, tx.Kind, tx.Status, tx.Notes,
		tx.CategoryID, tx.AccountID, tx.IsRecurring, tx.Recurrence, tx.Installments, tx.Installment, tx.ParentID,
		tx.CreatedAt, tx.UpdatedAt)
	return scanTransaction(row)
}

func (r *pgRepository) CreateBatch(ctx context.Context, txs []Transaction) ([]Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		row := dbTx.QueryRow(ctx, `
			INSERT INTO transactions
				(description, amount, due_date, payment_date, kind, status, notes,
				 category_id, account_id, is_recurring, recurrence, installments, installment, parent_id,
				 created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			RETURNING `+txColumns,
			tx.Description, tx.Amount, tx.DueDate, tx.PaymentDate, tx.Kind, tx.Status, tx.Notes,
			tx.CategoryID, tx.AccountID, tx.IsRecurring, tx.Recurrence, tx.Installments, tx.Installment, tx.ParentID,
			tx.CreatedAt, tx.UpdatedAt)
		created, err := scanTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

const txUpdateSQL = `
	UPDATE transactions
	SET description = $2, amount = $3, due_date = $4, payment_date = $5, kind = $6,
		status = $7, notes = $8, category_id = $9, account_id = $10,
		is_recurring = $11, recurrence = $12, installments = $13, installment = $14,
		updated_at = $15
	WHERE id = $1 AND deleted_at IS NULL`

func (r *pgRepository) Update(ctx context.Context, tx Transaction) error {
	tag, err := r.pool.Exec(ctx, txUpdateSQL,
		tx.ID, tx.Description, tx.Amount, tx.DueDate, tx.PaymentDate, tx.Kind,
		tx.Status, tx.Notes, tx.CategoryID, tx.AccountID,
		tx.IsRecurring, tx.Recurrence, tx.Installments, tx.Installment,
		tx.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *pgRepository) UpdateBatch(ctx context.Context, txs []Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	for _, tx := range txs {
		if _, err := dbTx.Exec(ctx, txUpdateSQL,
			tx.ID, tx.Description, tx.Amount, tx.DueDate, tx.PaymentDate, tx.Kind,
			tx.Status, tx.Notes, tx.CategoryID, tx.AccountID,
			tx.IsRecurring, tx.Recurrence, tx.Installments, tx.Installment,
			tx.UpdatedAt); err != nil {
			return err
		}
	}
	return dbTx.Commit(ctx)
}

func (r *pgRepository) SoftDelete(ctx context.Context, id int64, when time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`, id, when)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL
		ORDER BY due_date DESC`)
}

func (r *pgRepository) ListByPeriod(ctx context.Context, accountIDs []int64, from, to time.Time) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1)
		  AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date`, accountIDs, from, to)
}

func (r *pgRepository) ListByCategory(ctx context.Context, categoryID int64, accountIDs []int64) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1) AND category_id = $2
		ORDER BY due_date`, accountIDs, categoryID)
}

func (r *pgRepository) ListByKind(ctx context.Context, kind Kind, accountIDs []int64) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1) AND kind = $2
		ORDER BY due_date`, accountIDs, kind)
}

func (r *pgRepository) ListByStatus(ctx context.Context, status Status, accountIDs []int64) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1) AND status = $2
		ORDER BY due_date`, accountIDs, status)
}

func (r *pgRepository) ListOverdue(ctx context.Context, accountIDs []int64, now time.Time) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1)
		  AND status = 'PENDING' AND due_date < $2
		ORDER BY due_date`, accountIDs, now)
}

func (r *pgRepository) ListRecurring(ctx context.Context, accountIDs []int64) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1) AND is_recurring
		ORDER BY due_date`, accountIDs)
}

func (r *pgRepository) ListChildren(ctx context.Context, parentID int64) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND parent_id = $1
		ORDER BY installment`, parentID)
}

func (r *pgRepository) ListFutureChildren(ctx context.Context, parentID int64, after time.Time) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND parent_id = $1 AND due_date > $2
		ORDER BY installment`, parentID, after)
}

func (r *pgRepository) ListPaidBetween(ctx context.Context, accountIDs []int64, from, to time.Time) ([]Transaction, error) {
	return r.query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE deleted_at IS NULL AND account_id = ANY($1)
		  AND status = 'PAID' AND payment_date >= $2 AND payment_date <= $3
		ORDER BY payment_date`, accountIDs, from, to)
}

func (r *pgRepository) query(ctx context.Context, sql string, args ...any) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
