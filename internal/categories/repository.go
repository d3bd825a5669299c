package categories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines category data access.
type Repository interface {
	Create(ctx context.Context, input CreateCategoryInput) (Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Update(ctx context.Context, cat Category) error
	SoftDelete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]Category, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const categoryColumns = `id, user_id, name, kind, created_at, updated_at, deleted_at`

func scanCategory(row pgx.Row) (Category, error) {
	var cat Category
	err := row.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Kind, &cat.CreatedAt, &cat.UpdatedAt, &cat.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, err
	}
	return cat, nil
}

func (r *pgRepository) Create(ctx context.Context, input CreateCategoryInput) (Category, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, kind)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns,
		input.UserID, input.Name, input.Kind)
	return scanCategory(row)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Category, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanCategory(row)
}

func (r *pgRepository) Update(ctx context.Context, cat Category) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE categories SET name = $2, kind = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		cat.ID, cat.Name, cat.Kind)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *pgRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE categories SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *pgRepository) ListByUser(ctx context.Context, userID int64) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (r *pgRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND deleted_at IS NULL)`,
		id).Scan(&exists)
	return exists, err
}
