package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carteira-app/carteira/internal/platform/db"
	"github.com/carteira-app/carteira/internal/shared"
)

// Repository defines account, membership and access request data access.
type Repository interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	UpdateAccount(ctx context.Context, acc Account) error
	ListAccountsForUser(ctx context.Context, userID int64) ([]Account, error)

	HasActiveMember(ctx context.Context, accountID, userID int64) (bool, error)
	GetActiveMember(ctx context.Context, accountID, userID int64) (Member, error)
	CreateMember(ctx context.Context, accountID, userID int64, canAddUsers bool) (Member, error)
	DeactivateMember(ctx context.Context, memberID int64) error
	ListMembers(ctx context.Context, accountID int64) ([]Member, error)

	CreateRequest(ctx context.Context, req AccessRequest) (AccessRequest, error)
	GetRequest(ctx context.Context, id int64) (AccessRequest, error)
	UpdateRequest(ctx context.Context, req AccessRequest) error
	HasPendingRequest(ctx context.Context, accountID, requesterID int64) (bool, error)
	ListRequestsByOwner(ctx context.Context, ownerID int64) ([]AccessRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterID int64) ([]AccessRequest, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const accountColumns = `id, name, description, owner_id, is_active, created_at, updated_at, deleted_at`

func scanAccount(row pgx.Row) (Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.Name, &acc.Description, &acc.OwnerID, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt, &acc.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

func (r *pgRepository) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns,
		input.Name, input.Description, input.OwnerID)
	return scanAccount(row)
}

func (r *pgRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanAccount(row)
}

func (r *pgRepository) UpdateAccount(ctx context.Context, acc Account) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET name = $2, description = $3, is_active = $4, updated_at = $5, deleted_at = $6
		WHERE id = $1`,
		acc.ID, acc.Name, acc.Description, acc.IsActive, acc.UpdatedAt, acc.DeletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *pgRepository) ListAccountsForUser(ctx context.Context, userID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts a
		WHERE a.deleted_at IS NULL
		  AND (a.owner_id = $1 OR EXISTS (
			SELECT 1 FROM account_members m
			WHERE m.account_id = a.id AND m.user_id = $1 AND m.is_active))
		ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *pgRepository) HasActiveMember(ctx context.Context, accountID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM account_members
			WHERE account_id = $1 AND user_id = $2 AND is_active)`,
		accountID, userID).Scan(&exists)
	return exists, err
}

const memberColumns = `id, account_id, user_id, can_add_users, is_active, joined_at`

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AccountID, &m.UserID, &m.CanAddUsers, &m.IsActive, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (r *pgRepository) GetActiveMember(ctx context.Context, accountID, userID int64) (Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM account_members
		WHERE account_id = $1 AND user_id = $2 AND is_active`,
		accountID, userID)
	return scanMember(row)
}

func (r *pgRepository) CreateMember(ctx context.Context, accountID, userID int64, canAddUsers bool) (Member, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO account_members (account_id, user_id, can_add_users)
		VALUES ($1, $2, $3)
		RETURNING `+memberColumns,
		accountID, userID, canAddUsers)
	m, err := scanMember(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Member{}, fmt.Errorf("membership already active: %w", shared.ErrConflict)
		}
		return Member{}, err
	}
	return m, nil
}

func (r *pgRepository) DeactivateMember(ctx context.Context, memberID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account_members SET is_active = FALSE WHERE id = $1`, memberID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *pgRepository) ListMembers(ctx context.Context, accountID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+` FROM account_members
		WHERE account_id = $1 AND is_active
		ORDER BY joined_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const requestColumns = `id, account_id, requester_id, owner_id, status, message, responded_at, created_at`

func scanRequest(row pgx.Row) (AccessRequest, error) {
	var req AccessRequest
	err := row.Scan(&req.ID, &req.AccountID, &req.RequesterID, &req.OwnerID, &req.Status, &req.Message, &req.RespondedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessRequest{}, ErrRequestNotFound
		}
		return AccessRequest{}, err
	}
	return req, nil
}

func (r *pgRepository) CreateRequest(ctx context.Context, req AccessRequest) (AccessRequest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO access_requests (account_id, requester_id, owner_id, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		req.AccountID, req.RequesterID, req.OwnerID, req.Status, req.Message, req.CreatedAt)
	created, err := scanRequest(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return AccessRequest{}, ErrRequestPending
		}
		return AccessRequest{}, err
	}
	return created, nil
}

func (r *pgRepository) GetRequest(ctx context.Context, id int64) (AccessRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM access_requests
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanRequest(row)
}

func (r *pgRepository) UpdateRequest(ctx context.Context, req AccessRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE access_requests
		SET status = $2, responded_at = $3
		WHERE id = $1 AND deleted_at IS NULL`,
		req.ID, req.Status, req.RespondedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *pgRepository) HasPendingRequest(ctx context.Context, accountID, requesterID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_requests
			WHERE account_id = $1 AND requester_id = $2
			  AND status = 'PENDING' AND deleted_at IS NULL)`,
		accountID, requesterID).Scan(&exists)
	return exists, err
}

func (r *pgRepository) ListRequestsByOwner(ctx context.Context, ownerID int64) ([]AccessRequest, error) {
	return r.listRequests(ctx, `owner_id`, ownerID)
}

func (r *pgRepository) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]AccessRequest, error) {
	return r.listRequests(ctx, `requester_id`, requesterID)
}

func (r *pgRepository) listRequests(ctx context.Context, column string, id int64) ([]AccessRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM access_requests
		WHERE `+column+` = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
