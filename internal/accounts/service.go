package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/carteira-app/carteira/internal/shared"
)

var (
	ErrAccountNotFound = fmt.Errorf("account %w", shared.ErrNotFound)
	ErrMemberNotFound  = fmt.Errorf("member %w", shared.ErrNotFound)
	ErrNotOwner        = fmt.Errorf("only the account owner may do this: %w", shared.ErrUnauthorized)
)

// Service wraps account management and the access request workflow.
type Service struct {
	repo Repository
	gate *Gate
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, gate *Gate) *Service {
	return &Service{
		repo: repo,
		gate: gate,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Gate exposes the access control gate for other services.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Create opens a new account owned by the given user.
func (s *Service) Create(ctx context.Context, input CreateAccountInput) (Account, error) {
	return s.repo.CreateAccount(ctx, input)
}

// Get returns an account the user has access to.
func (s *Service) Get(ctx context.Context, accountID, userID int64) (Account, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if err := s.gate.RequireAccess(ctx, accountID, userID); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// ListForUser returns every account the user owns or is an active member of.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Account, error) {
	return s.repo.ListAccountsForUser(ctx, userID)
}

// Update renames/redescribes an account. Owner only.
func (s *Service) Update(ctx context.Context, accountID, userID int64, input UpdateAccountInput) (Account, error) {
	acc, err := s.ownedAccount(ctx, accountID, userID)
	if err != nil {
		return Account{}, err
	}
	acc.Name = input.Name
	acc.Description = input.Description
	acc.UpdatedAt = s.now()
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// SetActive activates or deactivates an account. Owner only.
func (s *Service) SetActive(ctx context.Context, accountID, userID int64, active bool) (Account, error) {
	acc, err := s.ownedAccount(ctx, accountID, userID)
	if err != nil {
		return Account{}, err
	}
	acc.IsActive = active
	acc.UpdatedAt = s.now()
	if err := s.repo.UpdateAccount(ctx, acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Delete soft-deletes an account. Owner only. The row is never removed;
// deleted accounts drop out of every subsequent read.
func (s *Service) Delete(ctx context.Context, accountID, userID int64) error {
	acc, err := s.ownedAccount(ctx, accountID, userID)
	if err != nil {
		return err
	}
	when := s.now()
	acc.DeletedAt = &when
	acc.UpdatedAt = when
	return s.repo.UpdateAccount(ctx, acc)
}

// ListMembers returns the active grants on an account.
func (s *Service) ListMembers(ctx context.Context, accountID, userID int64) ([]Member, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if err := s.gate.RequireAccess(ctx, accountID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, accountID)
}

// RemoveMember deactivates a user's grant on an account. Owner only.
// Grants are deactivated, never hard-deleted.
func (s *Service) RemoveMember(ctx context.Context, accountID, memberUserID, actingUserID int64) error {
	if _, err := s.ownedAccount(ctx, accountID, actingUserID); err != nil {
		return err
	}
	member, err := s.repo.GetActiveMember(ctx, accountID, memberUserID)
	if err != nil {
		return err
	}
	return s.repo.DeactivateMember(ctx, member.ID)
}

func (s *Service) ownedAccount(ctx context.Context, accountID, userID int64) (Account, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if acc.OwnerID != userID {
		return Account{}, ErrNotOwner
	}
	return acc, nil
}
