package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/carteira-app/carteira/internal/shared"
)

// Gate is the single source of truth for "can user U act on account A".
// Every transaction and account operation funnels through it.
type Gate struct {
	repo Repository
}

// NewGate constructs a Gate.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// HasAccess reports whether the user is the account owner or holds an active
// membership grant. A missing account yields false, not an error.
func (g *Gate) HasAccess(ctx context.Context, accountID, userID int64) (bool, error) {
	acc, err := g.repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if acc.OwnerID == userID {
		return true, nil
	}
	return g.repo.HasActiveMember(ctx, accountID, userID)
}

// RequireAccess fails with an unauthorized error when HasAccess is false.
func (g *Gate) RequireAccess(ctx context.Context, accountID, userID int64) error {
	ok, err := g.HasAccess(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d: %w", accountID, shared.ErrUnauthorized)
	}
	return nil
}

// RequireAccessToAll checks every account id, failing fast on the first one
// the user may not touch. An empty set is an invalid argument: multi-account
// queries are all-or-nothing and never fall back to "everything".
func (g *Gate) RequireAccessToAll(ctx context.Context, accountIDs []int64, userID int64) error {
	if len(accountIDs) == 0 {
		return fmt.Errorf("account ids must not be empty: %w", shared.ErrInvalidArgument)
	}
	for _, id := range accountIDs {
		if err := g.RequireAccess(ctx, id, userID); err != nil {
			return err
		}
	}
	return nil
}
