package accounts

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carteira-app/carteira/internal/shared"
)

type memoryAccountsRepo struct {
	accounts   map[int64]Account
	members    map[int64]Member
	requests   map[int64]AccessRequest
	nextID     int64
	nextMember int64
	nextReq    int64
}

func newMemoryAccountsRepo() *memoryAccountsRepo {
	return &memoryAccountsRepo{
		accounts: make(map[int64]Account),
		members:  make(map[int64]Member),
		requests: make(map[int64]AccessRequest),
	}
}

func (r *memoryAccountsRepo) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	r.nextID++
	acc := Account{
		ID:          r.nextID,
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *memoryAccountsRepo) GetAccount(ctx context.Context, id int64) (Account, error) {
	acc, ok := r.accounts[id]
	if !ok || acc.DeletedAt != nil {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (r *memoryAccountsRepo) UpdateAccount(ctx context.Context, acc Account) error {
	if _, ok := r.accounts[acc.ID]; !ok {
		return ErrAccountNotFound
	}
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memoryAccountsRepo) ListAccountsForUser(ctx context.Context, userID int64) ([]Account, error) {
	var out []Account
	for _, acc := range r.accounts {
		if acc.DeletedAt != nil {
			continue
		}
		if acc.OwnerID == userID {
			out = append(out, acc)
			continue
		}
		for _, m := range r.members {
			if m.AccountID == acc.ID && m.UserID == userID && m.IsActive {
				out = append(out, acc)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryAccountsRepo) HasActiveMember(ctx context.Context, accountID, userID int64) (bool, error) {
	for _, m := range r.members {
		if m.AccountID == accountID && m.UserID == userID && m.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAccountsRepo) GetActiveMember(ctx context.Context, accountID, userID int64) (Member, error) {
	for _, m := range r.members {
		if m.AccountID == accountID && m.UserID == userID && m.IsActive {
			return m, nil
		}
	}
	return Member{}, ErrMemberNotFound
}

func (r *memoryAccountsRepo) CreateMember(ctx context.Context, accountID, userID int64, canAddUsers bool) (Member, error) {
	if ok, _ := r.HasActiveMember(ctx, accountID, userID); ok {
		return Member{}, fmt.Errorf("membership already active: %w", shared.ErrConflict)
	}
	r.nextMember++
	m := Member{
		ID:          r.nextMember,
		AccountID:   accountID,
		UserID:      userID,
		CanAddUsers: canAddUsers,
		IsActive:    true,
		JoinedAt:    time.Now().UTC(),
	}
	r.members[m.ID] = m
	return m, nil
}

func (r *memoryAccountsRepo) DeactivateMember(ctx context.Context, memberID int64) error {
	m, ok := r.members[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	m.IsActive = false
	r.members[memberID] = m
	return nil
}

func (r *memoryAccountsRepo) ListMembers(ctx context.Context, accountID int64) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		if m.AccountID == accountID && m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryAccountsRepo) CreateRequest(ctx context.Context, req AccessRequest) (AccessRequest, error) {
	if ok, _ := r.HasPendingRequest(ctx, req.AccountID, req.RequesterID); ok {
		return AccessRequest{}, ErrRequestPending
	}
	r.nextReq++
	req.ID = r.nextReq
	r.requests[req.ID] = req
	return req, nil
}

func (r *memoryAccountsRepo) GetRequest(ctx context.Context, id int64) (AccessRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return AccessRequest{}, ErrRequestNotFound
	}
	return req, nil
}

func (r *memoryAccountsRepo) UpdateRequest(ctx context.Context, req AccessRequest) error {
	if _, ok := r.requests[req.ID]; !ok {
		return ErrRequestNotFound
	}
	r.requests[req.ID] = req
	return nil
}

func (r *memoryAccountsRepo) HasPendingRequest(ctx context.Context, accountID, requesterID int64) (bool, error) {
	for _, req := range r.requests {
		if req.AccountID == accountID && req.RequesterID == requesterID && req.Status == RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAccountsRepo) ListRequestsByOwner(ctx context.Context, ownerID int64) ([]AccessRequest, error) {
	return r.listRequests(func(req AccessRequest) bool { return req.OwnerID == ownerID }), nil
}

func (r *memoryAccountsRepo) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]AccessRequest, error) {
	return r.listRequests(func(req AccessRequest) bool { return req.RequesterID == requesterID }), nil
}

func (r *memoryAccountsRepo) listRequests(match func(AccessRequest) bool) []AccessRequest {
	var out []AccessRequest
	for _, req := range r.requests {
		if match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

var _ Repository = (*memoryAccountsRepo)(nil)

func newTestAccounts(t *testing.T) (*Service, *memoryAccountsRepo) {
	t.Helper()
	repo := newMemoryAccountsRepo()
	return NewService(repo, NewGate(repo)), repo
}

func mustCreateAccount(t *testing.T, svc *Service, ownerID int64) Account {
	t.Helper()
	acc, err := svc.Create(context.Background(), CreateAccountInput{Name: "household", OwnerID: ownerID})
	require.NoError(t, err)
	return acc
}

func TestGateOwnerAndMemberAccess(t *testing.T) {
	svc, repo := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)
	gate := svc.Gate()

	ok, err := gate.HasAccess(context.Background(), acc.ID, 1)
	require.NoError(t, err)
	require.True(t, ok, "owner has structural access")

	ok, err = gate.HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.CreateMember(context.Background(), acc.ID, 2, false)
	require.NoError(t, err)

	ok, err = gate.HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGateMissingAccountIsFalseNotError(t *testing.T) {
	svc, _ := newTestAccounts(t)
	gate := svc.Gate()

	ok, err := gate.HasAccess(context.Background(), 999, 1)
	require.NoError(t, err)
	require.False(t, ok)

	err = gate.RequireAccess(context.Background(), 999, 1)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestGateInactiveGrantDeniesAccess(t *testing.T) {
	svc, repo := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	m, err := repo.CreateMember(context.Background(), acc.ID, 2, false)
	require.NoError(t, err)
	require.NoError(t, repo.DeactivateMember(context.Background(), m.ID))

	ok, err := svc.Gate().HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequireAccessToAllFailsFast(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)
	gate := svc.Gate()

	require.NoError(t, gate.RequireAccessToAll(context.Background(), []int64{acc.ID}, 1))
	require.ErrorIs(t, gate.RequireAccessToAll(context.Background(), []int64{acc.ID, 999}, 1), shared.ErrUnauthorized)
	require.ErrorIs(t, gate.RequireAccessToAll(context.Background(), nil, 1), shared.ErrInvalidArgument)
}

func TestOwnerOnlyOperations(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	_, err := svc.Update(context.Background(), acc.ID, 2, UpdateAccountInput{Name: "hijack"})
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.Delete(context.Background(), acc.ID, 2)
	require.ErrorIs(t, err, ErrNotOwner)

	renamed, err := svc.Update(context.Background(), acc.ID, 1, UpdateAccountInput{Name: "family"})
	require.NoError(t, err)
	require.Equal(t, "family", renamed.Name)
}

func TestDeleteIsSoft(t *testing.T) {
	svc, repo := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	require.NoError(t, svc.Delete(context.Background(), acc.ID, 1))

	_, err := svc.Get(context.Background(), acc.ID, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)

	raw := repo.accounts[acc.ID]
	require.NotNil(t, raw.DeletedAt)
}

func TestRemoveMemberDeactivates(t *testing.T) {
	svc, repo := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)
	m, err := repo.CreateMember(context.Background(), acc.ID, 2, false)
	require.NoError(t, err)

	require.ErrorIs(t, svc.RemoveMember(context.Background(), acc.ID, 2, 3), ErrNotOwner)
	require.NoError(t, svc.RemoveMember(context.Background(), acc.ID, 2, 1))

	raw := repo.members[m.ID]
	require.False(t, raw.IsActive)

	ok, err := svc.Gate().HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListForUserIncludesGrants(t *testing.T) {
	svc, repo := newTestAccounts(t)
	mine := mustCreateAccount(t, svc, 1)
	theirs, err := svc.Create(context.Background(), CreateAccountInput{Name: "shared", OwnerID: 2})
	require.NoError(t, err)
	_, err = repo.CreateMember(context.Background(), theirs.ID, 1, false)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateAccountInput{Name: "private", OwnerID: 3})
	require.NoError(t, err)

	list, err := svc.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, mine.ID, list[0].ID)
	require.Equal(t, theirs.ID, list[1].ID)
}
