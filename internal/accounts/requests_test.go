package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carteira-app/carteira/internal/shared"
)

func TestAccessRequestApprovalFlow(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	req, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)
	require.Equal(t, RequestPending, req.Status)
	require.Equal(t, int64(1), req.OwnerID)

	ok, err := svc.Gate().HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, ok, "no access until approval")

	require.NoError(t, svc.Approve(context.Background(), req.ID, 1))

	ok, err = svc.Gate().HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := svc.repo.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, got.Status)
	require.NotNil(t, got.RespondedAt)

	// the grant carries no delegation right
	member, err := svc.repo.GetActiveMember(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, member.CanAddUsers)
}

func TestRejectGrantsNothing(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	req, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Reject(context.Background(), req.ID, 1))

	ok, err := svc.Gate().HasAccess(context.Background(), acc.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRequestAccessRejectsMissingAccount(t *testing.T) {
	svc, _ := newTestAccounts(t)

	_, err := svc.RequestAccess(context.Background(), 999, 2, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRequestAccessRejectsExistingAccess(t *testing.T) {
	svc, repo := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	_, err := svc.RequestAccess(context.Background(), acc.ID, 1, nil)
	require.ErrorIs(t, err, ErrAlreadyMember, "owner cannot request their own account")

	_, err = repo.CreateMember(context.Background(), acc.ID, 2, false)
	require.NoError(t, err)
	_, err = svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestDuplicatePendingRequestConflicts(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	_, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)

	_, err = svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.ErrorIs(t, err, ErrRequestPending)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestNewRequestAllowedAfterRejection(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	first, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Reject(context.Background(), first.ID, 1))

	second, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestRespondRequiresRecordedOwner(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	req, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)

	// neither a stranger nor the requester may respond
	require.ErrorIs(t, svc.Approve(context.Background(), req.ID, 3), ErrNotRequestOwner)
	require.ErrorIs(t, svc.Reject(context.Background(), req.ID, 2), ErrNotRequestOwner)
}

func TestTerminalRequestsAreImmutable(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	req, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), req.ID, 1))

	require.ErrorIs(t, svc.Approve(context.Background(), req.ID, 1), ErrRequestClosed)
	require.ErrorIs(t, svc.Reject(context.Background(), req.ID, 1), ErrRequestClosed)
	require.ErrorIs(t, svc.Cancel(context.Background(), req.ID, 2), ErrRequestClosed)
}

func TestCancelOnlyByRequester(t *testing.T) {
	svc, _ := newTestAccounts(t)
	acc := mustCreateAccount(t, svc, 1)

	req, err := svc.RequestAccess(context.Background(), acc.ID, 2, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(context.Background(), req.ID, 1), ErrNotRequester)
	require.NoError(t, svc.Cancel(context.Background(), req.ID, 2))

	got, err := svc.repo.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, RequestCancelled, got.Status)
}

func TestListReceivedAndSent(t *testing.T) {
	svc, _ := newTestAccounts(t)
	accA := mustCreateAccount(t, svc, 1)
	accB, err := svc.Create(context.Background(), CreateAccountInput{Name: "second", OwnerID: 3})
	require.NoError(t, err)

	first, err := svc.RequestAccess(context.Background(), accA.ID, 2, nil)
	require.NoError(t, err)
	second, err := svc.RequestAccess(context.Background(), accB.ID, 2, nil)
	require.NoError(t, err)

	received, err := svc.ListReceived(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, first.ID, received[0].ID)

	sent, err := svc.ListSent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	// newest first
	require.Equal(t, second.ID, sent[0].ID)
	require.Equal(t, first.ID, sent[1].ID)
}
