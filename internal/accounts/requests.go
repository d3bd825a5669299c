package accounts

import (
	"context"
	"fmt"

	"github.com/carteira-app/carteira/internal/shared"
)

var (
	ErrRequestNotFound = fmt.Errorf("access request %w", shared.ErrNotFound)
	// ErrAlreadyMember is returned when the requester already has access.
	ErrAlreadyMember = fmt.Errorf("requester already has access: %w", shared.ErrConflict)
	// ErrRequestPending is returned when a pending request for the pair exists.
	ErrRequestPending = fmt.Errorf("a pending request already exists: %w", shared.ErrConflict)
	// ErrRequestClosed is returned when acting on a request in a terminal state.
	ErrRequestClosed = fmt.Errorf("request is no longer pending: %w", shared.ErrInvalidOperation)
	// ErrNotRequestOwner is returned when the actor is not the recorded owner.
	ErrNotRequestOwner = fmt.Errorf("only the account owner may respond: %w", shared.ErrUnauthorized)
	// ErrNotRequester is returned when the actor is not the recorded requester.
	ErrNotRequester = fmt.Errorf("only the requester may cancel: %w", shared.ErrUnauthorized)
)

// RequestAccess opens a Pending request from requester to the account's owner.
// The backing store's partial unique index is the arbiter against concurrent
// duplicate requests; the repository surfaces its violation as a conflict.
func (s *Service) RequestAccess(ctx context.Context, accountID, requesterID int64, message *string) (AccessRequest, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return AccessRequest{}, err
	}
	hasAccess, err := s.gate.HasAccess(ctx, accountID, requesterID)
	if err != nil {
		return AccessRequest{}, err
	}
	if hasAccess {
		return AccessRequest{}, ErrAlreadyMember
	}
	pending, err := s.repo.HasPendingRequest(ctx, accountID, requesterID)
	if err != nil {
		return AccessRequest{}, err
	}
	if pending {
		return AccessRequest{}, ErrRequestPending
	}
	return s.repo.CreateRequest(ctx, AccessRequest{
		AccountID:   accountID,
		RequesterID: requesterID,
		OwnerID:     acc.OwnerID,
		Status:      RequestPending,
		Message:     message,
		CreatedAt:   s.now(),
	})
}

// Approve transitions a pending request to Approved and grants membership.
// The grant is created with CanAddUsers=false.
func (s *Service) Approve(ctx context.Context, requestID, actingOwnerID int64) error {
	req, err := s.respondable(ctx, requestID, actingOwnerID)
	if err != nil {
		return err
	}
	when := s.now()
	req.Status = RequestApproved
	req.RespondedAt = &when
	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return err
	}
	_, err = s.repo.CreateMember(ctx, req.AccountID, req.RequesterID, false)
	return err
}

// Reject transitions a pending request to Rejected. No grant is created.
func (s *Service) Reject(ctx context.Context, requestID, actingOwnerID int64) error {
	req, err := s.respondable(ctx, requestID, actingOwnerID)
	if err != nil {
		return err
	}
	when := s.now()
	req.Status = RequestRejected
	req.RespondedAt = &when
	return s.repo.UpdateRequest(ctx, req)
}

// Cancel lets the requester withdraw a pending request.
func (s *Service) Cancel(ctx context.Context, requestID, actingRequesterID int64) error {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != actingRequesterID {
		return ErrNotRequester
	}
	if req.Status != RequestPending {
		return ErrRequestClosed
	}
	when := s.now()
	req.Status = RequestCancelled
	req.RespondedAt = &when
	return s.repo.UpdateRequest(ctx, req)
}

// ListReceived returns requests addressed to an owner, newest first.
func (s *Service) ListReceived(ctx context.Context, ownerID int64) ([]AccessRequest, error) {
	return s.repo.ListRequestsByOwner(ctx, ownerID)
}

// ListSent returns requests a user has made, newest first.
func (s *Service) ListSent(ctx context.Context, requesterID int64) ([]AccessRequest, error) {
	return s.repo.ListRequestsByRequester(ctx, requesterID)
}

func (s *Service) respondable(ctx context.Context, requestID, actingOwnerID int64) (AccessRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return AccessRequest{}, err
	}
	if req.OwnerID != actingOwnerID {
		return AccessRequest{}, ErrNotRequestOwner
	}
	if req.Status != RequestPending {
		return AccessRequest{}, ErrRequestClosed
	}
	return req, nil
}
