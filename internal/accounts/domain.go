package accounts

import (
	"time"
)

// Account is a shared wallet owned by one user.
type Account struct {
	ID          int64
	Name        string
	Description *string
	OwnerID     int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Member is an active grant giving a non-owner user access to an account.
// The owner never has a Member row; ownership is checked structurally.
type Member struct {
	ID          int64
	AccountID   int64
	UserID      int64
	CanAddUsers bool
	IsActive    bool
	JoinedAt    time.Time
}

// RequestStatus enumerates access request states.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// AccessRequest is a pending ask from a user to join another user's account.
// Pending is the only state that may transition; the other three are terminal.
type AccessRequest struct {
	ID          int64
	AccountID   int64
	RequesterID int64
	OwnerID     int64
	Status      RequestStatus
	Message     *string
	RespondedAt *time.Time
	CreatedAt   time.Time
}

// CreateAccountInput for creating accounts.
type CreateAccountInput struct {
	Name        string
	Description *string
	OwnerID     int64
}

// UpdateAccountInput for renaming/redescribing an account.
type UpdateAccountInput struct {
	Name        string
	Description *string
}
