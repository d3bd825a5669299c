package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/carteira-app/carteira/internal/shared"
)

var (
	ErrTransactionNotFound = fmt.Errorf("transaction %w", shared.ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", shared.ErrNotFound)
	// ErrNotSeriesParent is returned by series operations aimed at a
	// standalone transaction or a series child.
	ErrNotSeriesParent = fmt.Errorf("transaction is not a series parent: %w", shared.ErrInvalidOperation)
	// ErrRecurrenceMismatch is returned when the recurring flag and the
	// recurrence kind disagree.
	ErrRecurrenceMismatch = fmt.Errorf("recurring transaction requires a recurrence kind: %w", shared.ErrInvalidOperation)
)

// AccessGate is the authorization contract every operation funnels through.
// Satisfied by accounts.Gate.
type AccessGate interface {
	HasAccess(ctx context.Context, accountID, userID int64) (bool, error)
	RequireAccess(ctx context.Context, accountID, userID int64) error
	RequireAccessToAll(ctx context.Context, accountIDs []int64, userID int64) error
}

// CategoryLookup is the category existence contract. Satisfied by
// categories.Service.
type CategoryLookup interface {
	Exists(ctx context.Context, categoryID int64) (bool, error)
}

// Service is the recurring transaction engine: it creates, extends and
// resynchronizes series while keeping per-child status independent.
type Service struct {
	repo       Repository
	gate       AccessGate
	categories CategoryLookup
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, gate AccessGate, categories CategoryLookup) *Service {
	return &Service{
		repo:       repo,
		gate:       gate,
		categories: categories,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Create persists a transaction for the user. When the input is recurring the
// whole series is generated in the same call and the parent is returned.
// Access to the target account is checked before any other validation.
func (s *Service) Create(ctx context.Context, input Input, userID int64) (Transaction, error) {
	if err := s.gate.RequireAccess(ctx, input.AccountID, userID); err != nil {
		return Transaction{}, err
	}
	if input.IsRecurring {
		series, err := s.createSeries(ctx, input, input.Installments)
		if err != nil {
			return Transaction{}, err
		}
		return series[0], nil
	}
	if input.Recurrence != "" && input.Recurrence != RecurrenceNone {
		return Transaction{}, ErrRecurrenceMismatch
	}
	if err := s.requireCategory(ctx, input.CategoryID); err != nil {
		return Transaction{}, err
	}
	now := s.now()
	return s.repo.Create(ctx, Transaction{
		Description: input.Description,
		Amount:      input.Amount,
		DueDate:     input.DueDate,
		Kind:        input.Kind,
		Status:      StatusPending,
		Notes:       input.Notes,
		CategoryID:  input.CategoryID,
		AccountID:   input.AccountID,
		Recurrence:  RecurrenceNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// CreateSeries creates a full recurring series and returns every installment,
// parent first. The installment count defaults to DefaultInstallments.
func (s *Service) CreateSeries(ctx context.Context, input Input, installmentCount *int, userID int64) ([]Transaction, error) {
	if err := s.gate.RequireAccess(ctx, input.AccountID, userID); err != nil {
		return nil, err
	}
	return s.createSeries(ctx, input, installmentCount)
}

func (s *Service) createSeries(ctx context.Context, input Input, installmentCount *int) ([]Transaction, error) {
	if !input.IsRecurring || input.Recurrence == "" || input.Recurrence == RecurrenceNone {
		return nil, ErrRecurrenceMismatch
	}
	if err := s.requireCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	count := DefaultInstallments
	if installmentCount != nil && *installmentCount > 0 {
		count = *installmentCount
	}

	now := s.now()
	first := 1
	parent := Transaction{
		Description:  input.Description,
		Amount:       input.Amount,
		DueDate:      input.DueDate,
		Kind:         input.Kind,
		Status:       StatusPending,
		Notes:        input.Notes,
		CategoryID:   input.CategoryID,
		AccountID:    input.AccountID,
		IsRecurring:  true,
		Recurrence:   input.Recurrence,
		Installments: &count,
		Installment:  &first,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	parent, err := s.repo.Create(ctx, parent)
	if err != nil {
		return nil, err
	}

	children, err := s.repo.CreateBatch(ctx, buildChildren(parent, count, now))
	if err != nil {
		return nil, err
	}
	return append([]Transaction{parent}, children...), nil
}

// GenerateInstallments recomputes the child set from the parent's current
// fields and appends it, starting at installment 2. Calling it twice appends
// two full child sets; deduplication is deliberately not performed here.
func (s *Service) GenerateInstallments(ctx context.Context, parentID, userID int64) ([]Transaction, error) {
	parent, err := s.repo.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireAccess(ctx, parent.AccountID, userID); err != nil {
		return nil, err
	}
	if !parent.IsSeriesParent() {
		return nil, ErrNotSeriesParent
	}
	count := DefaultInstallments
	if parent.Installments != nil && *parent.Installments > 0 {
		count = *parent.Installments
	}
	return s.repo.CreateBatch(ctx, buildChildren(parent, count, s.now()))
}

// buildChildren produces installments 2..count linked to the parent, each due
// date stepped from the previous one.
func buildChildren(parent Transaction, count int, now time.Time) []Transaction {
	children := make([]Transaction, 0, count-1)
	due := parent.DueDate
	for k := 2; k <= count; k++ {
		due = nextDueDate(due, parent.Recurrence)
		installment := k
		children = append(children, Transaction{
			Description:  parent.Description,
			Amount:       parent.Amount,
			DueDate:      due,
			Kind:         parent.Kind,
			Status:       StatusPending,
			Notes:        parent.Notes,
			CategoryID:   parent.CategoryID,
			AccountID:    parent.AccountID,
			IsRecurring:  true,
			Recurrence:   parent.Recurrence,
			Installments: parent.Installments,
			Installment:  &installment,
			ParentID:     &parent.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return children
}

// Get returns a transaction the user has access to.
func (s *Service) Get(ctx context.Context, id, userID int64) (Transaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.gate.RequireAccess(ctx, tx.AccountID, userID); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Update edits a single transaction. A series parent delegates to
// UpdateSeries; anything else is edited on this one row only. When the input
// moves the transaction between accounts both accounts must be authorized
// before any mutation.
func (s *Service) Update(ctx context.Context, id int64, input Input, userID int64) (Transaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.authorizeEdit(ctx, tx, input, userID); err != nil {
		return Transaction{}, err
	}
	if tx.IsSeriesParent() {
		series, err := s.updateSeries(ctx, tx, input)
		if err != nil {
			return Transaction{}, err
		}
		return series[0], nil
	}
	if err := s.requireCategory(ctx, input.CategoryID); err != nil {
		return Transaction{}, err
	}
	applyInput(&tx, input)
	tx.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// UpdateSeries updates a series parent and resynchronizes its future unpaid
// children. Children already Paid or Cancelled are never touched. Returns the
// updated parent followed by the updated children.
func (s *Service) UpdateSeries(ctx context.Context, parentID int64, input Input, userID int64) ([]Transaction, error) {
	parent, err := s.repo.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEdit(ctx, parent, input, userID); err != nil {
		return nil, err
	}
	return s.updateSeries(ctx, parent, input)
}

func (s *Service) updateSeries(ctx context.Context, parent Transaction, input Input) ([]Transaction, error) {
	if !parent.IsSeriesParent() {
		return nil, ErrNotSeriesParent
	}
	if err := s.requireCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	oldDue := parent.DueDate
	applyInput(&parent, input)
	parent.UpdatedAt = now
	deltaDays := daysBetween(oldDue, parent.DueDate)

	children, err := s.repo.ListFutureChildren(ctx, parent.ID, now)
	if err != nil {
		return nil, err
	}

	updated := []Transaction{parent}
	for _, child := range children {
		if child.Status != StatusPending {
			continue
		}
		child.Description = input.Description
		child.Amount = input.Amount
		child.Kind = input.Kind
		child.Notes = input.Notes
		child.CategoryID = input.CategoryID
		child.AccountID = input.AccountID
		child.DueDate = child.DueDate.AddDate(0, 0, deltaDays)
		child.IsRecurring = input.IsRecurring
		child.Recurrence = input.Recurrence
		child.Installments = input.Installments
		child.UpdatedAt = now
		updated = append(updated, child)
	}

	if err := s.repo.Update(ctx, parent); err != nil {
		return nil, err
	}
	if len(updated) > 1 {
		if err := s.repo.UpdateBatch(ctx, updated[1:]); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// MarkPaid marks a single transaction paid. The payment date defaults to now.
// Parents and children are independent: nothing cascades.
func (s *Service) MarkPaid(ctx context.Context, id int64, paymentDate *time.Time, userID int64) (Transaction, error) {
	return s.transition(ctx, id, userID, func(tx *Transaction) {
		tx.Status = StatusPaid
		when := s.now()
		if paymentDate != nil {
			when = *paymentDate
		}
		tx.PaymentDate = &when
	})
}

// MarkPending resets a transaction to pending and clears the payment date.
func (s *Service) MarkPending(ctx context.Context, id, userID int64) (Transaction, error) {
	return s.transition(ctx, id, userID, func(tx *Transaction) {
		tx.Status = StatusPending
		tx.PaymentDate = nil
	})
}

// Cancel marks a single transaction cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID int64) (Transaction, error) {
	return s.transition(ctx, id, userID, func(tx *Transaction) {
		tx.Status = StatusCancelled
	})
}

// Delete soft-deletes a single transaction. Children and parents are left
// alone; the row drops out of every subsequent read.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.RequireAccess(ctx, tx.AccountID, userID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, s.now())
}

func (s *Service) transition(ctx context.Context, id, userID int64, mutate func(*Transaction)) (Transaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.gate.RequireAccess(ctx, tx.AccountID, userID); err != nil {
		return Transaction{}, err
	}
	mutate(&tx)
	tx.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// authorizeEdit checks the transaction's current account and, when the input
// moves it, the requested account as well. Both checks run before anything is
// written.
func (s *Service) authorizeEdit(ctx context.Context, tx Transaction, input Input, userID int64) error {
	if err := s.gate.RequireAccess(ctx, tx.AccountID, userID); err != nil {
		return err
	}
	if input.AccountID != tx.AccountID {
		if err := s.gate.RequireAccess(ctx, input.AccountID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) requireCategory(ctx context.Context, categoryID int64) error {
	ok, err := s.categories.Exists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}

func applyInput(tx *Transaction, input Input) {
	tx.Description = input.Description
	tx.Amount = input.Amount
	tx.DueDate = input.DueDate
	tx.Kind = input.Kind
	tx.Notes = input.Notes
	tx.CategoryID = input.CategoryID
	tx.AccountID = input.AccountID
	tx.IsRecurring = input.IsRecurring
	if input.IsRecurring {
		tx.Recurrence = input.Recurrence
		tx.Installments = input.Installments
	} else {
		tx.Recurrence = RecurrenceNone
		tx.Installments = nil
	}
}

// daysBetween returns the whole-day difference b - a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
