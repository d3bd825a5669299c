package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates transaction directions.
type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

// Status enumerates transaction states. Overdue is a derived view-state for
// pending transactions past their due date, never stored.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Recurrence is the step unit used to compute each installment's due date
// from the previous one.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "NONE"
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
	RecurrenceYearly  Recurrence = "YEARLY"
)

// DefaultInstallments is used when a recurring creation does not say how many
// installments the series has.
const DefaultInstallments = 12

// Transaction is a single income/expense entry ("lançamento"). A transaction
// is standalone, a series parent (recurring, no parent reference) or a series
// child (parent reference set).
type Transaction struct {
	ID           int64
	Description  string
	Amount       decimal.Decimal
	DueDate      time.Time
	PaymentDate  *time.Time
	Kind         Kind
	Status       Status
	Notes        *string
	CategoryID   int64
	AccountID    int64
	IsRecurring  bool
	Recurrence   Recurrence
	Installments *int
	Installment  *int
	ParentID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsSeriesParent reports whether this transaction heads a recurring series.
func (t Transaction) IsSeriesParent() bool {
	return t.IsRecurring && t.ParentID == nil
}

// IsOverdue reports the derived overdue view-state.
func (t Transaction) IsOverdue(now time.Time) bool {
	return t.Status == StatusPending && t.DueDate.Before(now)
}

// Input carries the caller-supplied fields for create and update operations.
type Input struct {
	Description  string
	Amount       decimal.Decimal
	DueDate      time.Time
	Kind         Kind
	Notes        *string
	CategoryID   int64
	AccountID    int64
	IsRecurring  bool
	Recurrence   Recurrence
	Installments *int
}

// Summary aggregates realized cash flow over a period.
type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}
