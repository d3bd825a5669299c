package transactions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Query enforces access control on every read and aggregate path before
// touching the repository. Explicit account-id sets are all-or-nothing;
// the implicit "everything visible to me" listing filters instead.
type Query struct {
	repo Repository
	gate AccessGate
	now  func() time.Time
}

// NewQuery constructs a Query.
func NewQuery(repo Repository, gate AccessGate) *Query {
	return &Query{
		repo: repo,
		gate: gate,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ListForUser returns every non-deleted transaction whose account the user
// can access. Inaccessible rows are silently dropped rather than failing the
// call; there is no caller-supplied account set here to fail closed on.
func (q *Query) ListForUser(ctx context.Context, userID int64) ([]Transaction, error) {
	all, err := q.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]Transaction, 0, len(all))
	allowed := make(map[int64]bool)
	for _, tx := range all {
		ok, seen := allowed[tx.AccountID]
		if !seen {
			ok, err = q.gate.HasAccess(ctx, tx.AccountID, userID)
			if err != nil {
				return nil, err
			}
			allowed[tx.AccountID] = ok
		}
		if ok {
			visible = append(visible, tx)
		}
	}
	return visible, nil
}

// ListByPeriod lists by due date over an explicit account set.
func (q *Query) ListByPeriod(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListByPeriod(ctx, accountIDs, from, to)
}

// ListByCategory lists by category over an explicit account set.
func (q *Query) ListByCategory(ctx context.Context, userID, categoryID int64, accountIDs []int64) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListByCategory(ctx, categoryID, accountIDs)
}

// ListByKind lists income or expense entries over an explicit account set.
func (q *Query) ListByKind(ctx context.Context, userID int64, kind Kind, accountIDs []int64) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListByKind(ctx, kind, accountIDs)
}

// ListByStatus lists by status over an explicit account set.
func (q *Query) ListByStatus(ctx context.Context, userID int64, status Status, accountIDs []int64) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListByStatus(ctx, status, accountIDs)
}

// ListOverdue lists pending entries past their due date.
func (q *Query) ListOverdue(ctx context.Context, userID int64, accountIDs []int64) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListOverdue(ctx, accountIDs, q.now())
}

// ListRecurring lists recurring entries over an explicit account set.
func (q *Query) ListRecurring(ctx context.Context, userID int64, accountIDs []int64) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListRecurring(ctx, accountIDs)
}

// Balance sums realized cash flow (Paid rows, payment date within the range):
// income minus expense.
func (q *Query) Balance(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) (decimal.Decimal, error) {
	paid, err := q.paidInRange(ctx, userID, accountIDs, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, tx := range paid {
		if tx.Kind == KindIncome {
			balance = balance.Add(tx.Amount)
		} else {
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance, nil
}

// TotalIncome sums Paid income within the payment-date range.
func (q *Query) TotalIncome(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) (decimal.Decimal, error) {
	return q.totalByKind(ctx, userID, accountIDs, from, to, KindIncome)
}

// TotalExpense sums Paid expense within the payment-date range.
func (q *Query) TotalExpense(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) (decimal.Decimal, error) {
	return q.totalByKind(ctx, userID, accountIDs, from, to, KindExpense)
}

// Summary computes balance and both totals concurrently.
func (q *Query) Summary(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) (Summary, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return Summary{}, err
	}
	var summary Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Balance, err = q.Balance(gctx, userID, accountIDs, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TotalIncome, err = q.TotalIncome(gctx, userID, accountIDs, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TotalExpense, err = q.TotalExpense(gctx, userID, accountIDs, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (q *Query) totalByKind(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time, kind Kind) (decimal.Decimal, error) {
	paid, err := q.paidInRange(ctx, userID, accountIDs, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, tx := range paid {
		if tx.Kind == kind {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (q *Query) paidInRange(ctx context.Context, userID int64, accountIDs []int64, from, to time.Time) ([]Transaction, error) {
	if err := q.gate.RequireAccessToAll(ctx, accountIDs, userID); err != nil {
		return nil, err
	}
	return q.repo.ListPaidBetween(ctx, accountIDs, from, to)
}
