package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/carteira-app/carteira/internal/shared"
)

func newTestQuery() (*Query, *memoryTxRepo, *stubGate) {
	repo := newMemoryTxRepo()
	gate := newStubGate()
	q := NewQuery(repo, gate)
	q.now = fixedClock(date(2025, time.June, 1))
	return q, repo, gate
}

func seed(repo *memoryTxRepo, tx Transaction) Transaction {
	created, _ := repo.Create(context.Background(), tx)
	return created
}

func paidTx(accountID int64, kind Kind, amount int64, paidOn time.Time) Transaction {
	return Transaction{
		Description: "seed",
		Amount:      decimal.NewFromInt(amount),
		DueDate:     paidOn.AddDate(0, 0, -3),
		PaymentDate: &paidOn,
		Kind:        kind,
		Status:      StatusPaid,
		CategoryID:  10,
		AccountID:   accountID,
	}
}

func TestListForUserFiltersInaccessible(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)

	mine := seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.June, 5)})
	seed(repo, Transaction{AccountID: 2, Status: StatusPending, DueDate: date(2025, time.June, 6)})

	visible, err := q.ListForUser(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, mine.ID, visible[0].ID)
}

func TestExplicitAccountSetFailsClosed(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)

	seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.June, 5)})

	// one bad id in the set fails the whole call, nothing partial comes back
	list, err := q.ListByPeriod(context.Background(), 100, []int64{1, 2},
		date(2025, time.June, 1), date(2025, time.June, 30))
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	require.Nil(t, list)
}

func TestExplicitAccountSetRejectsEmpty(t *testing.T) {
	q, _, _ := newTestQuery()

	_, err := q.ListByStatus(context.Background(), 100, StatusPending, nil)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = q.Summary(context.Background(), 100, nil, date(2025, time.June, 1), date(2025, time.June, 30))
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestListByPeriodUsesDueDate(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)

	in := seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.June, 15)})
	seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.July, 1)})

	list, err := q.ListByPeriod(context.Background(), 100, []int64{1},
		date(2025, time.June, 1), date(2025, time.June, 30))
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, in.ID, list[0].ID)
}

func TestListOverdue(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)

	late := seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.May, 20)})
	seed(repo, Transaction{AccountID: 1, Status: StatusPaid, DueDate: date(2025, time.May, 20)})
	seed(repo, Transaction{AccountID: 1, Status: StatusPending, DueDate: date(2025, time.June, 20)})

	list, err := q.ListOverdue(context.Background(), 100, []int64{1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, late.ID, list[0].ID)
}

func TestAggregatesUsePaymentDate(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)

	// paid inside the window
	seed(repo, paidTx(1, KindIncome, 1000, date(2025, time.June, 5)))
	seed(repo, paidTx(1, KindExpense, 300, date(2025, time.June, 10)))
	// paid outside the window, due inside it: aggregation must skip it
	outside := paidTx(1, KindExpense, 9999, date(2025, time.July, 2))
	outside.DueDate = date(2025, time.June, 20)
	seed(repo, outside)
	// pending inside the window: unrealized, skipped
	seed(repo, Transaction{AccountID: 1, Kind: KindIncome, Amount: decimal.NewFromInt(500),
		Status: StatusPending, DueDate: date(2025, time.June, 8), CategoryID: 10})

	from, to := date(2025, time.June, 1), date(2025, time.June, 30)

	balance, err := q.Balance(context.Background(), 100, []int64{1}, from, to)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(700).Equal(balance), "got %s", balance)

	income, err := q.TotalIncome(context.Background(), 100, []int64{1}, from, to)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1000).Equal(income))

	expense, err := q.TotalExpense(context.Background(), 100, []int64{1}, from, to)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(300).Equal(expense))
}

func TestSummaryMatchesPartials(t *testing.T) {
	q, repo, gate := newTestQuery()
	gate.allow(1, 100)
	gate.allow(2, 100)

	seed(repo, paidTx(1, KindIncome, 250, date(2025, time.June, 3)))
	seed(repo, paidTx(2, KindExpense, 100, date(2025, time.June, 4)))

	summary, err := q.Summary(context.Background(), 100, []int64{1, 2},
		date(2025, time.June, 1), date(2025, time.June, 30))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(150).Equal(summary.Balance))
	require.True(t, decimal.NewFromInt(250).Equal(summary.TotalIncome))
	require.True(t, decimal.NewFromInt(100).Equal(summary.TotalExpense))
}
