package transactions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDateSteps(t *testing.T) {
	start := date(2025, time.January, 15)

	require.Equal(t, date(2025, time.January, 16), nextDueDate(start, RecurrenceDaily))
	require.Equal(t, date(2025, time.January, 22), nextDueDate(start, RecurrenceWeekly))
	require.Equal(t, date(2025, time.February, 15), nextDueDate(start, RecurrenceMonthly))
	require.Equal(t, date(2026, time.January, 15), nextDueDate(start, RecurrenceYearly))
	require.Equal(t, start, nextDueDate(start, RecurrenceNone))
}

func TestNextDueDateClampsMonthEnd(t *testing.T) {
	require.Equal(t, date(2025, time.February, 28), nextDueDate(date(2025, time.January, 31), RecurrenceMonthly))
	require.Equal(t, date(2024, time.February, 29), nextDueDate(date(2024, time.January, 31), RecurrenceMonthly))
	require.Equal(t, date(2025, time.April, 30), nextDueDate(date(2025, time.March, 31), RecurrenceMonthly))
}

func TestYearlyClampsLeapDay(t *testing.T) {
	require.Equal(t, date(2025, time.February, 28), nextDueDate(date(2024, time.February, 29), RecurrenceYearly))
}

func TestInstallmentDueDateCompounds(t *testing.T) {
	// clamped dates keep stepping from the clamped day, they do not snap back
	first := date(2025, time.January, 31)

	require.Equal(t, date(2025, time.January, 31), installmentDueDate(first, RecurrenceMonthly, 1))
	require.Equal(t, date(2025, time.February, 28), installmentDueDate(first, RecurrenceMonthly, 2))
	require.Equal(t, date(2025, time.March, 28), installmentDueDate(first, RecurrenceMonthly, 3))
}

func TestInstallmentDueDateWeekly(t *testing.T) {
	first := date(2025, time.June, 2)
	require.Equal(t, date(2025, time.June, 23), installmentDueDate(first, RecurrenceWeekly, 4))
}
