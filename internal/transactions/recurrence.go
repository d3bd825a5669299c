package transactions

import "time"

// nextDueDate advances a due date by one recurrence step. Monthly and yearly
// steps clamp to the last day of the target month (Jan 31 + 1 month =
// Feb 28/29), matching how calendar arithmetic on billing dates is expected
// to behave.
func nextDueDate(d time.Time, r Recurrence) time.Time {
	switch r {
	case RecurrenceDaily:
		return d.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return d.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return addMonthsClamped(d, 1)
	case RecurrenceYearly:
		return addMonthsClamped(d, 12)
	default:
		return d
	}
}

// installmentDueDate computes the due date of installment n (1-based) by
// stepping from the previous computed date, so month-end drift compounds:
// a monthly series from Jan 31 runs Jan 31, Feb 28, Mar 28.
func installmentDueDate(first time.Time, r Recurrence, n int) time.Time {
	d := first
	for k := 1; k < n; k++ {
		d = nextDueDate(d, r)
	}
	return d
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if max := daysInMonth(firstOfTarget); day > max {
		day = max
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
