// Package core holds the domain model for period-bucketed financial
// reporting: transaction events coming in from the broker and the
// per-(user, period) running totals derived from them.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// PeriodLayout is the fixed-width year-month format used as the bucket key.
// Lexicographic order on period strings matches chronological order.
const PeriodLayout = "2006-01"

type (
	// TransactionType is an open string enum. Unknown values are tolerated
	// by the aggregation step and contribute nothing to the totals.
	TransactionType string

	// Date is a calendar date without a time component. It marshals to and
	// from ISO-8601 "YYYY-MM-DD", the format the transaction service emits.
	Date struct {
		time.Time
	}

	// TransactionEvent is the flat payload delivered for both the
	// "transaction created" and "transaction updated" channels. The event
	// carries the transaction's current state; identity and lifecycle stay
	// with the upstream transaction service.
	//
	// Amount is a pointer and Date has a zero value so that an absent field
	// can be told apart from a legitimate zero.
	TransactionEvent struct {
		TransactionID int64
		UserID        string
		Type          TransactionType
		Amount        *decimal.Decimal
		Date          Date
		Description   string
	}

	// Report is the persisted aggregate for one (user, period) pair.
	// Balance is derived and always equals TotalIncome - TotalExpense at
	// rest; it is recomputed on every update, never mutated on its own.
	Report struct {
		UserID       string          `json:"userId"`
		Period       string          `json:"period"`
		TotalIncome  decimal.Decimal `json:"totalIncome"`
		TotalExpense decimal.Decimal `json:"totalExpense"`
		Balance      decimal.Decimal `json:"balance"`
	}

	// RangeSummary folds a contiguous run of reports for one user into a
	// single view. It is derived on read and never persisted.
	RangeSummary struct {
		UserID       string          `json:"userId"`
		StartPeriod  string          `json:"startPeriod"`
		EndPeriod    string          `json:"endPeriod"`
		Reports      []Report        `json:"reports"`
		TotalIncome  decimal.Decimal `json:"totalIncome"`
		TotalExpense decimal.Decimal `json:"totalExpense"`
		Balance      decimal.Decimal `json:"balance"`
	}
)

var (
	ErrInvalidPeriod = errors.New("invalid period, want YYYY-MM")
	ErrEmptyUserID   = errors.New("empty user id")
)

// NewDate builds a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(`"2006-01-02"`, s)
	if err != nil {
		return fmt.Errorf("parse date %s: %w", s, err)
	}
	d.Time = t
	return nil
}

// Period truncates the date to month granularity, e.g. 2024-03-15 -> "2024-03".
func (d Date) Period() string {
	return d.Format(PeriodLayout)
}

// Incomplete reports whether any field required for aggregation is absent.
// Incomplete events are discarded by the intake without error.
func (e TransactionEvent) Incomplete() bool {
	return e.UserID == "" || e.Type == "" || e.Amount == nil || e.Date.IsZero()
}

// ValidPeriod checks a period string against the fixed "YYYY-MM" layout.
func ValidPeriod(s string) bool {
	if len(s) != len(PeriodLayout) {
		return false
	}
	_, err := time.Parse(PeriodLayout, s)
	return err == nil
}

// NewReport returns a zeroed aggregate for the given key. Totals start at
// zero so the first delta application behaves the same as any later one.
func NewReport(userID, period string) Report {
	return Report{
		UserID:       userID,
		Period:       period,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Balance:      decimal.Zero,
	}
}

// Apply folds one event's amount into the running totals. Unknown types
// contribute nothing. The balance is recomputed unconditionally so that it
// holds even when the delta was a no-op.
func (r *Report) Apply(typ TransactionType, amount decimal.Decimal) {
	switch typ {
	case Income:
		r.TotalIncome = r.TotalIncome.Add(amount)
	case Expense:
		r.TotalExpense = r.TotalExpense.Add(amount)
	}
	r.Balance = r.TotalIncome.Sub(r.TotalExpense)
}

// Summarize folds reports into a RangeSummary. Sums are order-independent;
// the reports slice is carried through in the order given, which callers are
// expected to have sorted ascending by period. A nil or empty slice yields
// zero totals and an empty sequence, not an error.
func Summarize(userID, startPeriod, endPeriod string, reports []Report) RangeSummary {
	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	for _, r := range reports {
		totalIncome = totalIncome.Add(r.TotalIncome)
		totalExpense = totalExpense.Add(r.TotalExpense)
	}
	if reports == nil {
		reports = []Report{}
	}
	return RangeSummary{
		UserID:       userID,
		StartPeriod:  startPeriod,
		EndPeriod:    endPeriod,
		Reports:      reports,
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		Balance:      totalIncome.Sub(totalExpense),
	}
}
