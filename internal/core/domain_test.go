package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestDatePeriod(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             string
	}{
		{2024, 3, 15, "2024-03"},
		{2024, 12, 31, "2024-12"},
		{1999, 1, 1, "1999-01"},
	}
	for _, tc := range cases {
		got := NewDate(tc.year, tc.month, tc.day).Period()
		if got != tc.want {
			t.Fatalf("Period(%d-%d-%d) = %q, want %q", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 15)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-15"` {
		t.Fatalf("marshal = %s", b)
	}

	var back Date
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Period() != "2024-03" {
		t.Fatalf("round trip period = %q", back.Period())
	}

	var null Date
	if err := json.Unmarshal([]byte(`null`), &null); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !null.IsZero() {
		t.Fatal("null date should be zero")
	}
}

func TestEventIncomplete(t *testing.T) {
	amount := dec(t, "10.00")
	complete := TransactionEvent{
		TransactionID: 1,
		UserID:        "u1",
		Type:          Income,
		Amount:        &amount,
		Date:          NewDate(2024, 3, 15),
	}
	if complete.Incomplete() {
		t.Fatal("complete event reported incomplete")
	}

	cases := map[string]TransactionEvent{
		"no user":   {Type: Income, Amount: &amount, Date: NewDate(2024, 3, 15)},
		"no type":   {UserID: "u1", Amount: &amount, Date: NewDate(2024, 3, 15)},
		"no amount": {UserID: "u1", Type: Income, Date: NewDate(2024, 3, 15)},
		"no date":   {UserID: "u1", Type: Income, Amount: &amount},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			if !ev.Incomplete() {
				t.Fatal("expected incomplete")
			}
		})
	}
}

func TestReportApply(t *testing.T) {
	r := NewReport("u1", "2024-03")
	r.Apply(Income, dec(t, "100.00"))
	r.Apply(Expense, dec(t, "40.00"))

	if !r.TotalIncome.Equal(dec(t, "100.00")) {
		t.Fatalf("income = %s", r.TotalIncome)
	}
	if !r.TotalExpense.Equal(dec(t, "40.00")) {
		t.Fatalf("expense = %s", r.TotalExpense)
	}
	if !r.Balance.Equal(dec(t, "60.00")) {
		t.Fatalf("balance = %s", r.Balance)
	}
}

func TestReportApplyUnknownTypeRecomputesBalance(t *testing.T) {
	r := NewReport("u1", "2024-03")
	r.Apply(Income, dec(t, "10"))
	// Simulate a stale derived field, then apply an unknown type.
	r.Balance = dec(t, "999")
	r.Apply("TRANSFER", dec(t, "5"))

	if !r.TotalIncome.Equal(dec(t, "10")) || !r.TotalExpense.Equal(decimal.Zero) {
		t.Fatalf("totals changed: income=%s expense=%s", r.TotalIncome, r.TotalExpense)
	}
	if !r.Balance.Equal(dec(t, "10")) {
		t.Fatalf("balance not recomputed: %s", r.Balance)
	}
}

func TestReportApplyDecimalExact(t *testing.T) {
	// Amounts that would drift under binary floating point.
	r := NewReport("u1", "2024-01")
	for i := 0; i < 1000; i++ {
		r.Apply(Income, dec(t, "0.10"))
	}
	for i := 0; i < 300; i++ {
		r.Apply(Expense, dec(t, "0.01"))
	}
	if !r.Balance.Equal(dec(t, "97.00")) {
		t.Fatalf("balance = %s, want 97.00", r.Balance)
	}
}

func TestSummarize(t *testing.T) {
	jan := NewReport("u1", "2024-01")
	jan.Apply(Income, dec(t, "50"))
	jan.Apply(Expense, dec(t, "10"))
	feb := NewReport("u1", "2024-02")
	feb.Apply(Income, dec(t, "20"))
	feb.Apply(Expense, dec(t, "5"))

	sum := Summarize("u1", "2024-01", "2024-02", []Report{jan, feb})

	if !sum.TotalIncome.Equal(dec(t, "70")) {
		t.Fatalf("income = %s", sum.TotalIncome)
	}
	if !sum.TotalExpense.Equal(dec(t, "15")) {
		t.Fatalf("expense = %s", sum.TotalExpense)
	}
	if !sum.Balance.Equal(dec(t, "55")) {
		t.Fatalf("balance = %s", sum.Balance)
	}
	if len(sum.Reports) != 2 || sum.Reports[0].Period != "2024-01" || sum.Reports[1].Period != "2024-02" {
		t.Fatalf("unexpected sequence: %+v", sum.Reports)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize("u1", "2024-01", "2024-06", nil)
	if !sum.TotalIncome.IsZero() || !sum.TotalExpense.IsZero() || !sum.Balance.IsZero() {
		t.Fatalf("expected zero totals, got %+v", sum)
	}
	if sum.Reports == nil || len(sum.Reports) != 0 {
		t.Fatalf("expected empty non-nil sequence, got %#v", sum.Reports)
	}
}

func TestValidPeriod(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-03", true},
		{"1999-12", true},
		{"2024-3", false},
		{"2024-13", false},
		{"2024/03", false},
		{"202403", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidPeriod(tc.in); got != tc.ok {
			t.Fatalf("ValidPeriod(%q) = %v, want %v", tc.in, got, tc.ok)
		}
	}
}
