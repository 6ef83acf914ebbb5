package core

import (
	"errors"
	"testing"
	"time"
)

func TestCleanCategory(t *testing.T) {
	cases := map[string]string{
		"🍽️ Рестораны и кафе": "Рестораны и кафе",
		"🚕 Транспорт":         "Транспорт",
		"Транспорт":           "Транспорт",
		"  📌 Другое ":         "Другое",
	}
	for in, want := range cases {
		if got := CleanCategory(in); got != want {
			t.Errorf("CleanCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchCategory(t *testing.T) {
	for _, label := range Categories {
		name, ok := MatchCategory(label)
		if !ok || name != CleanCategory(label) {
			t.Fatalf("label %q not matched (got %q)", label, name)
		}
	}

	if name, ok := MatchCategory("транспорт"); !ok || name != "Транспорт" {
		t.Fatalf("bare lower-case name not matched: %q %v", name, ok)
	}
	for _, bad := range []string{"", "Еда", "🚕", "Транспорт и такси"} {
		if _, ok := MatchCategory(bad); ok {
			t.Errorf("MatchCategory(%q) unexpectedly matched", bad)
		}
	}
}

func TestCategoryIcon(t *testing.T) {
	if got := CategoryIcon("Транспорт"); got != "🚕" {
		t.Fatalf("CategoryIcon = %q", got)
	}
	if got := CategoryIcon("nope"); got != "" {
		t.Fatalf("CategoryIcon(unknown) = %q", got)
	}
}

func TestDate(t *testing.T) {
	d := NewDate(2025, 3, 7)
	if d.Label() != "07.03" {
		t.Errorf("Label() = %q", d.Label())
	}
	if d.String() != "2025-03-07" {
		t.Errorf("String() = %q", d.String())
	}
	if got := d.AddDays(-7); !got.Equal(NewDate(2025, 2, 28)) {
		t.Errorf("AddDays(-7) = %v", got)
	}
	parsed, err := ParseDate("2025-03-07")
	if err != nil || !parsed.Equal(d) {
		t.Errorf("ParseDate = %v, %v", parsed, err)
	}
	if _, err := ParseDate("07.03"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ParseDate(label) err = %v", err)
	}
}

func TestClock(t *testing.T) {
	// 22:30 UTC is already the next day at UTC+3.
	now := time.Date(2025, 12, 31, 22, 30, 0, 0, time.UTC)
	c := NewClockAt(ZoneFromOffset(3), func() time.Time { return now })

	if got := c.Today(); !got.Equal(NewDate(2026, 1, 1)) {
		t.Fatalf("Today() = %v", got)
	}
	if got := c.DaysAgo(1); !got.Equal(NewDate(2025, 12, 31)) {
		t.Fatalf("DaysAgo(1) = %v", got)
	}
	if c.Now().Hour() != 1 {
		t.Fatalf("Now() hour = %d", c.Now().Hour())
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{UserID: 1, Amount: Money{Cents: 100}, Category: "Транспорт", Date: NewDate(2025, 1, 1)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"no user", func(e *Expense) { e.UserID = 0 }, ErrInvalidUser},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrNonPositiveAmount},
		{"blank category", func(e *Expense) { e.Category = "  " }, ErrEmptyCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewStats(t *testing.T) {
	day := NewDate(2025, 1, 2)
	empty := NewStats(day, nil)
	if empty.HasData || empty.Total.Cents != 0 || empty.Categories == nil || len(empty.Categories) != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	s := NewStats(day, []CategoryTotal{
		{Category: "A", Total: Money{Cents: 500}},
		{Category: "B", Total: Money{Cents: 300}},
		{Category: "C", Total: Money{Cents: 200}},
		{Category: "D", Total: Money{Cents: 100}},
	})
	if !s.HasData || s.Total.Cents != 1100 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if len(s.Top(3)) != 3 || s.Top(3)[0].Category != "A" {
		t.Fatalf("Top(3) = %+v", s.Top(3))
	}
	if len(s.Top(10)) != 4 {
		t.Fatalf("Top(10) = %+v", s.Top(10))
	}
}
