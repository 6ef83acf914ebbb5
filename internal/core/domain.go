package core

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date without time of day. The wrapped time is always
	// midnight UTC so two dates compare equal iff they name the same day.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID        int64
		Username  string
		FirstName string
		CreatedAt time.Time
	}

	Expense struct {
		ID        int64
		UserID    int64
		Amount    Money
		Category  string // stored without the icon prefix
		Date      Date
		CreatedAt time.Time
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidUser       = errors.New("invalid user id")
	ErrCategoryTooLong   = errors.New("category too long (max 100 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Equal reports whether both dates name the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// Label is the short day.month form shown to users, e.g. "07.03".
func (d Date) Label() string {
	return d.Format("02.01")
}

// String returns the ISO representation used for persistence.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.UserID == 0 {
		return ErrInvalidUser
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len([]rune(e.Category)) > 100 {
		return ErrCategoryTooLong
	}
	return nil
}

// DisplayName picks the friendliest name available for greetings.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return "друг"
}
