package sheets

import (
	"context"
	"errors"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// Entry is one ledger row: an expense event as mirrored to a spreadsheet.
type Entry struct {
	EventID   string
	Action    string
	ExpenseID int64
	UserID    int64
	Amount    core.Money
	Category  string
	Date      string // YYYY-MM-DD, empty for deletions
	Timestamp time.Time
}

var ErrInvalidEntry = errors.New("invalid ledger entry")

func (e Entry) Validate() error {
	if e.EventID == "" || e.Action == "" || e.ExpenseID <= 0 {
		return ErrInvalidEntry
	}
	return nil
}

// Year is the year the row is filed under: the expense date when present,
// otherwise the event time.
func (e Entry) Year() int {
	if d, err := core.ParseDate(e.Date); err == nil {
		return d.Year()
	}
	return e.Timestamp.Year()
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends rows to an append-only ledger and returns a row reference.
	LedgerWriter interface {
		AppendEvent(ctx context.Context, e Entry) (rowRef string, err error)
	}
)
