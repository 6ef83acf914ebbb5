package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/velkoldin-dev/tratyallday/internal/sheets"
)

// Ledger keeps appended rows in memory. Used when no spreadsheet is configured.
type Ledger struct {
	mu   sync.Mutex
	rows []sheets.Entry
	seen map[string]struct{}
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// AppendEvent stores the entry and returns a synthetic row reference.
// Redelivered events are recognised by id and not stored twice.
func (l *Ledger) AppendEvent(_ context.Context, e sheets.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[e.EventID]; dup {
		for i, r := range l.rows {
			if r.EventID == e.EventID {
				return fmt.Sprintf("mem:%d", i+1), nil
			}
		}
	}
	l.seen[e.EventID] = struct{}{}
	l.rows = append(l.rows, e)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (l *Ledger) Rows() []sheets.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.Entry(nil), l.rows...)
}
