// Package worker mirrors expense events from the bus into the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"

	"github.com/velkoldin-dev/tratyallday/internal/amqp"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/sheets"
)

// SyncWorker appends one ledger row per expense event.
type SyncWorker struct {
	ledger sheets.LedgerWriter
	logger *log.Logger
}

func NewSyncWorker(ledger sheets.LedgerWriter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{ledger: ledger, logger: logger.WithComponent(log.ComponentWorker)}
}

// Handle processes a single expense event. A returned error makes the
// consumer requeue the message.
func (w *SyncWorker) Handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldEventID, ev.EventID,
		log.FieldEventType, ev.Type,
		log.FieldRecordID, ev.ExpenseID)

	ref, err := w.ledger.AppendEvent(ctx, ToEntry(ev))
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror expense event",
			log.FieldEventID, ev.EventID,
			log.FieldRecordID, ev.ExpenseID,
			log.FieldOperation, log.OpAppend,
			log.FieldError, err)
		return fmt.Errorf("append to ledger: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully mirrored expense event",
		log.FieldEventID, ev.EventID,
		log.FieldRecordID, ev.ExpenseID,
		"sheets_ref", ref)
	return nil
}

// ToEntry converts a bus event into a ledger row.
func ToEntry(ev *amqp.ExpenseEvent) sheets.Entry {
	e := sheets.Entry{
		EventID:   ev.EventID,
		Action:    string(ev.Type),
		ExpenseID: ev.ExpenseID,
		UserID:    ev.UserID,
		Category:  ev.Category,
		Date:      ev.Date,
		Timestamp: ev.Timestamp,
	}
	e.Amount.Cents = ev.AmountCents
	return e
}
