package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/amqp"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/sheets"
	"github.com/velkoldin-dev/tratyallday/internal/sheets/memory"
)

type failingLedger struct{ err error }

func (f failingLedger) AppendEvent(context.Context, sheets.Entry) (string, error) {
	return "", f.err
}

func sampleExpense() core.Expense {
	return core.Expense{ID: 7, UserID: 3, Amount: core.Money{Cents: 35000}, Category: "Транспорт", Date: core.NewDate(2025, 3, 7)}
}

func TestSyncWorker_Handle(t *testing.T) {
	ledger := memory.New()
	w := NewSyncWorker(ledger, nil)

	created := amqp.NewExpenseEvent(amqp.EventCreated, sampleExpense())
	deleted := amqp.NewExpenseEvent(amqp.EventDeleted, core.Expense{ID: 7})

	require.NoError(t, w.Handle(context.Background(), created))
	require.NoError(t, w.Handle(context.Background(), deleted))

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "created", rows[0].Action)
	assert.Equal(t, int64(35000), rows[0].Amount.Cents)
	assert.Equal(t, "2025-03-07", rows[0].Date)
	assert.Equal(t, "Транспорт", rows[0].Category)
	assert.Equal(t, "deleted", rows[1].Action)
	assert.Equal(t, int64(7), rows[1].ExpenseID)
	assert.Zero(t, rows[1].Amount.Cents)
}

func TestSyncWorker_HandleRedelivery(t *testing.T) {
	ledger := memory.New()
	w := NewSyncWorker(ledger, nil)
	ev := amqp.NewExpenseEvent(amqp.EventReplaced, sampleExpense())

	require.NoError(t, w.Handle(context.Background(), ev))
	require.NoError(t, w.Handle(context.Background(), ev))
	assert.Len(t, ledger.Rows(), 1)
}

func TestSyncWorker_HandleError(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(failingLedger{err: boom}, nil)

	err := w.Handle(context.Background(), amqp.NewExpenseEvent(amqp.EventCreated, sampleExpense()))
	assert.ErrorIs(t, err, boom)
}

func TestToEntry(t *testing.T) {
	ev := amqp.NewExpenseEvent(amqp.EventCreated, sampleExpense())
	e := ToEntry(ev)
	assert.Equal(t, ev.EventID, e.EventID)
	assert.Equal(t, int64(3), e.UserID)
	assert.True(t, e.Timestamp.Equal(ev.Timestamp))
	assert.NoError(t, e.Validate())
}
