// Package services sits between the chat-facing code and storage: it converts
// storage errors into outcomes, logs them and publishes expense events.
package services

import (
	"context"
	"errors"

	"github.com/velkoldin-dev/tratyallday/internal/amqp"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

// Outcome is the result of a record store mutation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) OK() bool { return o == OutcomeOK }

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// RecordStore wraps a storage.Repository. None of its methods return errors:
// failures are logged here and reported as outcomes or empty results.
type RecordStore struct {
	repo      storage.Repository
	publisher EventPublisher
	logger    *log.Logger
}

// NewRecordStore creates the store. publisher may be nil.
func NewRecordStore(repo storage.Repository, publisher EventPublisher, logger *log.Logger) *RecordStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordStore{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

// UpsertUser creates or refreshes a user. Returns false on failure.
func (s *RecordStore) UpsertUser(ctx context.Context, u core.User) bool {
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert user",
			log.FieldOperation, log.OpUpsert, log.FieldUserID, u.ID, log.FieldError, err)
		return false
	}
	return true
}

// ListUsers returns every known user, or nil on failure.
func (s *RecordStore) ListUsers(ctx context.Context) []core.User {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list users",
			log.FieldOperation, log.OpList, log.FieldError, err)
		return nil
	}
	return users
}

// InsertExpense records a new expense for userID.
func (s *RecordStore) InsertExpense(ctx context.Context, userID int64, amount core.Money, category string, date core.Date) Outcome {
	e := core.Expense{UserID: userID, Amount: amount, Category: category, Date: date}
	id, err := s.repo.InsertExpense(ctx, e)
	if err != nil {
		return s.fail(ctx, log.OpCreate, e, err)
	}
	e.ID = id
	s.logger.InfoContext(ctx, "Expense recorded",
		log.NewFields().WithOperation(log.OpCreate).WithExpense(id, amount.Cents, category, date.String()).ToSlice()...)
	s.publish(ctx, amqp.EventCreated, e)
	return OutcomeOK
}

// DeleteExpense removes a record by id.
func (s *RecordStore) DeleteExpense(ctx context.Context, recordID int64) Outcome {
	if err := s.repo.DeleteExpense(ctx, recordID); err != nil {
		return s.fail(ctx, log.OpDelete, core.Expense{ID: recordID}, err)
	}
	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete, log.FieldRecordID, recordID)
	s.publish(ctx, amqp.EventDeleted, core.Expense{ID: recordID})
	return OutcomeOK
}

// ReplaceExpense overwrites amount, category and date of a record owned by userID.
// The record keeps its id.
func (s *RecordStore) ReplaceExpense(ctx context.Context, recordID, userID int64, amount core.Money, category string, date core.Date) Outcome {
	e := core.Expense{ID: recordID, UserID: userID, Amount: amount, Category: category, Date: date}
	if err := s.repo.ReplaceExpense(ctx, recordID, e); err != nil {
		return s.fail(ctx, log.OpReplace, e, err)
	}
	s.logger.InfoContext(ctx, "Expense replaced",
		log.NewFields().WithOperation(log.OpReplace).WithExpense(recordID, amount.Cents, category, date.String()).ToSlice()...)
	s.publish(ctx, amqp.EventReplaced, e)
	return OutcomeOK
}

// ListRecentExpenses returns up to limit records, newest first. Empty on failure.
func (s *RecordStore) ListRecentExpenses(ctx context.Context, userID int64, limit int) []core.Expense {
	list, err := s.repo.ListRecentExpenses(ctx, userID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list expenses",
			log.FieldOperation, log.OpList, log.FieldUserID, userID, log.FieldError, err)
		return []core.Expense{}
	}
	return list
}

// Ping reports whether the backing storage is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *RecordStore) fail(ctx context.Context, op string, e core.Expense, err error) Outcome {
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "Expense not found",
			log.FieldOperation, op, log.FieldRecordID, e.ID, log.FieldUserID, e.UserID)
		return OutcomeNotFound
	}
	fields := log.NewFields().WithOperation(op).WithError(err).WithUser(e.UserID, 0)
	if e.ID != 0 {
		fields[log.FieldRecordID] = e.ID
	}
	s.logger.ErrorContext(ctx, "Storage operation failed", fields.ToSlice()...)
	return OutcomeFailed
}

func (s *RecordStore) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExpenseEvent(t, e)
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		// the record is already committed; the mirror catches up or stays behind
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, t,
			log.FieldRecordID, e.ID,
			log.FieldError, err)
	}
}
