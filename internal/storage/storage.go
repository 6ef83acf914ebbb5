// Package storage defines the persistence port for users and expense records.
// Concrete backends live in the sqlite, postgres and memory subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/velkoldin-dev/tratyallday/internal/core"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidLimit is returned for non-positive list limits.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Placeholder identity stored when an expense arrives for a user who never ran /start.
const (
	PlaceholderUsername  = "unknown"
	PlaceholderFirstName = "Unknown"
)

// Repository is implemented by every storage backend.
type Repository interface {
	// UpsertUser creates the user or refreshes username and first name.
	UpsertUser(ctx context.Context, u core.User) error
	ListUsers(ctx context.Context) ([]core.User, error)

	// InsertExpense stores a new record and returns its id. A placeholder user
	// row is created in the same transaction when the owner is unknown.
	InsertExpense(ctx context.Context, e core.Expense) (int64, error)
	// DeleteExpense returns ErrNotFound when no row has the id.
	DeleteExpense(ctx context.Context, id int64) error
	// ReplaceExpense overwrites amount, category and date of an existing
	// record owned by e.UserID in one atomic statement. The id is preserved.
	ReplaceExpense(ctx context.Context, id int64, e core.Expense) error
	// ListRecentExpenses returns at most limit records, newest first.
	ListRecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error)
	// CategoryTotals sums a user's spending on one day by category,
	// largest total first.
	CategoryTotals(ctx context.Context, userID int64, day core.Date) ([]core.CategoryTotal, error)

	Ping(ctx context.Context) error
	Close() error
}
