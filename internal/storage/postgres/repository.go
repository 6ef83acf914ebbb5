// Package postgres is the PostgreSQL storage backend built on pgx and squirrel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

const (
	tableUsers    = "users"
	tableExpenses = "expenses"
)

var expenseColumns = []string{"id", "user_id", "amount_cents", "category", "spent_on", "created_at"}

type userRow struct {
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	CreatedAt time.Time `db:"created_at"`
}

type expenseRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AmountCents int64     `db:"amount_cents"`
	Category    string    `db:"category"`
	SpentOn     time.Time `db:"spent_on"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r expenseRow) toExpense() core.Expense {
	return core.Expense{
		ID:        r.ID,
		UserID:    r.UserID,
		Amount:    core.Money{Cents: r.AmountCents},
		Category:  r.Category,
		Date:      core.DateOf(r.SpentOn, time.UTC),
		CreatedAt: r.CreatedAt,
	}
}

type totalRow struct {
	Category string `db:"category"`
	Total    int64  `db:"total"`
}

type Repository struct {
	db DB
	tx *TxManager
	qb sq.StatementBuilderType
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(db DB) *Repository {
	return &Repository{
		db: db,
		tx: NewTxManager(db),
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *Repository) q(ctx context.Context) Querier {
	return querierFromCtx(ctx, r.db)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

func (r *Repository) UpsertUser(ctx context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	query, args, err := r.qb.
		Insert(tableUsers).
		Columns("user_id", "username", "first_name").
		Values(u.ID, u.Username, u.FirstName).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user: %w", err)
	}
	if _, err := r.q(ctx).Exec(ctx, query, args...); err != nil {
		return mapError(err, "user", u.ID)
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	query, args, err := r.qb.
		Select("user_id", "username", "first_name", "created_at").
		From(tableUsers).
		OrderBy("created_at ASC", "user_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}
	var rows []userRow
	if err := pgxscan.Select(ctx, r.q(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []core.User
	for _, row := range rows {
		users = append(users, core.User{ID: row.UserID, Username: row.Username, FirstName: row.FirstName, CreatedAt: row.CreatedAt})
	}
	return users, nil
}

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	userQuery, userArgs, err := r.qb.
		Insert(tableUsers).
		Columns("user_id", "username", "first_name").
		Values(e.UserID, storage.PlaceholderUsername, storage.PlaceholderFirstName).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build placeholder user: %w", err)
	}
	expQuery, expArgs, err := r.qb.
		Insert(tableExpenses).
		Columns("user_id", "amount_cents", "category", "spent_on").
		Values(e.UserID, e.Amount.Cents, e.Category, e.Date.Time).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert expense: %w", err)
	}

	var id int64
	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.q(ctx).Exec(ctx, userQuery, userArgs...); err != nil {
			return mapError(err, "user", e.UserID)
		}
		if err := r.q(ctx).QueryRow(ctx, expQuery, expArgs...).Scan(&id); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	query, args, err := r.qb.Delete(tableExpenses).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete expense: %w", err)
	}
	tag, err := r.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "expense", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (r *Repository) ReplaceExpense(ctx context.Context, id int64, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	query, args, err := r.qb.
		Update(tableExpenses).
		Set("amount_cents", e.Amount.Cents).
		Set("category", e.Category).
		Set("spent_on", e.Date.Time).
		Where(sq.Eq{"id": id, "user_id": e.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace expense: %w", err)
	}
	tag, err := r.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "expense", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListRecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidLimit
	}
	query, args, err := r.qb.
		Select(expenseColumns...).
		From(tableExpenses).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expenses: %w", err)
	}
	var rows []expenseRow
	if err := pgxscan.Select(ctx, r.q(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toExpense())
	}
	return out, nil
}

func (r *Repository) CategoryTotals(ctx context.Context, userID int64, day core.Date) ([]core.CategoryTotal, error) {
	query, args, err := r.qb.
		Select("category", "SUM(amount_cents)::BIGINT AS total").
		From(tableExpenses).
		Where(sq.Eq{"user_id": userID, "spent_on": day.Time}).
		GroupBy("category").
		OrderBy("total DESC", "category ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category totals: %w", err)
	}
	var rows []totalRow
	if err := pgxscan.Select(ctx, r.q(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	out := make([]core.CategoryTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryTotal{Category: row.Category, Total: core.Money{Cents: row.Total}})
	}
	return out, nil
}

// mapError converts pgx/pgconn errors to storage errors.
// Context errors pass through untouched.
func mapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	return fmt.Errorf("%s %d: %w", entity, id, err)
}
