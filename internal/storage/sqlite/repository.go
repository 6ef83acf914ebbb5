// Package sqlite is the default storage backend, built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

const (
	tableUsers    = "users"
	tableExpenses = "expenses"
	timeLayout    = time.RFC3339Nano
)

var expenseColumns = []string{"id", "user_id", "amount_cents", "category", "spent_on", "created_at"}

type Repository struct {
	db  *sql.DB
	qb  sq.StatementBuilderType
	now func() time.Time
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens (or creates) the database at dbPath and applies migrations.
// Use ":memory:" for a throwaway database.
func NewRepository(dbPath string) (*Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) UpsertUser(ctx context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	query, args, err := r.qb.
		Insert(tableUsers).
		Columns("user_id", "username", "first_name", "created_at").
		Values(u.ID, u.Username, u.FirstName, r.now().Format(timeLayout)).
		Suffix("ON CONFLICT(user_id) DO UPDATE SET username = excluded.username, first_name = excluded.first_name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
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
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var (
			u       core.User
			created string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt, _ = time.Parse(timeLayout, created)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	now := r.now().Format(timeLayout)

	userQuery, userArgs, err := r.qb.
		Insert(tableUsers).
		Columns("user_id", "username", "first_name", "created_at").
		Values(e.UserID, storage.PlaceholderUsername, storage.PlaceholderFirstName, now).
		Suffix("ON CONFLICT(user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build placeholder user: %w", err)
	}
	expQuery, expArgs, err := r.qb.
		Insert(tableExpenses).
		Columns("user_id", "amount_cents", "category", "spent_on", "created_at").
		Values(e.UserID, e.Amount.Cents, e.Category, e.Date.String(), now).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert expense: %w", err)
	}

	var id int64
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, userQuery, userArgs...); err != nil {
			return fmt.Errorf("ensure user %d: %w", e.UserID, err)
		}
		res, err := tx.ExecContext(ctx, expQuery, expArgs...)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		id, err = res.LastInsertId()
		return err
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
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (r *Repository) ReplaceExpense(ctx context.Context, id int64, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	query, args, err := r.qb.
		Update(tableExpenses).
		Set("amount_cents", e.Amount.Cents).
		Set("category", e.Category).
		Set("spent_on", e.Date.String()).
		Where(sq.Eq{"id": id, "user_id": e.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace expense: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("replace expense %d: %w", id, err)
	}
	return expectOneRow(res, id)
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
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0, limit)
	for rows.Next() {
		var (
			e              core.Expense
			spent, created string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &spent, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(spent); err != nil {
			return nil, fmt.Errorf("expense %d has bad date %q: %w", e.ID, spent, err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CategoryTotals(ctx context.Context, userID int64, day core.Date) ([]core.CategoryTotal, error) {
	query, args, err := r.qb.
		Select("category", "SUM(amount_cents) AS total").
		From(tableExpenses).
		Where(sq.Eq{"user_id": userID, "spent_on": day.String()}).
		GroupBy("category").
		OrderBy("total DESC", "category ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category totals: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *Repository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
