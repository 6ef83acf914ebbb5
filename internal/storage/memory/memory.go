// Package memory is a mutex-guarded in-process storage backend.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	users  map[int64]core.User
	order  []int64 // user ids in creation order
	items  []core.Expense
	nextID int64
	now    func() time.Time
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[int64]core.User),
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) UpsertUser(_ context.Context, u core.User) error {
	if u.ID == 0 {
		return core.ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		s.users[u.ID] = existing
		return nil
	}
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.UserID]; !ok {
		s.users[e.UserID] = core.User{
			ID:        e.UserID,
			Username:  storage.PlaceholderUsername,
			FirstName: storage.PlaceholderFirstName,
			CreatedAt: s.now(),
		}
		s.order = append(s.order, e.UserID)
	}
	e.ID = s.nextID
	s.nextID++
	e.CreatedAt = s.now()
	s.items = append(s.items, e)
	return e.ID, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) ReplaceExpense(_ context.Context, id int64, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 || s.items[i].UserID != e.UserID {
		return storage.ErrNotFound
	}
	s.items[i].Amount = e.Amount
	s.items[i].Category = e.Category
	s.items[i].Date = e.Date
	return nil
}

func (s *Store) ListRecentExpenses(_ context.Context, userID int64, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		if s.items[i].UserID == userID {
			out = append(out, s.items[i])
		}
	}
	return out, nil
}

func (s *Store) CategoryTotals(_ context.Context, userID int64, day core.Date) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	sums := make(map[string]int64)
	for _, e := range s.items {
		if e.UserID == userID && e.Date.Equal(day) {
			sums[e.Category] += e.Amount.Cents
		}
	}
	s.mu.Unlock()

	out := make([]core.CategoryTotal, 0, len(sums))
	for cat, cents := range sums {
		out = append(out, core.CategoryTotal{Category: cat, Total: core.Money{Cents: cents}})
	}
	slices.SortFunc(out, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total.Cents, a.Total.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(e core.Expense) bool { return e.ID == id })
}
