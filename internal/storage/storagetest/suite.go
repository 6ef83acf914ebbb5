// Package storagetest holds the behavioural contract every storage backend must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

// RepositorySuite runs the shared contract against a fresh repository per test.
type RepositorySuite struct {
	suite.Suite

	// NewRepo must return an empty repository.
	NewRepo func(t *testing.T) storage.Repository

	repo storage.Repository
	ctx  context.Context
}

var day = core.NewDate(2025, 3, 7)

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.NewRepo(s.T())
}

func (s *RepositorySuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *RepositorySuite) expense(userID, cents int64, category string, d core.Date) core.Expense {
	return core.Expense{UserID: userID, Amount: core.Money{Cents: cents}, Category: category, Date: d}
}

func (s *RepositorySuite) insert(e core.Expense) int64 {
	id, err := s.repo.InsertExpense(s.ctx, e)
	s.Require().NoError(err)
	s.Require().Positive(id)
	return id
}

func (s *RepositorySuite) TestPing() {
	s.NoError(s.repo.Ping(s.ctx))
}

func (s *RepositorySuite) TestInsertAndListRoundTrip() {
	id := s.insert(s.expense(1, 35000, "Рестораны и кафе", day))

	got, err := s.repo.ListRecentExpenses(s.ctx, 1, 5)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(id, got[0].ID)
	s.Equal(int64(1), got[0].UserID)
	s.Equal(int64(35000), got[0].Amount.Cents)
	s.Equal("Рестораны и кафе", got[0].Category)
	s.True(got[0].Date.Equal(day), "date %v", got[0].Date)
	s.False(got[0].CreatedAt.IsZero())
}

func (s *RepositorySuite) TestInsertCreatesPlaceholderUser() {
	s.insert(s.expense(5, 100, "Другое", day))

	users, err := s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(int64(5), users[0].ID)
	s.Equal(storage.PlaceholderUsername, users[0].Username)
	s.Equal(storage.PlaceholderFirstName, users[0].FirstName)

	// /start later refreshes the placeholder in place.
	s.Require().NoError(s.repo.UpsertUser(s.ctx, core.User{ID: 5, Username: "anna", FirstName: "Анна"}))
	users, err = s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("Анна", users[0].FirstName)
}

func (s *RepositorySuite) TestUpsertUserIdempotent() {
	u := core.User{ID: 10, Username: "bob", FirstName: "Bob"}
	s.Require().NoError(s.repo.UpsertUser(s.ctx, u))
	s.Require().NoError(s.repo.UpsertUser(s.ctx, u))

	u.FirstName = "Robert"
	s.Require().NoError(s.repo.UpsertUser(s.ctx, u))

	users, err := s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("Robert", users[0].FirstName)
	s.Equal("bob", users[0].Username)
}

func (s *RepositorySuite) TestInsertRejectsInvalidRecord() {
	_, err := s.repo.InsertExpense(s.ctx, s.expense(1, 0, "Другое", day))
	s.ErrorIs(err, core.ErrNonPositiveAmount)

	_, err = s.repo.InsertExpense(s.ctx, s.expense(1, 100, " ", day))
	s.ErrorIs(err, core.ErrEmptyCategory)
}

func (s *RepositorySuite) TestListRecentOrderAndLimit() {
	var ids []int64
	for i := 1; i <= 7; i++ {
		ids = append(ids, s.insert(s.expense(1, int64(i*100), "Транспорт", day)))
	}
	s.insert(s.expense(2, 999, "Транспорт", day))

	got, err := s.repo.ListRecentExpenses(s.ctx, 1, 5)
	s.Require().NoError(err)
	s.Require().Len(got, 5)
	for i, e := range got {
		s.Equal(ids[6-i], e.ID, "position %d", i)
		s.Equal(int64(1), e.UserID)
	}

	none, err := s.repo.ListRecentExpenses(s.ctx, 3, 5)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.repo.ListRecentExpenses(s.ctx, 1, 0)
	s.ErrorIs(err, storage.ErrInvalidLimit)
}

func (s *RepositorySuite) TestDeleteExpense() {
	keep := s.insert(s.expense(1, 100, "Другое", day))
	gone := s.insert(s.expense(1, 200, "Другое", day))

	s.Require().NoError(s.repo.DeleteExpense(s.ctx, gone))
	s.ErrorIs(s.repo.DeleteExpense(s.ctx, gone), storage.ErrNotFound)
	s.ErrorIs(s.repo.DeleteExpense(s.ctx, 999999), storage.ErrNotFound)

	got, err := s.repo.ListRecentExpenses(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(keep, got[0].ID)
}

func (s *RepositorySuite) TestReplaceExpenseKeepsID() {
	first := s.insert(s.expense(1, 100, "Другое", day))
	second := s.insert(s.expense(1, 200, "Транспорт", day))

	next := day.AddDays(1)
	s.Require().NoError(s.repo.ReplaceExpense(s.ctx, first, s.expense(1, 4550, "Развлечения", next)))

	got, err := s.repo.ListRecentExpenses(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(second, got[0].ID)
	s.Equal(first, got[1].ID)
	s.Equal(int64(4550), got[1].Amount.Cents)
	s.Equal("Развлечения", got[1].Category)
	s.True(got[1].Date.Equal(next))
}

func (s *RepositorySuite) TestReplaceExpenseNotFound() {
	id := s.insert(s.expense(1, 100, "Другое", day))

	s.ErrorIs(s.repo.ReplaceExpense(s.ctx, 424242, s.expense(1, 100, "Другое", day)), storage.ErrNotFound)
	// Another user's record is treated as missing.
	s.ErrorIs(s.repo.ReplaceExpense(s.ctx, id, s.expense(2, 100, "Другое", day)), storage.ErrNotFound)
	s.ErrorIs(s.repo.ReplaceExpense(s.ctx, id, s.expense(1, -5, "Другое", day)), core.ErrNonPositiveAmount)
}

func (s *RepositorySuite) TestCategoryTotals() {
	s.insert(s.expense(1, 30000, "Супермаркеты и продукты питания", day))
	s.insert(s.expense(1, 5000, "Транспорт", day))
	s.insert(s.expense(1, 12000, "Супермаркеты и продукты питания", day))
	s.insert(s.expense(1, 20000, "Рестораны и кафе", day))
	s.insert(s.expense(1, 77700, "Транспорт", day.AddDays(-1)))
	s.insert(s.expense(2, 88800, "Транспорт", day))

	got, err := s.repo.CategoryTotals(s.ctx, 1, day)
	s.Require().NoError(err)
	s.Equal([]core.CategoryTotal{
		{Category: "Супермаркеты и продукты питания", Total: core.Money{Cents: 42000}},
		{Category: "Рестораны и кафе", Total: core.Money{Cents: 20000}},
		{Category: "Транспорт", Total: core.Money{Cents: 5000}},
	}, got)

	empty, err := s.repo.CategoryTotals(s.ctx, 1, day.AddDays(5))
	s.Require().NoError(err)
	s.Empty(empty)
}
