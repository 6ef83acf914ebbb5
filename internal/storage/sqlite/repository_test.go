package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
	"github.com/velkoldin-dev/tratyallday/internal/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	suite.Run(t, &storagetest.RepositorySuite{
		NewRepo: func(t *testing.T) storage.Repository {
			repo, err := NewRepository(":memory:")
			require.NoError(t, err)
			return repo
		},
	})
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "expenses.db")
	ctx := context.Background()

	repo, err := NewRepository(path)
	require.NoError(t, err)
	id, err := repo.InsertExpense(ctx, core.Expense{
		UserID:   7,
		Amount:   core.Money{Cents: 1250},
		Category: "Транспорт",
		Date:     core.NewDate(2025, 5, 1),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Reopening runs migrations again, which must be a no-op.
	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.ListRecentExpenses(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].ID)
	require.Equal(t, "2025-05-01", got[0].Date.String())
}
