package services

import (
	"context"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

// StatsAggregator computes per-day summaries relative to the business clock.
type StatsAggregator struct {
	repo   storage.Repository
	clock  *core.Clock
	logger *log.Logger
}

func NewStatsAggregator(repo storage.Repository, clock *core.Clock, logger *log.Logger) *StatsAggregator {
	if logger == nil {
		logger = log.Discard()
	}
	return &StatsAggregator{repo: repo, clock: clock, logger: logger.WithComponent(log.ComponentStats)}
}

// ComputeStats summarizes the day daysBack days before today (0 = today).
// Storage errors yield the empty summary.
func (a *StatsAggregator) ComputeStats(ctx context.Context, userID int64, daysBack int) core.Stats {
	day := a.clock.DaysAgo(daysBack)
	totals, err := a.repo.CategoryTotals(ctx, userID, day)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to compute stats",
			log.FieldOperation, log.OpStats,
			log.FieldUserID, userID,
			log.FieldDate, day.String(),
			log.FieldError, err)
		return core.EmptyStats(day)
	}
	return core.NewStats(day, totals)
}
