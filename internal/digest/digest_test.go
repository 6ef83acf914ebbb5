package digest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/core"
)

type staticUsers []core.User

func (u staticUsers) ListUsers(context.Context) []core.User { return u }

type staticStats map[int64]core.Stats

func (s staticStats) ComputeStats(_ context.Context, userID int64, daysBack int) core.Stats {
	if daysBack != 1 {
		panic("digest must look at yesterday")
	}
	if st, ok := s[userID]; ok {
		return st
	}
	return core.EmptyStats(core.NewDate(2025, 3, 6))
}

type fakeSender struct {
	mu    sync.Mutex
	fail  map[int64]bool
	sent  map[int64]string
	order []int64
}

func (f *fakeSender) Send(_ context.Context, chatID int64, r chat.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, chatID)
	if f.fail[chatID] {
		return errors.New("bot was blocked by the user")
	}
	if f.sent == nil {
		f.sent = map[int64]string{}
	}
	f.sent[chatID] = r.Text
	return nil
}

var yesterday = core.NewDate(2025, 3, 6)

func TestBroadcaster_Run(t *testing.T) {
	users := staticUsers{{ID: 1, FirstName: "Анна"}, {ID: 2, FirstName: "Борис"}, {ID: 3}}
	stats := staticStats{1: core.NewStats(yesterday, []core.CategoryTotal{
		{Category: "Транспорт", Total: core.Money{Cents: 50000}},
		{Category: "Другое", Total: core.Money{Cents: 20000}},
	})}
	sender := &fakeSender{fail: map[int64]bool{2: true}}

	var slept []time.Duration
	b := NewBroadcaster(users, stats, sender, Config{SendDelay: 500 * time.Millisecond}, nil)
	b.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Total: 3, Sent: 2, Failed: 1}, report)
	assert.Equal(t, []int64{1, 2, 3}, sender.order, "a failed send does not stop the loop")
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, slept)

	assert.Contains(t, sender.sent[1], "Доброе утро, Анна!")
	assert.Contains(t, sender.sent[1], "700.00 руб.")
	assert.Contains(t, sender.sent[1], "• Транспорт: 500.00 руб.")
	assert.Contains(t, sender.sent[3], "не было трат")
	assert.Contains(t, sender.sent[3], "друг")
}

func TestBroadcaster_NoUsers(t *testing.T) {
	b := NewBroadcaster(staticUsers{}, staticStats{}, &fakeSender{}, Config{}, nil)
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestBroadcaster_Cancelled(t *testing.T) {
	users := staticUsers{{ID: 1}, {ID: 2}, {ID: 3}}
	sender := &fakeSender{}
	b := NewBroadcaster(users, staticStats{}, sender, Config{SendDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	b.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepCtx(ctx, d)
	}

	report, err := b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, []int64{1}, sender.order)
}

func TestMessage_TopThree(t *testing.T) {
	s := core.NewStats(yesterday, []core.CategoryTotal{
		{Category: "A", Total: core.Money{Cents: 400}},
		{Category: "B", Total: core.Money{Cents: 300}},
		{Category: "C", Total: core.Money{Cents: 200}},
		{Category: "D", Total: core.Money{Cents: 100}},
	})
	msg := Message(core.User{ID: 1, FirstName: "Анна"}, s)
	assert.Contains(t, msg, "(06.03)")
	assert.Contains(t, msg, "• C: 2.00 руб.")
	assert.NotContains(t, msg, "• D:")
}

func TestNextRun(t *testing.T) {
	loc := core.ZoneFromOffset(3)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2025, 3, 7, 8, 59, 0, 0, loc), time.Date(2025, 3, 7, 9, 0, 0, 0, loc)},
		{"exactly now moves to tomorrow", time.Date(2025, 3, 7, 9, 0, 0, 0, loc), time.Date(2025, 3, 8, 9, 0, 0, 0, loc)},
		{"after today", time.Date(2025, 3, 7, 21, 0, 0, 0, loc), time.Date(2025, 3, 8, 9, 0, 0, 0, loc)},
		{"month boundary", time.Date(2025, 2, 28, 10, 0, 0, 0, loc), time.Date(2025, 3, 1, 9, 0, 0, 0, loc)},
		{"year boundary", time.Date(2025, 12, 31, 23, 0, 0, 0, loc), time.Date(2026, 1, 1, 9, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextRun(tt.now, 9, 0)), "got %v", NextRun(tt.now, 9, 0))
		})
	}
}

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run(context.Context) (Report, error) {
	j.runs++
	return Report{}, j.err
}

func TestScheduler_Run(t *testing.T) {
	loc := core.ZoneFromOffset(3)
	now := time.Date(2025, 3, 7, 8, 0, 0, 0, loc)
	clock := core.NewClockAt(loc, func() time.Time { return now })
	job := &countingJob{err: errors.New("transient")}
	s := NewScheduler(9, 0, clock, job, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 3 {
			cancel()
			return context.Canceled
		}
		now = now.Add(d)
		return nil
	}

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 2, job.runs, "job errors do not stop the schedule")
	assert.Equal(t, []time.Duration{time.Hour, 24 * time.Hour, 24 * time.Hour}, waits)
}
