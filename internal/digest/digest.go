// Package digest sends the morning summary of yesterday's spending to every user.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
)

const topCategories = 3

type UserLister interface {
	ListUsers(ctx context.Context) []core.User
}

type StatsProvider interface {
	ComputeStats(ctx context.Context, userID int64, daysBack int) core.Stats
}

// Report counts the outcome of one broadcast.
type Report struct {
	Total  int
	Sent   int
	Failed int
}

type Config struct {
	SendDelay time.Duration
}

// Broadcaster sends the digest to users one by one with a pause between sends.
type Broadcaster struct {
	users  UserLister
	stats  StatsProvider
	sender chat.Sender
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	logger *log.Logger
}

func NewBroadcaster(users UserLister, stats StatsProvider, sender chat.Sender, cfg Config, logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.Discard()
	}
	return &Broadcaster{
		users:  users,
		stats:  stats,
		sender: sender,
		delay:  cfg.SendDelay,
		sleep:  sleepCtx,
		logger: logger.WithComponent(log.ComponentDigest),
	}
}

// Run sends yesterday's summary to every known user. A failed send is counted
// and skipped; only context cancellation stops the loop early.
func (b *Broadcaster) Run(ctx context.Context) (Report, error) {
	users := b.users.ListUsers(ctx)
	report := Report{Total: len(users)}
	if len(users) == 0 {
		b.logger.InfoContext(ctx, "No users to send the digest to")
		return report, nil
	}
	b.logger.InfoContext(ctx, "Starting digest broadcast", "users", len(users))

	for i, u := range users {
		if i > 0 && b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return report, err
			}
		}
		stats := b.stats.ComputeStats(ctx, u.ID, 1)
		if err := b.sender.Send(ctx, u.ID, chat.Text(Message(u, stats))); err != nil {
			report.Failed++
			b.logger.WarnContext(ctx, "Digest not delivered",
				log.FieldUserID, u.ID, log.FieldOperation, log.OpSend, log.FieldError, err)
			continue
		}
		report.Sent++
	}

	b.logger.InfoContext(ctx, "Digest broadcast finished",
		"total", report.Total, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

// Message renders the digest text for one user.
func Message(u core.User, s core.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "☀️ Доброе утро, %s!\n\n", u.DisplayName())
	if !s.HasData {
		b.WriteString("📊 Вчера у тебя не было трат.\nОтличный день для экономии! 💪")
		return b.String()
	}
	fmt.Fprintf(&b, "📊 За вчера (%s) ты потратил: %s\n\n🏆 Топ категории:\n", s.Day.Label(), s.Total.Display())
	for _, c := range s.Top(topCategories) {
		fmt.Fprintf(&b, "• %s: %s\n", c.Category, c.Total.Display())
	}
	b.WriteString("\nХорошего дня! 💫")
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
