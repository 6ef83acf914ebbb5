package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/velkoldin-dev/tratyallday/internal/cache"
	"github.com/velkoldin-dev/tratyallday/internal/cli"
	"github.com/velkoldin-dev/tratyallday/internal/coffee"
	"github.com/velkoldin-dev/tratyallday/internal/conversation"
	"github.com/velkoldin-dev/tratyallday/internal/digest"
	"github.com/velkoldin-dev/tratyallday/internal/dispatch"
	apphttp "github.com/velkoldin-dev/tratyallday/internal/http"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/middleware/ratelimit"
	"github.com/velkoldin-dev/tratyallday/internal/telegram"
)

const sessionSweepInterval = time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the digest scheduler and the health server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	a, err := newApp(parent)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	if err := cfg.RequireBot(); err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext(parent, logger)
	defer cancel()

	bot, err := telegram.New(cfg.Bot.Token, telegram.Options{WebhookSecret: cfg.Bot.WebhookSecret}, logger)
	if err != nil {
		return err
	}

	sessions := conversation.NewCacheSessionStore(cfg.Session.MaxSessions, cfg.Session.IdleTimeout)
	engine := conversation.NewEngine(a.records, sessions, a.clock,
		conversation.Config{FixCandidates: cfg.Session.FixCandidates}, logger)
	broadcaster := digest.NewBroadcaster(a.records, a.stats, bot,
		digest.Config{SendDelay: cfg.Digest.SendDelay}, logger)
	chatLimiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.PerMinute})
	price, err := cfg.CoffeePriceCents()
	if err != nil {
		return err
	}

	deps := dispatch.Deps{
		Engine:  engine,
		Records: a.records,
		Stats:   a.stats,
		Digest:  broadcaster,
		Limiter: chatLimiter,
	}
	if renderer, err := coffee.NewRenderer(cfg.Coffee.TemplatesDir, cfg.Coffee.OutputDir, logger); err != nil {
		logger.Warn("Coffee renderer unavailable, sending captions only", log.FieldError, err)
	} else {
		deps.Coffee = renderer
	}
	dispatcher := dispatch.New(dispatch.Config{
		AdminID:         cfg.Bot.AdminID,
		DigestHour:      cfg.Digest.Hour,
		DigestMinute:    cfg.Digest.Minute,
		OperationsLimit: cfg.Session.OperationsLimit,
		CoffeePrice:     price,
	}, deps, logger)
	bot.SetHandler(dispatcher)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(sessions)

	httpOpts := apphttp.Options{
		Addr:    ":" + cfg.HTTP.Port,
		Ready:   a.backend.Repository,
		Limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		Logger:  logger,
	}
	webhook := cfg.Bot.WebhookURL != ""
	if webhook {
		httpOpts.Webhook = bot.WebhookHandler()
		httpOpts.WebhookPath = webhookPath(cfg.Bot.WebhookURL)
		httpOpts.WebhookSecret = cfg.Bot.WebhookSecret
	}
	srv, err := apphttp.NewServer(httpOpts)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return cacheManager.Run(gctx, sessionSweepInterval) })
	g.Go(func() error { return chatLimiter.Run(gctx) })
	g.Go(func() error { return httpOpts.Limiter.Run(gctx) })
	if cfg.Digest.Enabled {
		scheduler := digest.NewScheduler(cfg.Digest.Hour, cfg.Digest.Minute, a.clock, broadcaster, logger)
		g.Go(func() error { return scheduler.Run(gctx) })
	}
	g.Go(func() error {
		if webhook {
			if err := bot.RegisterWebhook(gctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
				return err
			}
			return bot.RunWebhook(gctx)
		}
		return bot.RunPolling(gctx)
	})

	logger.Info("Bot started",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.Storage.Backend,
		"webhook", webhook,
		"digest_enabled", cfg.Digest.Enabled,
		"events_enabled", a.backend.Publisher != nil)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	limited := chatLimiter.GetMetrics()
	logger.Info("Bot stopped",
		log.FieldOperation, log.OpShutdown,
		"rate_limited_messages", limited.RejectedTotal,
		"tracked_users", limited.ActiveKeys,
		"open_sessions", cacheManager.Entries())
	return nil
}

// webhookPath is the route the webhook URL points at.
func webhookPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return apphttp.DefaultWebhookPath
	}
	return u.Path
}
