// Package dispatch routes inbound chat messages to commands, menu buttons
// and the conversation engine.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/coffee"
	"github.com/velkoldin-dev/tratyallday/internal/conversation"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/digest"
	"github.com/velkoldin-dev/tratyallday/internal/log"
)

type RecordStore interface {
	UpsertUser(ctx context.Context, u core.User) bool
	ListUsers(ctx context.Context) []core.User
	ListRecentExpenses(ctx context.Context, userID int64, limit int) []core.Expense
}

type StatsProvider interface {
	ComputeStats(ctx context.Context, userID int64, daysBack int) core.Stats
}

type DigestRunner interface {
	Run(ctx context.Context) (digest.Report, error)
}

type CoffeeRenderer interface {
	Render(ctx context.Context, dayLabel string, res coffee.Result) (string, error)
}

type Limiter interface {
	Allow(key string) bool
}

type Config struct {
	AdminID         int64
	DigestHour      int
	DigestMinute    int
	OperationsLimit int
	CoffeePrice     core.Money
}

// Deps are the collaborators of a Dispatcher. Digest, Coffee and Limiter are optional.
type Deps struct {
	Engine  *conversation.Engine
	Records RecordStore
	Stats   StatsProvider
	Digest  DigestRunner
	Coffee  CoffeeRenderer
	Limiter Limiter
}

type handlerFunc func(ctx context.Context, msg chat.Message) []chat.Reply

type Dispatcher struct {
	cfg      Config
	deps     Deps
	locks    *keyedMutex
	commands map[string]handlerFunc
	buttons  map[string]handlerFunc
	logger   *log.Logger
}

func New(cfg Config, deps Deps, logger *log.Logger) *Dispatcher {
	if cfg.OperationsLimit <= 0 {
		cfg.OperationsLimit = 30
	}
	if logger == nil {
		logger = log.Discard()
	}
	d := &Dispatcher{
		cfg:    cfg,
		deps:   deps,
		locks:  newKeyedMutex(),
		logger: logger.WithComponent(log.ComponentDispatch),
	}
	d.commands = map[string]handlerFunc{
		"start":      d.start,
		"help":       d.help,
		"stats":      d.stats,
		"operations": d.operations,
		"myid":       d.myID,
		"users":      d.adminOnly(d.users),
		"testreport": d.adminOnly(d.testReport),
		"coffee":     d.coffee,
		"add":        d.add,
		"fix":        d.fix,
		"cancel":     d.cancel,
	}
	d.buttons = map[string]handlerFunc{
		chat.ButtonAdd:        d.add,
		chat.ButtonStats:      d.stats,
		chat.ButtonOperations: d.operations,
		chat.ButtonFix:        d.fix,
		chat.ButtonCoffee:     d.coffee,
		chat.ButtonCancel:     d.cancel,
	}
	return d
}

// Handle processes one message and returns the replies to send, in order.
// Messages from one user are handled one at a time. A panic inside a handler
// becomes a generic apology.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) (replies []chat.Reply) {
	unlock := d.locks.Lock(msg.UserID)
	defer unlock()

	ctx = log.ForUser(ctx, d.logger, msg.UserID, msg.ChatID)
	defer func() {
		if r := recover(); r != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Recovered from panic while handling message",
				log.FieldError, fmt.Sprint(r), "stack", string(debug.Stack()))
			d.deps.Engine.Reset(msg.UserID)
			replies = []chat.Reply{chat.WithMenu(msgInternalError)}
		}
	}()

	if d.deps.Limiter != nil && !d.deps.Limiter.Allow(strconv.FormatInt(msg.UserID, 10)) {
		log.FromContext(ctx).DebugContext(ctx, "Message rate limited")
		return []chat.Reply{chat.Text(msgTooFast)}
	}

	text := strings.TrimSpace(msg.Text)
	if name, ok := chat.Command(text); ok {
		h, known := d.commands[name]
		if !known {
			if d.deps.Engine.HasOpenFlow(msg.UserID) {
				return []chat.Reply{chat.Text(msgUnknown)}
			}
			return []chat.Reply{chat.WithMenu(msgUnknown)}
		}
		return d.run(ctx, name, h, msg)
	}
	if h, ok := d.buttons[text]; ok {
		return d.run(ctx, text, h, msg)
	}
	if reply, ok := d.deps.Engine.Handle(ctx, msg.UserID, text); ok {
		return []chat.Reply{reply}
	}
	return []chat.Reply{chat.WithMenu(msgUnknown)}
}

// run closes any open flow before a command or menu button takes over.
// Cancel is the exception: it needs the flow to report on it.
func (d *Dispatcher) run(ctx context.Context, name string, h handlerFunc, msg chat.Message) []chat.Reply {
	if name != "cancel" && name != chat.ButtonCancel {
		d.deps.Engine.Reset(msg.UserID)
	}
	log.FromContext(ctx).DebugContext(ctx, "Handling command", "command", name)
	return h(ctx, msg)
}

func (d *Dispatcher) adminOnly(h handlerFunc) handlerFunc {
	return func(ctx context.Context, msg chat.Message) []chat.Reply {
		if d.cfg.AdminID == 0 || msg.UserID != d.cfg.AdminID {
			return []chat.Reply{chat.Text(msgAdminOnly)}
		}
		return h(ctx, msg)
	}
}

func (d *Dispatcher) start(ctx context.Context, msg chat.Message) []chat.Reply {
	u := core.User{ID: msg.UserID, Username: msg.Username, FirstName: msg.FirstName}
	d.deps.Records.UpsertUser(ctx, u)
	return []chat.Reply{chat.WithMenu(greeting(u.DisplayName()))}
}

func (d *Dispatcher) help(context.Context, chat.Message) []chat.Reply {
	return []chat.Reply{chat.WithMenu(helpText(d.cfg.DigestHour, d.cfg.DigestMinute))}
}

func (d *Dispatcher) stats(ctx context.Context, msg chat.Message) []chat.Reply {
	s := d.deps.Stats.ComputeStats(ctx, msg.UserID, 0)
	return []chat.Reply{chat.WithMenu(statsText(s))}
}

func (d *Dispatcher) operations(ctx context.Context, msg chat.Message) []chat.Reply {
	list := d.deps.Records.ListRecentExpenses(ctx, msg.UserID, d.cfg.OperationsLimit)
	if len(list) == 0 {
		return []chat.Reply{chat.WithMenu(msgNoOperations)}
	}
	return []chat.Reply{chat.WithMenu(operationsText(list))}
}

func (d *Dispatcher) myID(_ context.Context, msg chat.Message) []chat.Reply {
	return []chat.Reply{chat.Text(myIDText(msg.UserID))}
}

func (d *Dispatcher) users(ctx context.Context, _ chat.Message) []chat.Reply {
	users := d.deps.Records.ListUsers(ctx)
	if len(users) == 0 {
		return []chat.Reply{chat.Text(msgNoUsers)}
	}
	return []chat.Reply{chat.Text(usersText(users))}
}

func (d *Dispatcher) testReport(ctx context.Context, _ chat.Message) []chat.Reply {
	if d.deps.Digest == nil {
		return []chat.Reply{chat.Text(msgNoDigest)}
	}
	replies := []chat.Reply{chat.Text(msgReportStarted)}
	report, err := d.deps.Digest.Run(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Test report failed", log.FieldError, err)
		return append(replies, chat.WithMenu(fmt.Sprintf("❌ Ошибка при отправке: %v", err)))
	}
	return append(replies, chat.WithMenu(reportText(report)))
}

func (d *Dispatcher) coffee(ctx context.Context, msg chat.Message) []chat.Reply {
	s := d.deps.Stats.ComputeStats(ctx, msg.UserID, 0)
	if !s.HasData {
		return []chat.Reply{chat.WithMenu(msgNoSpendToday)}
	}
	res := coffee.Index(s.Total, d.cfg.CoffeePrice)
	caption := res.Caption(s.Day.Label())
	if d.deps.Coffee == nil {
		return []chat.Reply{chat.WithMenu(caption)}
	}
	path, err := d.deps.Coffee.Render(ctx, s.Day.Label(), res)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to render coffee index",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		return []chat.Reply{chat.WithMenu(msgCoffeeFailed)}
	}
	return []chat.Reply{{Text: caption, PhotoPath: path, TempPhoto: true, Keyboard: chat.MainMenu()}}
}

func (d *Dispatcher) add(ctx context.Context, msg chat.Message) []chat.Reply {
	return []chat.Reply{d.deps.Engine.StartAdd(ctx, msg.UserID)}
}

func (d *Dispatcher) fix(ctx context.Context, msg chat.Message) []chat.Reply {
	return []chat.Reply{d.deps.Engine.StartFix(ctx, msg.UserID)}
}

func (d *Dispatcher) cancel(ctx context.Context, msg chat.Message) []chat.Reply {
	return []chat.Reply{d.deps.Engine.Cancel(ctx, msg.UserID)}
}
