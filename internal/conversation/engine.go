// Package conversation implements the per-user add and fix flows.
package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/services"
)

const DefaultFixCandidates = 5

// RecordStore is the subset of services.RecordStore the engine writes through.
type RecordStore interface {
	InsertExpense(ctx context.Context, userID int64, amount core.Money, category string, date core.Date) services.Outcome
	DeleteExpense(ctx context.Context, recordID int64) services.Outcome
	ReplaceExpense(ctx context.Context, recordID, userID int64, amount core.Money, category string, date core.Date) services.Outcome
	ListRecentExpenses(ctx context.Context, userID int64, limit int) []core.Expense
}

type Config struct {
	FixCandidates int
}

// Engine drives the add flow and the fix flow. Callers must not invoke it
// concurrently for the same user.
type Engine struct {
	store    RecordStore
	sessions SessionStore
	clock    *core.Clock
	fixN     int
	logger   *log.Logger
}

func NewEngine(store RecordStore, sessions SessionStore, clock *core.Clock, cfg Config, logger *log.Logger) *Engine {
	if cfg.FixCandidates <= 0 {
		cfg.FixCandidates = DefaultFixCandidates
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{
		store:    store,
		sessions: sessions,
		clock:    clock,
		fixN:     cfg.FixCandidates,
		logger:   logger.WithComponent(log.ComponentConversation),
	}
}

// State reports the user's current state; StateIdle when no flow is open.
func (e *Engine) State(userID int64) State {
	s, ok := e.sessions.Get(userID)
	if !ok {
		return StateIdle
	}
	return s.State
}

// Session returns a copy of the user's open session.
func (e *Engine) Session(userID int64) (Session, bool) {
	return e.sessions.Get(userID)
}

// HasOpenFlow reports whether free text from the user belongs to a flow.
func (e *Engine) HasOpenFlow(userID int64) bool {
	return e.State(userID) != StateIdle
}

// Reset drops any open flow without replying.
func (e *Engine) Reset(userID int64) {
	e.sessions.Delete(userID)
}

// StartAdd opens the add flow, replacing whatever flow was open.
func (e *Engine) StartAdd(ctx context.Context, userID int64) chat.Reply {
	e.save(ctx, userID, Session{State: StateAwaitingAmount})
	return chat.Reply{Text: msgEnterAmount, RemoveKeyboard: true}
}

// StartFix opens the fix flow with a snapshot of the most recent records.
// With no records nothing is opened.
func (e *Engine) StartFix(ctx context.Context, userID int64) chat.Reply {
	e.sessions.Delete(userID)
	list := e.store.ListRecentExpenses(ctx, userID, e.fixN)
	if len(list) == 0 {
		return chat.WithMenu(msgNoRecords)
	}
	e.save(ctx, userID, Session{State: StateFixSelect, Candidates: list})
	return chat.Reply{Text: candidateList(list), Keyboard: numberKeyboard(len(list))}
}

// Cancel closes any open flow.
func (e *Engine) Cancel(ctx context.Context, userID int64) chat.Reply {
	if _, ok := e.sessions.Get(userID); !ok {
		return chat.WithMenu(msgNothingToStop)
	}
	e.finish(ctx, userID, "cancelled")
	return chat.WithMenu(msgCancelled)
}

// Handle feeds free text into the user's open flow. The second result is
// false when no flow is open and the text was not consumed.
func (e *Engine) Handle(ctx context.Context, userID int64, text string) (chat.Reply, bool) {
	s, ok := e.sessions.Get(userID)
	if !ok || s.State == StateIdle {
		return chat.Reply{}, false
	}
	text = strings.TrimSpace(text)
	if text == chat.ButtonCancel { // also the fix flow's cancel action
		return e.Cancel(ctx, userID), true
	}

	switch s.State {
	case StateAwaitingAmount:
		return e.onAmount(ctx, userID, s, text, false), true
	case StateAwaitingCategory:
		return e.onCategory(ctx, userID, s, text, false), true
	case StateFixSelect:
		return e.onSelect(ctx, userID, s, text), true
	case StateFixAction:
		return e.onAction(ctx, userID, s, text), true
	case StateFixAmount:
		return e.onAmount(ctx, userID, s, text, true), true
	case StateFixCategory:
		return e.onCategory(ctx, userID, s, text, true), true
	}
	return chat.Reply{}, false
}

func (e *Engine) onAmount(ctx context.Context, userID int64, s Session, text string, fix bool) chat.Reply {
	amount, err := core.ParseMoney(text)
	if err != nil {
		e.save(ctx, userID, s)
		if errors.Is(err, core.ErrNonPositiveAmount) {
			return chat.Text(msgNotPositive)
		}
		return chat.Text(msgNotANumber)
	}
	if fix {
		s.FixAmount = amount
		s.State = StateFixCategory
	} else {
		s.PendingAmount = amount
		s.State = StateAwaitingCategory
	}
	e.save(ctx, userID, s)
	return chat.Reply{Text: amountAccepted(amount), Keyboard: categoryKeyboard()}
}

func (e *Engine) onCategory(ctx context.Context, userID int64, s Session, text string, fix bool) chat.Reply {
	category, ok := core.MatchCategory(text)
	if !ok {
		e.save(ctx, userID, s)
		return chat.Reply{Text: msgUnknownCat, Keyboard: categoryKeyboard()}
	}
	today := e.clock.Today()
	e.finish(ctx, userID, "completed")

	if !fix {
		switch e.store.InsertExpense(ctx, userID, s.PendingAmount, category, today) {
		case services.OutcomeOK:
			return chat.WithMenu(expenseSaved("✅ Запись добавлена!", today, s.PendingAmount, category))
		default:
			return chat.WithMenu(msgSaveFailed)
		}
	}

	switch e.store.ReplaceExpense(ctx, s.Selected.ID, userID, s.FixAmount, category, today) {
	case services.OutcomeOK:
		return chat.WithMenu(expenseSaved("✅ Запись исправлена!", today, s.FixAmount, category))
	case services.OutcomeNotFound:
		return chat.WithMenu(msgNotFound)
	default:
		return chat.WithMenu(msgSaveFailed)
	}
}

func (e *Engine) onSelect(ctx context.Context, userID int64, s Session, text string) chat.Reply {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(s.Candidates) {
		e.save(ctx, userID, s)
		return chat.Reply{Text: selectRange(len(s.Candidates)), Keyboard: numberKeyboard(len(s.Candidates))}
	}
	s.Selected = s.Candidates[n-1]
	s.State = StateFixAction
	e.save(ctx, userID, s)
	return chat.Reply{Text: actionPrompt(s.Selected), Keyboard: actionKeyboard()}
}

func (e *Engine) onAction(ctx context.Context, userID int64, s Session, text string) chat.Reply {
	switch text {
	case ActionDelete:
		e.finish(ctx, userID, "completed")
		switch e.store.DeleteExpense(ctx, s.Selected.ID) {
		case services.OutcomeOK:
			return chat.WithMenu(msgDeleted)
		case services.OutcomeNotFound:
			return chat.WithMenu(msgNotFound)
		default:
			return chat.WithMenu(msgSaveFailed)
		}
	case ActionOverwrite:
		s.State = StateFixAmount
		e.save(ctx, userID, s)
		return chat.Reply{Text: msgEnterNewAmount, RemoveKeyboard: true}
	default:
		e.save(ctx, userID, s)
		return chat.Reply{Text: msgChooseAction, Keyboard: actionKeyboard()}
	}
}

func (e *Engine) save(ctx context.Context, userID int64, s Session) {
	s.UpdatedAt = e.clock.Now()
	e.sessions.Put(userID, s)
	e.logger.DebugContext(ctx, "Session updated",
		log.FieldUserID, userID,
		log.FieldFlow, s.State.Flow(),
		log.FieldState, s.State.String())
}

func (e *Engine) finish(ctx context.Context, userID int64, reason string) {
	e.sessions.Delete(userID)
	e.logger.DebugContext(ctx, "Session closed", log.FieldUserID, userID, "reason", reason)
}
