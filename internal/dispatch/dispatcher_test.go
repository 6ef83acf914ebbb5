package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/coffee"
	"github.com/velkoldin-dev/tratyallday/internal/conversation"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/digest"
	"github.com/velkoldin-dev/tratyallday/internal/middleware/ratelimit"
	"github.com/velkoldin-dev/tratyallday/internal/services"
	"github.com/velkoldin-dev/tratyallday/internal/storage/memory"
)

const (
	admin int64 = 1
	alice int64 = 42
)

type fakeDigest struct {
	report digest.Report
	err    error
	calls  int
}

func (f *fakeDigest) Run(context.Context) (digest.Report, error) {
	f.calls++
	return f.report, f.err
}

type fakeCoffee struct {
	err  error
	last coffee.Result
}

func (f *fakeCoffee) Render(_ context.Context, _ string, res coffee.Result) (string, error) {
	f.last = res
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/coffee-1.png", nil
}

type panickingStats struct{}

func (panickingStats) ComputeStats(context.Context, int64, int) core.Stats { panic("boom") }

type env struct {
	d      *Dispatcher
	store  *services.RecordStore
	engine *conversation.Engine
	digest *fakeDigest
	coffee *fakeCoffee
}

func newEnv(t *testing.T, mutate func(*Config, *Deps)) *env {
	t.Helper()
	now := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	clock := core.NewClockAt(core.ZoneFromOffset(3), func() time.Time { return now })
	repo := memory.New()
	store := services.NewRecordStore(repo, nil, nil)
	engine := conversation.NewEngine(store, conversation.NewCacheSessionStore(100, time.Hour), clock, conversation.Config{}, nil)

	e := &env{store: store, engine: engine, digest: &fakeDigest{}, coffee: &fakeCoffee{}}
	cfg := Config{AdminID: admin, DigestHour: 9, OperationsLimit: 30, CoffeePrice: coffee.DefaultPrice}
	deps := Deps{
		Engine:  engine,
		Records: store,
		Stats:   services.NewStatsAggregator(repo, clock, nil),
		Digest:  e.digest,
		Coffee:  e.coffee,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	e.d = New(cfg, deps, nil)
	return e
}

func (e *env) say(userID int64, text string) []chat.Reply {
	return e.d.Handle(context.Background(), chat.Message{UserID: userID, ChatID: userID, FirstName: "Алиса", Username: "alice", Text: text})
}

func (e *env) one(t *testing.T, userID int64, text string) chat.Reply {
	t.Helper()
	r := e.say(userID, text)
	require.Len(t, r, 1, "replies to %q", text)
	return r[0]
}

func TestStart(t *testing.T) {
	e := newEnv(t, nil)
	e.one(t, alice, "/add")

	r := e.one(t, alice, "/start")
	assert.Contains(t, r.Text, "Привет, Алиса!")
	assert.Equal(t, chat.MainMenu(), r.Keyboard)
	assert.False(t, e.engine.HasOpenFlow(alice), "/start resets the session")

	e.one(t, alice, "/start")
	users := e.store.ListUsers(context.Background())
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestAddFlowThroughDispatcher(t *testing.T) {
	e := newEnv(t, nil)

	r := e.one(t, alice, chat.ButtonAdd)
	assert.True(t, r.RemoveKeyboard)

	e.one(t, alice, "350")
	r = e.one(t, alice, "🍽️ Рестораны и кафе")
	assert.Contains(t, r.Text, "350.00 руб.")
	assert.Contains(t, r.Text, "Рестораны и кафе")

	r = e.one(t, alice, "/stats")
	assert.Contains(t, r.Text, "(07.03)")
	assert.Contains(t, r.Text, "• 🍽️ Рестораны и кафе: 350.00 руб.")

	r = e.one(t, alice, chat.ButtonOperations)
	assert.Contains(t, r.Text, "07.03 | 🍽️ Рестораны и кафе | 350.00 руб.")
}

func TestFreeTextWithoutFlow(t *testing.T) {
	e := newEnv(t, nil)
	r := e.one(t, alice, "350")
	assert.Equal(t, msgUnknown, r.Text)
	assert.Equal(t, chat.MainMenu(), r.Keyboard)

	r = e.one(t, alice, "/nope")
	assert.Equal(t, msgUnknown, r.Text)
}

func TestUnknownCommandKeepsFlow(t *testing.T) {
	e := newEnv(t, nil)
	e.one(t, alice, "/add")
	e.one(t, alice, "350")

	r := e.one(t, alice, "/nope")
	assert.True(t, e.engine.HasOpenFlow(alice))
	assert.Empty(t, r.Keyboard, "category keyboard must stay on screen")
	assert.False(t, r.RemoveKeyboard)

	r = e.one(t, alice, "🚕 Транспорт")
	assert.Contains(t, r.Text, "Транспорт")
	assert.False(t, e.engine.HasOpenFlow(alice))

	r = e.one(t, alice, "/nope")
	assert.Equal(t, chat.MainMenu(), r.Keyboard)
}

func TestCommandClosesOpenFlow(t *testing.T) {
	e := newEnv(t, nil)
	e.one(t, alice, "/add")
	e.one(t, alice, "100")

	r := e.one(t, alice, chat.ButtonStats)
	assert.Contains(t, r.Text, "Статистика за сегодня")
	assert.False(t, e.engine.HasOpenFlow(alice))
}

func TestCancel(t *testing.T) {
	e := newEnv(t, nil)
	e.one(t, alice, "/add")
	r := e.one(t, alice, "/cancel")
	assert.Contains(t, r.Text, "отменена")
	assert.False(t, e.engine.HasOpenFlow(alice))

	r = e.one(t, alice, chat.ButtonCancel)
	assert.Equal(t, chat.MainMenu(), r.Keyboard)
}

func TestEmptyStatsAndOperations(t *testing.T) {
	e := newEnv(t, nil)
	r := e.one(t, alice, "/stats")
	assert.Contains(t, r.Text, "0.00 руб.")
	assert.Contains(t, r.Text, "Пока нет трат")

	r = e.one(t, alice, "/operations")
	assert.Equal(t, msgNoOperations, r.Text)

	r = e.one(t, alice, "/fix")
	assert.Contains(t, r.Text, "нет записей")
	assert.False(t, e.engine.HasOpenFlow(alice))
}

func TestMyID(t *testing.T) {
	e := newEnv(t, nil)
	assert.Equal(t, "📋 Ваш user_id: 42", e.one(t, alice, "/myid").Text)
}

func TestHelpMentionsDigestTime(t *testing.T) {
	e := newEnv(t, func(c *Config, _ *Deps) { c.DigestHour, c.DigestMinute = 8, 30 })
	assert.Contains(t, e.one(t, alice, "/help").Text, "08:30")
}

func TestAdminCommands(t *testing.T) {
	e := newEnv(t, nil)
	e.one(t, alice, "/start")

	assert.Equal(t, msgAdminOnly, e.one(t, alice, "/users").Text)
	assert.Equal(t, msgAdminOnly, e.one(t, alice, "/testreport").Text)
	assert.Equal(t, 0, e.digest.calls)

	r := e.one(t, admin, "/users")
	assert.Contains(t, r.Text, "Алиса (@alice) - 42")

	e.digest.report = digest.Report{Total: 3, Sent: 2, Failed: 1}
	replies := e.say(admin, "/testreport")
	require.Len(t, replies, 2)
	assert.Equal(t, msgReportStarted, replies[0].Text)
	assert.Equal(t, "✅ Отчёт отправлен: 2 из 3 (ошибок: 1).", replies[1].Text)
	assert.Equal(t, 1, e.digest.calls)

	e.digest.err = errors.New("telegram down")
	replies = e.say(admin, "/testreport")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1].Text, "telegram down")
}

func TestAdminDisabledWhenUnset(t *testing.T) {
	e := newEnv(t, func(c *Config, _ *Deps) { c.AdminID = 0 })
	assert.Equal(t, msgAdminOnly, e.d.Handle(context.Background(), chat.Message{UserID: 0, Text: "/users"})[0].Text)
}

func TestCoffee(t *testing.T) {
	e := newEnv(t, nil)
	r := e.one(t, alice, chat.ButtonCoffee)
	assert.Equal(t, msgNoSpendToday, r.Text)

	e.one(t, alice, "/add")
	e.one(t, alice, "350")
	e.one(t, alice, "Рестораны и кафе")

	r = e.one(t, alice, "/coffee")
	assert.Equal(t, "/tmp/coffee-1.png", r.PhotoPath)
	assert.True(t, r.TempPhoto)
	assert.Contains(t, r.Text, "2 чашки кофе")
	assert.Equal(t, int64(2), e.coffee.last.Cups)

	e.coffee.err = errors.New("no font")
	r = e.one(t, alice, "/coffee")
	assert.Equal(t, msgCoffeeFailed, r.Text)
	assert.Empty(t, r.PhotoPath)
}

func TestCoffeeWithoutRenderer(t *testing.T) {
	e := newEnv(t, func(_ *Config, d *Deps) { d.Coffee = nil })
	e.one(t, alice, "/add")
	e.one(t, alice, "213")
	e.one(t, alice, "Другое")

	r := e.one(t, alice, "/coffee")
	assert.Empty(t, r.PhotoPath)
	assert.Contains(t, r.Text, "1 чашка кофе")
}

func TestPanicRecovery(t *testing.T) {
	e := newEnv(t, func(_ *Config, d *Deps) { d.Stats = panickingStats{} })
	e.one(t, alice, "/add")

	r := e.one(t, alice, "/stats")
	assert.Equal(t, msgInternalError, r.Text)
	assert.Equal(t, chat.MainMenu(), r.Keyboard)

	// the dispatcher keeps working and the user lock was released
	assert.Equal(t, "📋 Ваш user_id: 42", e.one(t, alice, "/myid").Text)
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t, func(_ *Config, d *Deps) {
		d.Limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2})
	})
	e.one(t, alice, "/myid")
	e.one(t, alice, "/myid")
	assert.Equal(t, msgTooFast, e.one(t, alice, "/myid").Text)
	assert.Equal(t, "📋 Ваш user_id: 1", e.one(t, admin, "/myid").Text)
}

func TestConcurrentUsers(t *testing.T) {
	e := newEnv(t, nil)
	var wg sync.WaitGroup
	for u := int64(100); u < 110; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			e.say(u, "/add")
			e.say(u, "10")
			e.say(u, "Транспорт")
		}(u)
	}
	wg.Wait()

	for u := int64(100); u < 110; u++ {
		list := e.store.ListRecentExpenses(context.Background(), u, 10)
		require.Len(t, list, 1, "user %d", u)
	}
	assert.Equal(t, 0, e.d.locks.size())
}

func TestKeyedMutexSerializes(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(1)
	acquired := make(chan struct{})
	go func() {
		u := k.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}
