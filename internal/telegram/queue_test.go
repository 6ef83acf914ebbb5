package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/log"
)

func TestUserQueue_KeepsOrderPerUser(t *testing.T) {
	q := newUserQueue()
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 200; i++ {
		q.Push(7, func() {
			if i%10 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Wait()

	require.Len(t, got, 200)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	assert.Zero(t, q.busy())
}

func TestUserQueue_UsersRunInParallel(t *testing.T) {
	q := newUserQueue()
	release := make(chan struct{})
	done := make(chan struct{})

	q.Push(1, func() { <-release })
	q.Push(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second user blocked behind the first")
	}
	assert.Eventually(t, func() bool { return q.busy() == 1 }, time.Second, time.Millisecond)
	close(release)
	q.Wait()
	assert.Zero(t, q.busy())
}

type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, msg chat.Message) []chat.Reply {
	return []chat.Reply{chat.Text("first " + msg.Text), chat.Text("second " + msg.Text)}
}

func TestDeliver_SendsRepliesInOrder(t *testing.T) {
	c := &Client{logger: log.Discard()}
	var sent []string
	send := func(_ context.Context, chatID int64, r chat.Reply) error {
		assert.Equal(t, int64(100), chatID)
		sent = append(sent, r.Text)
		return errors.New("network down")
	}

	c.deliver(context.Background(), echoHandler{}, chat.Message{UserID: 7, ChatID: 100, Text: "350"}, send)
	assert.Equal(t, []string{"first 350", "second 350"}, sent)
}

func TestDeliver_StopsWhenCancelled(t *testing.T) {
	c := &Client{logger: log.Discard()}
	calls := 0
	send := func(context.Context, int64, chat.Reply) error {
		calls++
		return context.Canceled
	}

	c.deliver(context.Background(), echoHandler{}, chat.Message{UserID: 7, ChatID: 100, Text: "x"}, send)
	assert.Equal(t, 1, calls)
}
