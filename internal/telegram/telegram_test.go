package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
)

func TestToMessage(t *testing.T) {
	t.Run("text message with sender", func(t *testing.T) {
		msg, ok := toMessage(&models.Update{Message: &models.Message{
			Text: "/start",
			Chat: models.Chat{ID: 100},
			From: &models.User{ID: 7, Username: "anna", FirstName: "Анна"},
		}})
		require.True(t, ok)
		assert.Equal(t, chat.Message{UserID: 7, ChatID: 100, Username: "anna", FirstName: "Анна", Text: "/start"}, msg)
	})

	t.Run("sender missing falls back to chat", func(t *testing.T) {
		msg, ok := toMessage(&models.Update{Message: &models.Message{Text: "350", Chat: models.Chat{ID: 55}}})
		require.True(t, ok)
		assert.Equal(t, int64(55), msg.UserID)
	})

	t.Run("ignored updates", func(t *testing.T) {
		for name, u := range map[string]*models.Update{
			"nil update": nil,
			"no message": {},
			"empty text": {Message: &models.Message{Chat: models.Chat{ID: 1}}},
		} {
			_, ok := toMessage(u)
			assert.False(t, ok, name)
		}
	})
}

func TestReplyMarkup(t *testing.T) {
	t.Run("keyboard", func(t *testing.T) {
		markup := replyMarkup(chat.Reply{Keyboard: chat.MainMenu()})
		kb, ok := markup.(*models.ReplyKeyboardMarkup)
		require.True(t, ok)
		assert.True(t, kb.ResizeKeyboard)
		require.Len(t, kb.Keyboard, 3)
		assert.Equal(t, chat.ButtonAdd, kb.Keyboard[0][0].Text)
		assert.Equal(t, chat.ButtonOperations, kb.Keyboard[1][1].Text)
	})

	t.Run("remove", func(t *testing.T) {
		markup := replyMarkup(chat.Reply{RemoveKeyboard: true})
		rm, ok := markup.(*models.ReplyKeyboardRemove)
		require.True(t, ok)
		assert.True(t, rm.RemoveKeyboard)
	})

	t.Run("keyboard wins over remove", func(t *testing.T) {
		markup := replyMarkup(chat.Reply{Keyboard: [][]string{{"1"}}, RemoveKeyboard: true})
		_, ok := markup.(*models.ReplyKeyboardMarkup)
		assert.True(t, ok)
	})

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, replyMarkup(chat.Reply{Text: "hi"}))
	})
}
