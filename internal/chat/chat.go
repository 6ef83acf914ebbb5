// Package chat defines the transport-neutral message types exchanged between
// the bot logic and a messaging transport.
package chat

import (
	"context"
	"strings"
)

// Message is one inbound text message.
type Message struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	Text      string
}

// Reply is one outbound message. Keyboard rows replace the reply keyboard;
// RemoveKeyboard hides it. When PhotoPath is set Text becomes the caption,
// and TempPhoto asks the transport to remove the file once it is sent.
type Reply struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
	PhotoPath      string
	TempPhoto      bool
}

// Sender delivers replies to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, r Reply) error
}

// Main menu and shared buttons.
const (
	ButtonAdd        = "💸 Добавить траты"
	ButtonStats      = "📈 Статистика"
	ButtonOperations = "📄 Операции"
	ButtonFix        = "✏️ Исправить"
	ButtonCoffee     = "☕ Индекс кофе"
	ButtonCancel     = "❌ Отмена"
)

// MainMenu returns a fresh copy of the main menu layout.
func MainMenu() [][]string {
	return [][]string{
		{ButtonAdd},
		{ButtonStats, ButtonOperations},
		{ButtonFix, ButtonCoffee},
	}
}

// Column lays labels out one per row.
func Column(labels ...string) [][]string {
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	return rows
}

// WithMenu returns a text reply carrying the main menu.
func WithMenu(text string) Reply {
	return Reply{Text: text, Keyboard: MainMenu()}
}

// Text returns a plain text reply that leaves the keyboard untouched.
func Text(text string) Reply {
	return Reply{Text: text}
}

// Command extracts the command name from text such as "/stats" or
// "/stats@tratyallday_bot arg". The second result is false for non-commands.
func Command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", false
	}
	name := strings.Fields(text[1:])[0]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), name != ""
}
