// Package telegram connects the dispatcher to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/log"
)

// Handler turns one inbound message into replies.
type Handler interface {
	Handle(ctx context.Context, msg chat.Message) []chat.Reply
}

type Options struct {
	WebhookSecret string
}

// Client is the bot transport and the chat.Sender used for broadcasts.
type Client struct {
	bot     *tgbot.Bot
	handler atomic.Pointer[handlerBox]
	queue   *userQueue
	logger  *log.Logger
}

type handlerBox struct{ h Handler }

var _ chat.Sender = (*Client)(nil)

// New authenticates the token against the API. Updates are dropped until
// SetHandler is called.
func New(token string, opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{queue: newUserQueue(), logger: logger.WithComponent(log.ComponentTelegram)}

	// One worker hands updates over in arrival order; queue fans them out per user.
	botOpts := []tgbot.Option{
		tgbot.WithDefaultHandler(c.onUpdate),
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithWorkers(1),
	}
	if opts.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(opts.WebhookSecret))
	}
	b, err := tgbot.New(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	c.bot = b
	return c, nil
}

func (c *Client) SetHandler(h Handler) {
	c.handler.Store(&handlerBox{h: h})
}

// RunPolling removes any webhook and long-polls until ctx is cancelled.
func (c *Client) RunPolling(ctx context.Context) error {
	if _, err := c.bot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	c.logger.InfoContext(ctx, "Telegram long polling started")
	c.bot.Start(ctx)
	c.queue.Wait()
	return nil
}

// RegisterWebhook points Telegram at url.
func (c *Client) RegisterWebhook(ctx context.Context, url, secret string) error {
	if _, err := c.bot.SetWebhook(ctx, &tgbot.SetWebhookParams{URL: url, SecretToken: secret}); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.InfoContext(ctx, "Telegram webhook registered", "url", url)
	return nil
}

// RunWebhook processes updates received through WebhookHandler until ctx is cancelled.
func (c *Client) RunWebhook(ctx context.Context) error {
	c.bot.StartWebhook(ctx)
	c.queue.Wait()
	return nil
}

// WebhookHandler is mounted on the HTTP server in webhook mode.
func (c *Client) WebhookHandler() http.Handler {
	return c.bot.WebhookHandler()
}

// Send delivers one reply, uploading a photo when the reply carries one.
func (c *Client) Send(ctx context.Context, chatID int64, r chat.Reply) error {
	if r.PhotoPath != "" {
		return c.sendPhoto(ctx, chatID, r)
	}
	params := &tgbot.SendMessageParams{ChatID: chatID, Text: r.Text}
	if markup := replyMarkup(r); markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Client) sendPhoto(ctx context.Context, chatID int64, r chat.Reply) error {
	if r.TempPhoto {
		defer os.Remove(r.PhotoPath)
	}
	f, err := os.Open(r.PhotoPath)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	params := &tgbot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: filepath.Base(r.PhotoPath), Data: f},
		Caption: r.Text,
	}
	if markup := replyMarkup(r); markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.bot.SendPhoto(ctx, params); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (c *Client) onUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg, ok := toMessage(update)
	if !ok {
		return
	}
	box := c.handler.Load()
	if box == nil {
		c.logger.WarnContext(ctx, "Update dropped, no handler yet", log.FieldUserID, msg.UserID)
		return
	}
	c.queue.Push(msg.UserID, func() { c.deliver(ctx, box.h, msg, c.Send) })
}

// deliver runs the handler and sends its replies in order.
func (c *Client) deliver(ctx context.Context, h Handler, msg chat.Message, send func(context.Context, int64, chat.Reply) error) {
	for _, r := range h.Handle(ctx, msg) {
		if err := send(ctx, msg.ChatID, r); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.ErrorContext(ctx, "Failed to send reply",
				log.FieldUserID, msg.UserID,
				log.FieldChatID, msg.ChatID,
				log.FieldOperation, log.OpSend,
				log.FieldError, err)
		}
	}
}

// toMessage extracts a text message; other update kinds are ignored.
func toMessage(update *models.Update) (chat.Message, bool) {
	if update == nil || update.Message == nil || update.Message.Text == "" {
		return chat.Message{}, false
	}
	m := update.Message
	msg := chat.Message{ChatID: m.Chat.ID, Text: m.Text}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.Username
		msg.FirstName = m.From.FirstName
	} else {
		msg.UserID = m.Chat.ID
	}
	return msg, true
}

// replyMarkup maps the keyboard of r, or returns nil to leave it unchanged.
func replyMarkup(r chat.Reply) any {
	switch {
	case len(r.Keyboard) > 0:
		rows := make([][]models.KeyboardButton, 0, len(r.Keyboard))
		for _, row := range r.Keyboard {
			buttons := make([]models.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, models.KeyboardButton{Text: label})
			}
			rows = append(rows, buttons)
		}
		return &models.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
	case r.RemoveKeyboard:
		return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	default:
		return nil
	}
}
