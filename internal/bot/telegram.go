// Package bot answers seal table commands over Telegram and posts a notice
// when players change tier.
package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
)

type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	handler *Handler
	data    Snapshots
	chatID  int64
}

func NewTelegramBot(token string, chatID int64, handler *Handler, data Snapshots) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &TelegramBot{
		bot:     bot,
		handler: handler,
		data:    data,
		chatID:  chatID,
	}, nil
}

func (t *TelegramBot) Start(ctx context.Context) error {
	logger.Info("Authorized on account", "username", t.bot.Self.UserName)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			if update.Message.IsCommand() {
				msg := t.handler.HandleCommand(update)
				if _, err := t.bot.Send(msg); err != nil {
					logger.Error("Error sending message", "error", err)
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Notify posts the changed-player report to the configured chat after every
// refresh that moved someone. It returns when ctx is done.
func (t *TelegramBot) Notify(ctx context.Context, bus pubsub.Bus) {
	if t.chatID == 0 || bus == nil {
		return
	}

	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type != pubsub.EventPlayersChanged {
				continue
			}
			ds := t.data.Current()
			if ds == nil {
				continue
			}
			if report := ChangedReport(ds); report != "" {
				t.SendMessage(report)
			}
		}
	}
}

func (t *TelegramBot) SendMessage(text string) error {
	if t.chatID == 0 {
		logger.Error("Chat ID not set")
		return errors.New("chat ID not set")
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	if err != nil {
		logger.Error("Error sending message", "error", err)
	}
	return err
}
